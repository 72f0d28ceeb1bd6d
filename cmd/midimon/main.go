package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Garik-/midistream/internal/ports"
	"github.com/Garik-/midistream/pkg/midi"
	"go.uber.org/zap"
)

const (
	pollInterval = time.Millisecond
)

var (
	serialFlag  = flag.String("serial", "", "Serial device, e.g. /dev/ttyUSB0")
	baudFlag    = flag.Int("baud", 0, "Serial baud rate, 0 for the default")
	inFlag      = flag.String("in", "", "Name of the MIDI input port")
	channelFlag = flag.Int("ch", -1, "Input channel 0-15, -1 for all channels")
	sysexFlag   = flag.Int("sysex", midi.DefaultSysExMaxLength, "Max System Exclusive payload, must be > 0")
	dropFlag    = flag.Bool("drop", false, "Drop oversized System Exclusive instead of truncating")
	verboseFlag = flag.Bool("v", false, "Debug logging")
)

func options() []midi.Option {
	opts := []midi.Option{midi.WithSysExMaxLength(*sysexFlag)}
	if *channelFlag >= 0 {
		opts = append(opts, midi.WithInChannels(*channelFlag))
	}
	if *dropFlag {
		opts = append(opts, midi.WithOverflowPolicy(midi.OverflowDrop))
	}
	return opts
}

// monitor polls s until ctx is done, printing every message to stdout.
func monitor(ctx context.Context, s *midi.Session) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		msg, ch, err := s.ReadInPort()
		if err != nil {
			return err
		}

		if msg != nil {
			printMessage(msg, ch)
			continue
		}

		select {
		case <-ctx.Done():
			stats := s.Stats()
			monitorLog.Debug("done",
				zap.Int("decoded", stats.Decoded),
				zap.Int("lost", stats.Lost),
				zap.Int("filtered", stats.Filtered),
				zap.Int("overflowed", stats.Overflowed),
				zap.Int("discarded", stats.Discarded))
			return nil
		case <-ticker.C:
		}
	}
}

func printMessage(msg midi.Message, ch int) {
	if ch == midi.NoChannel {
		fmt.Printf("   -  %s\n", msg)
		return
	}
	fmt.Printf("ch %2d  %s\n", ch, msg)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -serial DEVICE | -in PORT\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *sysexFlag <= 0 || *channelFlag > 15 {
		flag.Usage()
		return
	}

	if *verboseFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer l.Sync()
		enableDebugLogging(l)
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

var openPorts = ports.Open

// run owns the ports so they are closed before main exits on error.
func run() error {
	p, err := openPorts(ports.Config{Serial: *serialFlag, Baud: *baudFlag, In: *inFlag})
	if err != nil {
		return err
	}
	defer p.Close()

	if p.In == nil {
		return midi.ErrNoInPort
	}

	s, err := midi.NewSession(append(options(), midi.WithIn(p.In))...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := monitor(ctx, s); err != nil {
		log.Println(err)
	}
	return nil
}
