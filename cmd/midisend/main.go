package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/Garik-/midistream/internal/ports"
	"github.com/Garik-/midistream/pkg/gomidiport"
	"github.com/Garik-/midistream/pkg/midi"
	"github.com/Garik-/midistream/pkg/serialport"
	"go.uber.org/zap"
)

var (
	serialFlag   = flag.String("serial", "", "Serial device, e.g. /dev/ttyUSB0")
	baudFlag     = flag.Int("baud", 0, "Serial baud rate, 0 for the default")
	outFlag      = flag.String("out", "", "Name of the MIDI output port")
	channelFlag  = flag.Int("ch", 0, "Output channel 0-15")
	humanizeFlag = flag.Bool("humanize", false, "Randomize note on velocities")
	minFlag      = flag.Int("min", 1, "Min velocity when humanizing")
	maxFlag      = flag.Int("max", 127, "Max velocity when humanizing")
	verboseFlag  = flag.Bool("v", false, "Debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -serial DEVICE | -out PORT message...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Messages: on:C4:100 off:60:0 cc:7:127 pc:5 at:64 pat:C4:64 pb:8192 sysex:7d:0102 start stop continue clock reset\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 || *minFlag < 1 || *maxFlag > 127 || *minFlag > *maxFlag {
		flag.Usage()
		return
	}

	if *verboseFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer l.Sync()
		midi.EnableDebugLogging(l)
		serialport.EnableDebugLogging(l)
		gomidiport.EnableDebugLogging(l)
	}

	msgs := make([]midi.Message, 0, flag.NArg())
	for _, arg := range flag.Args() {
		m, err := parseMessage(arg)
		if err != nil {
			log.Fatal(err)
		}
		msgs = append(msgs, m)
	}

	if *humanizeFlag {
		h := &humanizer{
			rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
			min: *minFlag,
			max: *maxFlag,
		}
		h.apply(msgs)
	}

	if err := send(msgs); err != nil {
		log.Fatal(err)
	}
}

var openPorts = ports.Open

// send owns the ports so they are closed before main exits on error.
func send(msgs []midi.Message) error {
	p, err := openPorts(ports.Config{Serial: *serialFlag, Baud: *baudFlag, Out: *outFlag})
	if err != nil {
		return err
	}
	defer p.Close()

	if p.Out == nil {
		return midi.ErrNoOutPort
	}

	s, err := midi.NewSession(midi.WithOut(p.Out), midi.WithOutChannel(*channelFlag))
	if err != nil {
		return err
	}

	if err := s.Send(msgs...); err != nil {
		log.Println(err)
	}
	return nil
}
