// Package ports opens the transport selected on a command line.
package ports

import (
	"errors"
	"io"

	"github.com/Garik-/midistream/pkg/gomidiport"
	"github.com/Garik-/midistream/pkg/serialport"
	"go.uber.org/multierr"
)

var ErrNoPort = errors.New("no port selected, use -serial or -in/-out")

// Config names the ports to open. A serial device serves both directions.
type Config struct {
	Serial string
	Baud   int
	In     string
	Out    string
}

// Ports holds whatever was opened. In or Out may be nil.
type Ports struct {
	In      io.Reader
	Out     io.Writer
	closers []io.Closer
}

// New wraps ports that are already open. Whichever of in and out is an
// io.Closer is closed by Close, once when both are the same port.
func New(in io.Reader, out io.Writer) *Ports {
	p := &Ports{In: in, Out: out}
	if c, ok := in.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	if c, ok := out.(io.Closer); ok && any(out) != any(in) {
		p.closers = append(p.closers, c)
	}
	return p
}

func Open(c Config) (*Ports, error) {
	p := &Ports{}

	if c.Serial != "" {
		sp, err := serialport.Open(c.Serial, c.Baud)
		if err != nil {
			return nil, err
		}
		return New(sp, sp), nil
	}

	if c.In != "" {
		in, err := gomidiport.FindIn(c.In, 0)
		if err != nil {
			return nil, err
		}
		p.In = in
		p.closers = append(p.closers, in)
	}

	if c.Out != "" {
		out, err := gomidiport.FindOut(c.Out)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.Out = out
		p.closers = append(p.closers, out)
	}

	if p.In == nil && p.Out == nil {
		return nil, ErrNoPort
	}
	return p, nil
}

func (p *Ports) Close() error {
	var err error
	for _, c := range p.closers {
		err = multierr.Append(err, c.Close())
	}
	p.closers = nil
	return err
}
