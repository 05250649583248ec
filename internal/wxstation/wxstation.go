// Package wxstation talks to a 200WX class marine weather station over a
// serial line: opening the port and running the start-up handshake that
// selects the sentences the station transmits.
package wxstation

import (
	"fmt"
	"io"
	"log"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// Options configure the handshake.
type Options struct {
	Port     string
	InitBaud int  // rate the station boots at
	Baud     int  // rate requested during the handshake
	Outdoor  bool // also enable GNSS, heading and true wind sentences

	PowerUp time.Duration // wait before the first command
	Settle  time.Duration // wait after stop, disable and baud change
}

// DefaultOptions returns the timings the station needs after power-up.
func DefaultOptions(port string) Options {
	return Options{
		Port:     port,
		InitBaud: 4800,
		Baud:     38400,
		PowerUp:  5 * time.Second,
		Settle:   2 * time.Second,
	}
}

// Opener opens the station port at the given baud rate.
type Opener func(baud int) (io.ReadWriteCloser, error)

// SerialOpener returns an Opener backed by go-serial.
func SerialOpener(port string) Opener {
	return func(baud int) (io.ReadWriteCloser, error) {
		return Open(port, baud)
	}
}

// Open opens port in raw 8N1 mode.
func Open(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", port, baud, err)
	}
	return p, nil
}

// sentence commands, each sent three times as marine devices expect.
const (
	cmdStopTx     = "$PAMTX"
	cmdDisableAll = "$PAMTC,EN,ALL,0,10"
	cmdStartTx    = "$PAMTX,1"
)

func enable(tag string) string { return "$PAMTC,EN," + tag + ",1,1" }

// Commands returns the configuration commands in the order they are sent,
// up to and including the baud rate change.
func Commands(outdoor bool, baud int) []string {
	cmds := []string{cmdStopTx, cmdDisableAll}
	if outdoor {
		for _, tag := range []string{"GGA", "GSA", "VTG", "HDT", "MWD"} {
			cmds = append(cmds, enable(tag))
		}
	}
	for _, tag := range []string{"VWR", "XDRB", "XDRE", "XDRC"} {
		cmds = append(cmds, enable(tag))
	}
	return append(cmds, fmt.Sprintf("$PAMTC,BAUD,%d", baud))
}

func sendThreeTimes(w io.Writer, cmd string) error {
	line := []byte(cmd + "\r\n")
	for i := 0; i < 3; i++ {
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write %s: %w", cmd, err)
		}
	}
	return nil
}

// Configure sends the stop, enable and baud commands on w. The station
// switches rate after the last one.
func Configure(w io.Writer, opts Options, sleep func(time.Duration)) error {
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write new line: %w", err)
	}
	for _, cmd := range Commands(opts.Outdoor, opts.Baud) {
		if err := sendThreeTimes(w, cmd); err != nil {
			return err
		}
		switch cmd {
		case cmdStopTx, cmdDisableAll:
			sleep(opts.Settle)
		}
	}
	sleep(opts.Settle)
	return nil
}

// StartTransmit tells the station to resume sending.
func StartTransmit(w io.Writer) error {
	return sendThreeTimes(w, cmdStartTx)
}

// Connect runs the full handshake: open at the boot rate, configure, reopen
// at the working rate and start transmission. The returned port is ready
// to read sentences from.
func Connect(opts Options, open Opener, sleep func(time.Duration)) (io.ReadWriteCloser, error) {
	if sleep == nil {
		sleep = time.Sleep
	}

	port, err := open(opts.InitBaud)
	if err != nil {
		return nil, err
	}
	log.Printf("wx: starting initialization on %s (outdoor=%v)", opts.Port, opts.Outdoor)
	sleep(opts.PowerUp)

	if err := Configure(port, opts, sleep); err != nil {
		port.Close()
		return nil, err
	}
	if err := port.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", opts.Port, err)
	}

	port, err = open(opts.Baud)
	if err != nil {
		return nil, err
	}
	if err := StartTransmit(port); err != nil {
		port.Close()
		return nil, err
	}
	log.Printf("wx: initialization done, reading at %d baud", opts.Baud)
	return port, nil
}
