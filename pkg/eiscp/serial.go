package eiscp

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// serialTransport speaks legacy ISCP over RS-232: the raw terminated command
// with no eISCP envelope. Unlike TCP, the port stays open across
// transactions; a failed exchange closes it so the next transaction reopens.
type serialTransport struct {
	path    string
	useCRLF bool
	port    serial.Port
}

func newSerialTransport(path string, useCRLF bool) *serialTransport {
	return &serialTransport{path: path, useCRLF: useCRLF}
}

// ensureOpen opens the port at the receiver's fixed 9600 8N1 line settings.
func (t *serialTransport) ensureOpen() error {
	if t.port != nil {
		return nil
	}
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.path, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", t.path, err)
	}
	log.Info().Str("port", t.path).Msg("serial port opened")
	t.port = port
	return nil
}

func (t *serialTransport) Execute(cmd string, expectReply bool, replyTimeout time.Duration, stop <-chan struct{}, onConnect func(), deliver func(payload []byte)) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	if onConnect != nil {
		onConnect()
	}

	frame := EncodeCommand(cmd, false, t.useCRLF)
	if _, err := t.port.Write(frame); err != nil {
		t.dropPort()
		return fmt.Errorf("write %s: %w", t.path, err)
	}

	if expectReply && replyTimeout > 0 {
		buf, err := t.readReplies(replyTimeout, stop)
		if err != nil {
			t.dropPort()
			return err
		}
		if len(buf) > 0 {
			for _, payload := range DecodeFrames(buf, false) {
				deliver(payload)
			}
		}
	}
	return nil
}

func (t *serialTransport) readReplies(replyTimeout time.Duration, stop <-chan struct{}) ([]byte, error) {
	if err := t.port.SetReadTimeout(readIncrement); err != nil {
		return nil, fmt.Errorf("set read timeout %s: %w", t.path, err)
	}

	var buf []byte
	tmp := make([]byte, 512)
	var waited time.Duration
	for waited < replyTimeout {
		if stopped(stop) {
			return buf, nil
		}
		n, err := t.port.Read(tmp)
		if err != nil {
			return buf, fmt.Errorf("read %s: %w", t.path, err)
		}
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			// a CR-terminated line is a complete legacy reply
			if buf[len(buf)-1] == '\r' || buf[len(buf)-1] == '\n' {
				return buf, nil
			}
		}
		waited += readIncrement
	}
	return buf, nil
}

func (t *serialTransport) dropPort() {
	if t.port != nil {
		_ = t.port.Close()
		t.port = nil
	}
}

func (t *serialTransport) Close() {
	t.dropPort()
}
