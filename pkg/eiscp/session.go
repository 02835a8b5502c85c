package eiscp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	connectTimeout = 1500 * time.Millisecond
	readIncrement  = 100 * time.Millisecond
	drainIncrement = 50 * time.Millisecond
	closeBudget    = 300 * time.Millisecond
	writeTimeout   = 2 * time.Second
)

// Transport executes one command transaction against the receiver. There is
// no persistent session: each call owns its connection for the duration of
// the exchange, which trades latency for robustness against half-open
// sockets. onConnect fires as soon as the device is reachable; deliver is
// called once per decoded reply payload.
type Transport interface {
	Execute(cmd string, expectReply bool, replyTimeout time.Duration, stop <-chan struct{}, onConnect func(), deliver func(payload []byte)) error
	Close()
}

// tcpTransport dials the receiver's eISCP port per transaction.
type tcpTransport struct {
	host    string
	port    int
	useCRLF bool
}

func newTCPTransport(host string, port int, useCRLF bool) *tcpTransport {
	return &tcpTransport{host: host, port: port, useCRLF: useCRLF}
}

func (t *tcpTransport) Execute(cmd string, expectReply bool, replyTimeout time.Duration, stop <-chan struct{}, onConnect func(), deliver func(payload []byte)) error {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-stop:
			cancel()
		case <-watchDone:
		}
	}()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer t.closeGracefully(conn, stop)

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
	}
	if onConnect != nil {
		onConnect()
	}

	frame := EncodeCommand(cmd, true, t.useCRLF)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", addr, err)
	}

	if expectReply && replyTimeout > 0 {
		buf := t.readReplies(conn, replyTimeout, stop)
		if len(buf) > 0 {
			for _, payload := range DecodeFrames(buf, true) {
				deliver(payload)
			}
		}
	}
	return nil
}

// readReplies accumulates reply bytes in bounded increments so a stop signal
// is observed within one increment. After the first data arrives it keeps
// draining briefly to pick up split or batched frames.
func (t *tcpTransport) readReplies(conn net.Conn, replyTimeout time.Duration, stop <-chan struct{}) []byte {
	var buf []byte
	tmp := make([]byte, 2048)

	var waited time.Duration
	for waited < replyTimeout {
		if stopped(stop) {
			return buf
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIncrement))
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				if stopped(stop) {
					return buf
				}
				_ = conn.SetReadDeadline(time.Now().Add(drainIncrement))
				n, err = conn.Read(tmp)
				if n > 0 {
					buf = append(buf, tmp[:n]...)
					continue
				}
				break
			}
			return buf
		}
		if err != nil && !isTimeout(err) {
			return buf
		}
		waited += readIncrement
	}
	return buf
}

// closeGracefully half-closes the connection and waits briefly for the peer
// to finish; failure to observe a clean close within budget is not an error.
func (t *tcpTransport) closeGracefully(conn net.Conn, stop <-chan struct{}) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.CloseWrite(); err == nil {
			tmp := make([]byte, 256)
			var waited time.Duration
			for waited < closeBudget {
				if stopped(stop) {
					break
				}
				_ = conn.SetReadDeadline(time.Now().Add(drainIncrement))
				if _, err := conn.Read(tmp); err != nil {
					break
				}
				waited += drainIncrement
			}
		}
	}
	_ = conn.Close()
}

// Close is a no-op: tcpTransport holds no persistent resources.
func (t *tcpTransport) Close() {}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
