package eiscp

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// eISCP framing constants
const (
	frameMagic = "ISCP"
	headerSize = 16

	// unitPrefix addresses the receiver itself ("unit type 1") on the wire.
	unitPrefix = "!1"
)

// EncodeCommand wraps a textual ISCP command for transmission. The payload is
// always "!1" + cmd + terminator (CR by default, CRLF when crlf is set). In
// binary mode the payload is additionally wrapped in the eISCP envelope:
// 4-byte magic, big-endian header and payload sizes, priority byte, padding.
func EncodeCommand(cmd string, binaryMode, crlf bool) []byte {
	terminator := "\r"
	if crlf {
		terminator = "\r\n"
	}
	payload := []byte(unitPrefix + cmd + terminator)
	if !binaryMode {
		return payload
	}

	frame := make([]byte, 0, headerSize+len(payload))
	frame = append(frame, frameMagic...)
	frame = binary.BigEndian.AppendUint32(frame, headerSize)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, 0x01, 0x00, 0x00, 0x00)
	return append(frame, payload...)
}

// DecodeFrames extracts every complete payload from buf. Receivers batch
// replies, so one read may carry several concatenated envelopes; it may also
// end mid-frame. Partial or garbage input is not an error: the incomplete
// tail is simply not returned, and the caller re-invokes with an extended
// buffer once more bytes arrive. In non-binary mode the whole buffer is the
// single candidate payload.
func DecodeFrames(buf []byte, binaryMode bool) [][]byte {
	if len(buf) == 0 {
		return nil
	}
	if !binaryMode {
		return [][]byte{buf}
	}

	var payloads [][]byte
	offset := 0
	for offset+headerSize <= len(buf) {
		idx := bytes.Index(buf[offset:], []byte(frameMagic))
		if idx < 0 {
			break
		}
		start := offset + idx
		if start+headerSize > len(buf) {
			break
		}
		hdrSize := binary.BigEndian.Uint32(buf[start+4:])
		dataSize := binary.BigEndian.Uint32(buf[start+8:])
		end := int64(start) + int64(hdrSize) + int64(dataSize)
		if end > int64(len(buf)) {
			// frame not fully received yet
			break
		}
		payloads = append(payloads, buf[start+int(hdrSize):end])
		offset = int(end)
	}
	return payloads
}

// SplitPayload breaks a decoded payload into clean command lines. Payloads
// are CR-separated; each line is trimmed, stripped of trailing control/DEL
// bytes, stripped of the unit-address prefix and trimmed again. Empty lines
// are discarded.
func SplitPayload(payload []byte) []string {
	var lines []string
	for _, raw := range bytes.Split(payload, []byte{'\r'}) {
		line := sanitizeLine(string(raw))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, unitPrefix) {
			line = sanitizeLine(line[len(unitPrefix):])
		}
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// sanitizeLine trims whitespace, then strips trailing control and DEL
// characters one at a time until a clean tail remains.
func sanitizeLine(line string) string {
	line = strings.TrimSpace(line)
	for len(line) > 0 {
		last := line[len(line)-1]
		if last < 0x20 || last == 0x7F {
			line = line[:len(line)-1]
		} else {
			break
		}
	}
	return line
}
