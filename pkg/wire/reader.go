package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMessageTooLarge indicates a server message exceeded the reader limit
// before the terminator was seen.
var ErrMessageTooLarge = errors.New("message too large")

// MessageReader reads '!'-terminated server messages. It is the client
// side of the framing.
type MessageReader struct {
	r       *bufio.Reader
	maxSize int
}

// NewMessageReader creates a reader with a 64 KB message limit.
func NewMessageReader(r io.Reader) *MessageReader {
	return &MessageReader{r: bufio.NewReader(r), maxSize: 64 * 1024}
}

// ReadMessage returns the next message without its terminator.
func (m *MessageReader) ReadMessage() (string, error) {
	var b strings.Builder
	for {
		c, err := m.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == Terminator {
			return b.String(), nil
		}
		if b.Len() >= m.maxSize {
			return "", fmt.Errorf("%w: exceeds %d bytes", ErrMessageTooLarge, m.maxSize)
		}
		b.WriteByte(c)
	}
}

// ParseScan parses message 1 (without terminator) into network names.
func ParseScan(msg string) ([]string, error) {
	if msg+string(Terminator) == ScanFailed {
		return nil, ErrScanFailed
	}
	if !strings.HasPrefix(msg, ScanHeader) {
		return nil, fmt.Errorf("%w: expected scan list, got %q", ErrUnexpectedMessage, msg)
	}
	var names []string
	for _, line := range strings.Split(strings.TrimPrefix(msg, ScanHeader), "\n") {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// IsPSKPrompt reports whether msg (without terminator) is message 3.
func IsPSKPrompt(msg string) bool {
	return msg+string(Terminator) == PSKPrompt
}

// ParseResult extracts the value of message 5 (without terminator).
func ParseResult(msg string) (string, error) {
	if !strings.HasPrefix(msg, ResultPrefix) {
		return "", fmt.Errorf("%w: expected result, got %q", ErrUnexpectedMessage, msg)
	}
	return strings.TrimPrefix(msg, ResultPrefix), nil
}
