package wire

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// Protocol constants.
const (
	// Terminator ends every server-to-client message.
	Terminator = '!'

	// ScanHeader prefixes the list of visible networks.
	ScanHeader = "Found ssid:\n"

	// ScanFailed is sent instead of the network list when scanning failed.
	ScanFailed = "Error scanning!"

	// PSKPrompt asks the client for the passphrase.
	PSKPrompt = "waiting-psk!"

	// ResultPrefix prefixes the final message.
	ResultPrefix = "ip-address:"

	// NotSet is the result value when no address could be resolved.
	NotSet = "<Not Set>"

	// PermissionError is the result value when the configuration file
	// could not be written.
	PermissionError = "Permission Error"

	// DefaultMaxPayload bounds a single inbound read.
	DefaultMaxPayload = 1024
)

// Decoding errors.
var (
	// ErrEmptyPayload indicates the client sent only whitespace.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrInvalidText indicates the payload is not valid UTF-8.
	ErrInvalidText = errors.New("payload is not valid UTF-8")

	// ErrScanFailed is returned by ParseScan for the scan failure message.
	ErrScanFailed = errors.New("device reported scan failure")

	// ErrUnexpectedMessage indicates a message did not match the expected kind.
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// Kind identifies a protocol message.
type Kind uint8

const (
	KindScan Kind = iota + 1
	KindSSID
	KindPSKPrompt
	KindPSK
	KindResult
)

// String returns the message kind name.
func (k Kind) String() string {
	switch k {
	case KindScan:
		return "SCAN"
	case KindSSID:
		return "SSID"
	case KindPSKPrompt:
		return "PSK_PROMPT"
	case KindPSK:
		return "PSK"
	case KindResult:
		return "RESULT"
	default:
		return "UNKNOWN"
	}
}

// EncodeScan renders message 1. Names are listed once each, sorted, with
// empty names dropped.
func EncodeScan(names []string) []byte {
	var b strings.Builder
	b.WriteString(ScanHeader)
	for _, name := range Distinct(names) {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	b.WriteByte(Terminator)
	return []byte(b.String())
}

// EncodeScanFailed renders message 1 for a failed scan.
func EncodeScanFailed() []byte {
	return []byte(ScanFailed)
}

// EncodePSKPrompt renders message 3.
func EncodePSKPrompt() []byte {
	return []byte(PSKPrompt)
}

// EncodeResult renders message 5. The value is sent verbatim.
func EncodeResult(value string) []byte {
	return []byte(ResultPrefix + value + string(Terminator))
}

// DecodeText decodes a client payload (messages 2 and 4).
func DecodeText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidText
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrEmptyPayload
	}
	return text, nil
}

// Distinct returns the non-empty names of the input without duplicates,
// sorted for display.
func Distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
