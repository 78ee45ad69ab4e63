package wireless

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// WPA passphrase derivation parameters (IEEE 802.11i).
const (
	pskIterations = 4096
	pskKeyLen     = 32

	minPassphraseLen = 8
	maxPassphraseLen = 63
)

// RenderSupplicantConfig builds the complete wpa_supplicant configuration
// for a single network.
func RenderSupplicantConfig(cfg Config, creds Credentials) []byte {
	var b strings.Builder
	b.WriteString("country=" + cfg.Country + "\n")
	b.WriteString("ctrl_interface=" + cfg.CtrlInterface + "\n")
	b.WriteString("update_config=1\n")
	b.WriteString("\n")
	b.WriteString("network={\n")
	b.WriteString("    ssid=" + ssidValue(creds.SSID) + "\n")
	b.WriteString("    psk=" + pskValue(creds, cfg.HashPassphrase) + "\n")
	b.WriteString("}\n")
	return []byte(b.String())
}

// DerivePSK returns the hex-encoded 256-bit PSK for a passphrase, as
// wpa_passphrase computes it.
func DerivePSK(ssid, passphrase string) string {
	key := pbkdf2.Key([]byte(passphrase), []byte(ssid), pskIterations, pskKeyLen, sha1.New)
	return hex.EncodeToString(key)
}

// ssidValue quotes printable names and falls back to the unquoted hex form
// for anything the quoted syntax cannot carry.
func ssidValue(ssid string) string {
	if quotable(ssid) {
		return `"` + ssid + `"`
	}
	return hex.EncodeToString([]byte(ssid))
}

// pskValue renders the psk line. wpa_supplicant takes a quoted passphrase
// literally up to the last quote on the line, so the passphrase is written
// without escaping. Control characters cannot survive the line format and
// always go through derivation.
func pskValue(creds Credentials, hash bool) string {
	if isRawPSK(creds.PSK) {
		return strings.ToLower(creds.PSK)
	}
	n := len(creds.PSK)
	if hasControl(creds.PSK) || (hash && n >= minPassphraseLen && n <= maxPassphraseLen) {
		return DerivePSK(creds.SSID, creds.PSK)
	}
	return `"` + creds.PSK + `"`
}

// isRawPSK reports whether s is already a 64 hex digit PSK.
func isRawPSK(s string) bool {
	if len(s) != 2*pskKeyLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

func quotable(s string) bool {
	for _, r := range s {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
