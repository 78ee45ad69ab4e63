package discovery

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// TXTRecordMap represents TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeProvisionedTXT builds the TXT record of a provisioned device.
func EncodeProvisionedTXT(info *ProvisionedInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeySSID:    info.SSID,
		TXTKeyAddress: info.Address,
		TXTKeyVersion: ProtocolVersion,
	}
}

// DecodeProvisionedTXT parses a provisioned device TXT record into svc.
func DecodeProvisionedTXT(txt TXTRecordMap, svc *ProvisionedService) error {
	ssid, ok := txt[TXTKeySSID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeySSID)
	}
	svc.SSID = ssid
	svc.Address = txt[TXTKeyAddress]
	svc.Version = txt[TXTKeyVersion]
	return nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings sorted
// by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: instance name is not valid UTF-8", ErrInvalidInstanceName)
	}
	return nil
}

// truncateLabel shortens s to at most n bytes without splitting a rune.
func truncateLabel(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
