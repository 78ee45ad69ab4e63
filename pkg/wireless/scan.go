package wireless

import (
	"regexp"
	"strings"
)

var essidPattern = regexp.MustCompile(`ESSID:"([^"]*)"`)

// ParseESSIDs extracts every quoted ESSID field from iwlist scan output.
// Hidden networks, reported as an empty name or a run of \x00 escapes,
// are returned as empty strings.
func ParseESSIDs(raw []byte) []string {
	matches := essidPattern.FindAllSubmatch(raw, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := string(m[1])
		if strings.ReplaceAll(name, `\x00`, "") == "" {
			name = ""
		}
		names = append(names, name)
	}
	return names
}
