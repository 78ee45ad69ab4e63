package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/log"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Sessions         map[string]*SessionStats
	Outcomes         map[string]int
	BindFailures     int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single provisioning session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
	SSID       string
	FinalState string
	Result     string
}

// Outcome summarises how the session ended: the result value for a
// completed exchange, otherwise the final state.
func (s *SessionStats) Outcome() string {
	switch {
	case s.Result != "":
		return s.Result
	case s.FinalState != "":
		return s.FinalState
	default:
		return "INCOMPLETE"
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Sessions:         make(map[string]*SessionStats),
		Outcomes:         make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	for _, s := range stats.Sessions {
		stats.Outcomes[s.Outcome()]++
	}

	printStats(w, stats)
	return nil
}

func (stats *Stats) add(event log.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer]++
	stats.EventsByCategory[event.Category]++

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	if event.Error != nil {
		stats.Errors++
		if event.SessionID == "" && event.Error.Context == "bind" {
			stats.BindFailures++
		}
	}

	if event.SessionID == "" {
		return
	}
	s, ok := stats.Sessions[event.SessionID]
	if !ok {
		s = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		stats.Sessions[event.SessionID] = s
	}
	s.Events++
	if event.Timestamp.After(s.LastSeen) {
		s.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && s.RemoteAddr == "" {
		s.RemoteAddr = event.RemoteAddr
	}

	switch {
	case event.Message != nil && event.Message.Kind == wire.KindSSID:
		s.SSID = strings.TrimSpace(event.Message.Text)
	case event.Message != nil && event.Message.Kind == wire.KindResult:
		s.Result = strings.TrimSuffix(strings.TrimPrefix(event.Message.Text, wire.ResultPrefix), string(wire.Terminator))
	case event.StateChange != nil && event.StateChange.Entity == log.StateEntitySession:
		s.FinalState = event.StateChange.NewState
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== wifiprovd Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerSession, log.LayerWireless} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, s := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, s})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, si := range sessions {
			duration := si.stats.LastSeen.Sub(si.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(si.id), si.stats.Events, duration)
			if si.stats.RemoteAddr != "" {
				fmt.Fprintf(w, "           Remote: %s\n", si.stats.RemoteAddr)
			}
			if si.stats.SSID != "" {
				fmt.Fprintf(w, "           SSID: %s\n", si.stats.SSID)
			}
			fmt.Fprintf(w, "           Outcome: %s\n", si.stats.Outcome())
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Outcomes:")
		outcomes := make([]string, 0, len(stats.Outcomes))
		for o := range stats.Outcomes {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			fmt.Fprintf(w, "  %-18s %d\n", o+":", stats.Outcomes[o])
		}
	}

	if stats.BindFailures > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Bind Failures: %d\n", stats.BindFailures)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
