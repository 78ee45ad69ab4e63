package commands

import (
	"fmt"
	"io"

	"github.com/rpiwc/wifiprov-go/pkg/log"
)

// FilterOptions holds the filter flags shared by view and filter.
type FilterOptions struct {
	Output    string
	SessionID string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// BuildFilter converts flag values into a log.Filter.
func BuildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{SessionID: opts.SessionID}

	if opts.TimeStart != "" {
		t, err := parseTime("time-start", opts.TimeStart)
		if err != nil {
			return log.Filter{}, err
		}
		filter.TimeStart = t
	}
	if opts.TimeEnd != "" {
		t, err := parseTime("time-end", opts.TimeEnd)
		if err != nil {
			return log.Filter{}, err
		}
		filter.TimeEnd = t
	}
	if opts.Layer != "" {
		l, err := parseLayer(opts.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		d, err := parseDirection(opts.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := parseCategory(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunFilter writes the events of path that match opts to opts.Output and
// returns how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := BuildFilter(opts)
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}
	return count, nil
}
