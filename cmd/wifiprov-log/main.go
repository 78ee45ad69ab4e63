// Command wifiprov-log is a tool for viewing and analyzing wifiprovd
// protocol capture files.
//
// Capture files are written by wifiprovd when started with the
// -protocol-log flag (or protocol_log in its configuration file).
//
// Usage:
//
//	wifiprov-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON or CSV format
//	filter   Filter capture file and write to new file
//	stats    Show per-session statistics
//
// Examples:
//
//	# View all events
//	wifiprov-log view /var/log/wifiprov.plog
//
//	# View only protocol messages sent to clients
//	wifiprov-log view --category message --direction out /var/log/wifiprov.plog
//
//	# Extract one session
//	wifiprov-log filter --session 3f2a9c1e-... -o session.plog /var/log/wifiprov.plog
//
//	# Show outcomes of all sessions
//	wifiprov-log stats /var/log/wifiprov.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rpiwc/wifiprov-go/cmd/wifiprov-log/commands"
)

const usage = `wifiprov-log - wifiprovd Protocol Capture Analyzer

Usage:
  wifiprov-log <command> [flags] <file.plog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSON or CSV format
  filter   Filter capture file and write to new file
  stats    Show per-session statistics

Use "wifiprov-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a subcommand flag set with a usage header.
func newFlagSet(name, synopsis, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "wifiprov-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, synopsis, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

// pathArg returns the single positional argument or exits.
func pathArg(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View capture file in human-readable format", "wifiprov-log view [flags] <file.plog>")
	layer := fs.String("layer", "", "Filter by layer (transport, session, wireless)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error)")
	session := fs.String("session", "", "Filter by session ID")
	path := pathArg(fs, args)

	filter, err := commands.BuildFilter(commands.FilterOptions{
		SessionID: *session,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	})
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export capture file to JSON or CSV format", "wifiprov-log export [flags] <file.plog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path := pathArg(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter capture file and write to new file", "wifiprov-log filter [flags] <file.plog>")
	output := fs.String("o", "", "Output file (required)")
	session := fs.String("session", "", "Filter by session ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, session, wireless)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error)")
	path := pathArg(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		SessionID: *session,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	}
	count, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show per-session statistics", "wifiprov-log stats <file.plog>")
	path := pathArg(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
