// Command cubesim-log is a tool for viewing and analyzing cubesim radio
// trace files.
//
// Trace files are written by cubesim when run with -trace-file.
//
// Usage:
//
//	cubesim-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON or CSV format
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events as RADIO lines
//	cubesim-log view sim.rlog
//
//	# View timeouts in detail
//	cubesim-log view -report timeout -detail sim.rlog
//
//	# Export to CSV
//	cubesim-log export -format csv -o sim.csv sim.rlog
//
//	# Keep only traffic to one cube
//	cubesim-log filter -cube 2 -o cube2.rlog sim.rlog
//
//	# Show statistics
//	cubesim-log stats sim.rlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cubesim/cubesim-go/cmd/cubesim-log/commands"
)

const usage = `cubesim-log - cubesim Radio Trace Analyzer

Usage:
  cubesim-log <command> [flags] <file.rlog>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON or CSV format
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "cubesim-log <command> -help" for more information about a command.
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

// filterFlags registers the event selection flags shared by view and filter.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.RunID, "run-id", "", "Filter by run ID")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (radio, state, flash)")
	fs.StringVar(&opts.Cube, "cube", "", "Filter radio attempts by cube index")
	fs.StringVar(&opts.Dest, "dest", "", "Filter radio attempts by address (e.g. 02/e7e7e7e700)")
	fs.StringVar(&opts.Report, "report", "", "Filter radio attempts by report (none, ack-packet, ack-empty, timeout)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by simulated start time (e.g. 250ms)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by simulated end time (e.g. 2s)")
	return opts
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cubesim-log view - View trace file in human-readable format

Usage:
  cubesim-log view [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	opts := filterFlags(fs)
	detail := fs.Bool("detail", false, "Print every event on several lines")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), filter, *detail, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cubesim-log export - Export trace file to JSON or CSV format

Usage:
  cubesim-log export [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cubesim-log filter - Filter trace file and write to new file

Usage:
  cubesim-log filter [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	opts := filterFlags(fs)
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(fs.Arg(0), *opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cubesim-log stats - Show statistics about the trace file

Usage:
  cubesim-log stats <file.rlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
