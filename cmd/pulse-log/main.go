// Command pulse-log inspects protocol log files written by the client.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pulse-protocol/pulse-go/cmd/pulse-log/commands"
)

const usage = `pulse-log - inspect Pulse protocol log files

Usage:
  pulse-log view [-direction in|out] [-category frame|state|keepalive|error] [-conn ID] <file>
  pulse-log export [-format jsonl|csv] [-output FILE] <file>
  pulse-log stats <file>

Commands:
  view    Print events in human-readable form
  export  Convert the log to JSONL or CSV
  stats   Print aggregate statistics
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "view":
		err = runView(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse-log: %v\n", err)
		os.Exit(1)
	}
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	direction := fs.String("direction", "", "filter by direction (in, out, none)")
	category := fs.String("category", "", "filter by category (frame, state, keepalive, error)")
	connID := fs.String("conn", "", "filter by connection ID")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("view requires exactly one log file argument")
	}

	filter := commands.ViewFilter{ConnID: *connID}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}

	return commands.RunView(fs.Arg(0), filter, os.Stdout)
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "output format (jsonl, csv)")
	output := fs.String("output", "", "output file (default stdout)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("export requires exactly one log file argument")
	}

	return commands.RunExport(fs.Arg(0), *format, *output)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("stats requires exactly one log file argument")
	}

	return commands.RunStats(fs.Arg(0), os.Stdout)
}
