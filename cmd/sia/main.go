package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Leptons1618/sia-proto/internal/cli"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	prog := filepath.Base(os.Args[0])
	if len(os.Args) < 2 {
		printRootHelp(os.Stderr, prog)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "status":
		args = normalizeSubcommandHelpArgs(args)
		err = cli.StatusCommand(ctx, args)
	case "list":
		args = normalizeSubcommandHelpArgs(args)
		err = cli.ListCommand(ctx, args)
	case "show":
		args = normalizeSubcommandHelpArgs(args)
		err = cli.ShowCommand(ctx, args)
	case "analyze":
		args = normalizeSubcommandHelpArgs(args)
		err = cli.AnalyzeCommand(ctx, args)
	case "help", "-h", "--help":
		return runHelp(ctx, prog, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printRootHelp(os.Stderr, prog)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func normalizeSubcommandHelpArgs(args []string) []string {
	// Support: `sia <subcommand> help`
	if len(args) > 0 && args[0] == "help" {
		return []string{"-h"}
	}
	return args
}

func runHelp(ctx context.Context, prog string, args []string) int {
	// `sia -h`, `sia help`
	if len(args) == 0 {
		printRootHelp(os.Stdout, prog)
		return 0
	}

	// `sia help <subcommand>`
	sub := args[0]
	switch sub {
	case "status":
		_ = cli.StatusCommand(ctx, []string{"-h"})
		return 0
	case "list":
		_ = cli.ListCommand(ctx, []string{"-h"})
		return 0
	case "show":
		_ = cli.ShowCommand(ctx, []string{"-h"})
		return 0
	case "analyze":
		_ = cli.AnalyzeCommand(ctx, []string{"-h"})
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", sub)
		printRootHelp(os.Stderr, prog)
		return 2
	}
}

func printRootHelp(w io.Writer, prog string) {
	fmt.Fprintf(w, "%s: query the sia host-monitoring daemon\n\n", prog)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s <command> [args]\n", prog)
	fmt.Fprintf(w, "  %s help [command]\n\n", prog)

	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status     Show daemon health, collector state, and open-event counts.")
	fmt.Fprintln(w, "  list       List recent events, newest first.")
	fmt.Fprintln(w, "  show       Display one event in full, including its snapshot.")
	fmt.Fprintln(w, "  analyze    Request a fresh model suggestion for an event.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s status\n", prog)
	fmt.Fprintf(w, "  %s list --limit 50\n", prog)
	fmt.Fprintf(w, "  %s show cpu_1716112345678\n", prog)
	fmt.Fprintf(w, "  %s analyze cpu_1716112345678\n\n", prog)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SIA_SOCK   siad socket path (default: /tmp/sia.sock)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Help:")
	fmt.Fprintf(w, "  %s -h\n", prog)
	fmt.Fprintf(w, "  %s <command> -h\n", prog)
	fmt.Fprintf(w, "  %s <command> help\n", prog)
}
