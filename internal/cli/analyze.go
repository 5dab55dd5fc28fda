package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Leptons1618/sia-proto/internal/ipc"
)

func AnalyzeCommand(ctx context.Context, args []string) error {
	fs := newFlagSet("analyze", args, analyzeUsage)

	var sock string
	var asJSON bool
	var timeoutSeconds int
	fs.StringVar(&sock, "sock", ipc.SockPath(), "daemon socket path (override: SIA_SOCK)")
	fs.BoolVar(&asJSON, "json", false, "emit JSON")
	fs.IntVar(&timeoutSeconds, "timeout", 60, "seconds to wait for the model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("analyze requires exactly one <event-id> argument")
	}
	eventID := fs.Arg(0)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	client, err := ipc.Dial(ctx, sock)
	if err != nil {
		return err
	}
	defer client.Close()

	ad, err := client.Analyze(ctx, eventID)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ad)
	}
	fmt.Fprintf(os.Stdout, "Event:  %s\n", ad.EventID)
	if ad.Suggestion.Model != "" {
		fmt.Fprintf(os.Stdout, "Model:  %s\n\n", ad.Suggestion.Model)
	}
	fmt.Fprintln(os.Stdout, ad.Suggestion.Analysis)
	return nil
}

func analyzeUsage(w io.Writer, fs *flag.FlagSet) {
	prog := progName()
	fmt.Fprintf(w, "%s analyze: request a fresh model suggestion for an event\n\n", prog)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s analyze [flags] <event-id>\n\n", prog)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s analyze mem_1716112345678\n\n", prog)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
