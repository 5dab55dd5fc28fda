package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Leptons1618/sia-proto/internal/cliui"
	"github.com/Leptons1618/sia-proto/internal/ipc"
)

func ShowCommand(ctx context.Context, args []string) error {
	fs := newFlagSet("show", args, showUsage)

	var sock string
	var asJSON bool
	fs.StringVar(&sock, "sock", ipc.SockPath(), "daemon socket path (override: SIA_SOCK)")
	fs.BoolVar(&asJSON, "json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("show requires exactly one <event-id> argument")
	}
	eventID := fs.Arg(0)

	client, err := ipc.Dial(ctx, sock)
	if err != nil {
		return err
	}
	defer client.Close()

	ev, err := client.Show(ctx, eventID)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	}
	renderEvent(os.Stdout, ev)
	return nil
}

func renderEvent(w io.Writer, ev ipc.EventDetail) {
	fmt.Fprintf(w, "Event ID:    %s\n", ev.EventID)
	fmt.Fprintf(w, "Time:        %s\n", cliui.FormatUnix(ev.TS))
	fmt.Fprintf(w, "Severity:    %s\n", ev.Severity)
	fmt.Fprintf(w, "Type:        %s\n", ev.Type)
	fmt.Fprintf(w, "Service:     %s\n", ev.ServiceID)
	if ev.Fingerprint != "" {
		fmt.Fprintf(w, "Fingerprint: %s\n", ev.Fingerprint)
	}
	fmt.Fprintf(w, "Status:      %s\n", ev.Status)
	if len(ev.Snapshot) > 0 {
		fmt.Fprintln(w, "Snapshot:")
		var buf bytes.Buffer
		if err := json.Indent(&buf, ev.Snapshot, "  ", "  "); err != nil {
			fmt.Fprintf(w, "  %s\n", ev.Snapshot)
			return
		}
		fmt.Fprintf(w, "  %s\n", buf.String())
	}
}

func showUsage(w io.Writer, fs *flag.FlagSet) {
	prog := progName()
	fmt.Fprintf(w, "%s show: display one event in full, including its snapshot\n\n", prog)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s show [flags] <event-id>\n\n", prog)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s show cpu_1716112345678\n\n", prog)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
