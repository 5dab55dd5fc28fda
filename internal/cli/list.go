package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Leptons1618/sia-proto/internal/cliui"
	"github.com/Leptons1618/sia-proto/internal/ipc"
)

func ListCommand(ctx context.Context, args []string) error {
	fs := newFlagSet("list", args, listUsage)

	var sock string
	var limit int
	var asJSON bool
	fs.StringVar(&sock, "sock", ipc.SockPath(), "daemon socket path (override: SIA_SOCK)")
	fs.IntVar(&limit, "limit", 20, "maximum number of events")
	fs.BoolVar(&asJSON, "json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := ipc.Dial(ctx, sock)
	if err != nil {
		return err
	}
	defer client.Close()

	ld, err := client.List(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ld)
	}
	renderList(os.Stdout, ld)
	return nil
}

func renderList(w io.Writer, ld ipc.ListData) {
	if len(ld.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	cols := []cliui.Column{
		{Name: "EVENT ID", MaxWidth: 28},
		{Name: "TIME"},
		{Name: "SEVERITY"},
		{Name: "TYPE", MaxWidth: 16},
		{Name: "STATUS"},
	}
	rows := make([][]string, 0, len(ld.Events))
	for _, ev := range ld.Events {
		rows = append(rows, []string{
			ev.EventID,
			cliui.FormatUnix(ev.TS),
			ev.Severity,
			ev.Type,
			ev.Status,
		})
	}
	cliui.RenderTable(w, cols, rows)
}

func listUsage(w io.Writer, fs *flag.FlagSet) {
	prog := progName()
	fmt.Fprintf(w, "%s list: list recent events, newest first\n\n", prog)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s list [flags]\n\n", prog)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s list\n", prog)
	fmt.Fprintf(w, "  %s list --limit 50\n\n", prog)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
