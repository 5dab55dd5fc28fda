package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Leptons1618/sia-proto/internal/cliui"
	"github.com/Leptons1618/sia-proto/internal/ipc"
)

func StatusCommand(ctx context.Context, args []string) error {
	fs := newFlagSet("status", args, statusUsage)

	var sock string
	var asJSON bool
	fs.StringVar(&sock, "sock", ipc.SockPath(), "daemon socket path (override: SIA_SOCK)")
	fs.BoolVar(&asJSON, "json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := ipc.Dial(ctx, sock)
	if err != nil {
		return err
	}
	defer client.Close()

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	renderStatus(os.Stdout, st)
	return nil
}

func renderStatus(w io.Writer, st ipc.StatusData) {
	fmt.Fprintf(w, "Status:      %s\n", st.Status)
	fmt.Fprintf(w, "Uptime:      %s\n", cliui.FormatUptime(st.UptimeSeconds))

	names := make([]string, 0, len(st.Collectors))
	for name := range st.Collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Collectors:")
	if len(names) == 0 {
		fmt.Fprintln(w, "  (no samples yet)")
	}
	for _, name := range names {
		cs := st.Collectors[name]
		fmt.Fprintf(w, "  %-8s %s (last sample %s)\n", name+":", cs.State, cliui.FormatUnix(cs.LastSampleTS))
	}

	fmt.Fprintln(w, "Open events:")
	fmt.Fprintf(w, "  critical: %d\n", st.Events.Critical)
	fmt.Fprintf(w, "  warning:  %d\n", st.Events.Warning)
	fmt.Fprintf(w, "  info:     %d\n", st.Events.Info)

	fmt.Fprintf(w, "Thresholds:  cpu %g/%g (sustained %d)  memory %g/%g\n",
		st.Thresholds.CPUWarning, st.Thresholds.CPUCritical, st.Thresholds.CPUSustainedCount,
		st.Thresholds.MemoryWarning, st.Thresholds.MemoryCritical)

	enrichLine := "unavailable"
	if st.Enrichment.Available {
		enrichLine = "available"
		if st.Enrichment.Model != "" {
			enrichLine = fmt.Sprintf("available (%s)", st.Enrichment.Model)
		}
	}
	fmt.Fprintf(w, "Enrichment:  %s\n", enrichLine)

	if st.DroppedEvents > 0 {
		fmt.Fprintf(w, "Dropped:     %d events lost to backpressure\n", st.DroppedEvents)
	}
	if st.StoreFailureStreak > 0 {
		fmt.Fprintf(w, "Store:       %d consecutive write failures\n", st.StoreFailureStreak)
	}
}

func statusUsage(w io.Writer, fs *flag.FlagSet) {
	prog := progName()
	fmt.Fprintf(w, "%s status: show daemon health and open-event counts\n\n", prog)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s status [flags]\n\n", prog)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s status\n", prog)
	fmt.Fprintf(w, "  %s status --json\n\n", prog)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
