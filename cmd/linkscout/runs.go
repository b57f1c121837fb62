package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/spf13/cobra"
)

var runsFlags struct {
	topic  string
	level  string
	since  time.Duration
	limit  int
	format string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded discovery runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.topic, "topic", "", "only runs for this topic")
	f.StringVar(&runsFlags.level, "level", "", "only runs at this level")
	f.DurationVar(&runsFlags.since, "since", 0, "only runs newer than this, e.g. 24h")
	f.IntVar(&runsFlags.limit, "limit", 20, "maximum runs to list")
	f.StringVar(&runsFlags.format, "format", "text", "output format: text or json")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("context: run storage is disabled; set storage.backend")
	}
	defer store.Close()

	filter := storage.Filter{
		Topic: runsFlags.topic,
		Level: runsFlags.level,
		Limit: runsFlags.limit,
	}
	if runsFlags.since > 0 {
		since := time.Now().Add(-runsFlags.since)
		filter.Since = &since
	}

	records, err := store.Query(ctx, filter)
	if err != nil {
		return err
	}
	return writeRuns(cmd.OutOrStdout(), records, runsFlags.format)
}

func writeRuns(w io.Writer, records []*storage.RunRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tTOPIC\tLEVEL\tLINKS\tRERANKED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.Topic, r.Level, len(r.Links), r.Reranked)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("context: unknown format %q", format)
	}
}
