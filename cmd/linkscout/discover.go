package main

import (
	"fmt"
	"io"
	"time"

	"github.com/FranksOps/linkscout/internal/discovery"
	"github.com/FranksOps/linkscout/internal/report"
	"github.com/spf13/cobra"
)

var discoverFlags struct {
	level        string
	maxLinks     int
	maxResults   int
	perHostCap   int
	allowPaywall bool
	rerank       bool
	deadline     time.Duration
	format       string
}

var discoverCmd = &cobra.Command{
	Use:   "discover [topic]",
	Short: "Find the best system design links for a topic",
	Long: `Runs one discovery and prints the ranked links.

Example:
  linkscout discover "url shortener" --level lld --rerank --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.StringVar(&discoverFlags.level, "level", "HLD", "design level: HLD or LLD")
	f.IntVar(&discoverFlags.maxLinks, "max-links", 0, "number of links to return (default from config)")
	f.IntVar(&discoverFlags.maxResults, "max-results", 0, "search results requested per query (default from config)")
	f.IntVar(&discoverFlags.perHostCap, "per-host-cap", 0, "links allowed from one host (default from config)")
	f.BoolVar(&discoverFlags.allowPaywall, "allow-paywall", false, "keep paywalled hosts and pages")
	f.BoolVar(&discoverFlags.rerank, "rerank", false, "fetch top candidates and rerank by page content")
	f.DurationVar(&discoverFlags.deadline, "deadline", 0, "overall time budget (default from config)")
	f.StringVar(&discoverFlags.format, "format", "urls", "output format: urls, text, json or html")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := defaultRequest(cfg)
	req.Topic = args[0]
	req.Level = discovery.Level(discoverFlags.level)

	flags := cmd.Flags()
	if flags.Changed("max-links") {
		req.MaxLinks = discoverFlags.maxLinks
	}
	if flags.Changed("max-results") {
		req.MaxResultsPerQuery = discoverFlags.maxResults
	}
	if flags.Changed("per-host-cap") {
		req.PerHostCap = discoverFlags.perHostCap
	}
	if flags.Changed("allow-paywall") {
		req.AllowPaywall = discoverFlags.allowPaywall
	}
	if flags.Changed("rerank") {
		req.EnableRerank = discoverFlags.rerank
	}
	if flags.Changed("deadline") {
		req.Deadline = discoverFlags.deadline
	}

	run, err := a.discoverer.Run(ctx, req)
	if err != nil {
		return err
	}
	return writeRun(cmd.OutOrStdout(), run, discoverFlags.format)
}

func writeRun(w io.Writer, run *discovery.Run, format string) error {
	switch format {
	case "urls":
		for _, u := range run.URLs() {
			if _, err := fmt.Fprintln(w, u); err != nil {
				return err
			}
		}
		return nil
	case "text":
		return report.WriteText(w, report.Summarize(run.Record()))
	case "json":
		return report.WriteJSON(w, report.Summarize(run.Record()))
	case "html":
		return report.WriteHTML(w, report.Summarize(run.Record()))
	default:
		return fmt.Errorf("context: unknown format %q", format)
	}
}
