// Package cli is the kage command line: scan pages, browse scan history,
// diff runs and serve the HTTP API.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/engine"
	"github.com/raysh454/kage/internal/fetcher"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/report"
	"github.com/raysh454/kage/internal/rules"
	"github.com/raysh454/kage/internal/server"
	"github.com/raysh454/kage/internal/store"
)

var (
	// Scan options
	backend          string
	scanDepth        string
	workers          int
	excludeSelectors []string
	threshold        float64
	timeout          int

	// Output options
	outputFile string
	jsonOut    bool
	verbose    bool

	// Storage options
	storePath string
	noSave    bool

	// Serve options
	listenAddr string
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

// Execute runs the kage root command.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "kage",
		Short: "Dark pattern scanner for web pages",
		Long: `Kage scans web pages for dark patterns: manipulative interface designs
like confirmshaming, fake urgency, preselected add-ons and hidden costs.

Detection fuses two classifiers per element: a signature rule registry and
a feature-based heuristic scorer. Every detection reports the rules that
matched, the heuristic reasoning and remediation advice.`,
		Example: `  # Scan a live page
  kage scan https://shop.example.com/checkout

  # Scan a JS-heavy page with a headless browser
  kage scan https://shop.example.com/checkout --backend chromedp

  # Scan a local HTML file and export the report
  kage scan ./fixtures/checkout.html -o report.json

  # Compare two stored scans of the same page
  kage diff <base-scan-id> <head-scan-id>

  # Run the HTTP API
  kage serve --addr :8454`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&storePath, "store", "kage.db", "SQLite database for scan history")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newDiffCmd())

	return rootCmd.Execute()
}

func newLogger(component string) logging.Logger {
	if verbose {
		return logging.NewStdoutLogger(component)
	}
	return logging.Nop()
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url-or-file>",
		Short: "Scan a page for dark patterns",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if scanDepth != "" && !model.ScanDepth(scanDepth).Valid() {
				return fmt.Errorf("invalid scan depth %q (use full or surface)", scanDepth)
			}
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold must be within [0, 1]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "nethttp", "Renderer backend (nethttp, chromedp)")
	cmd.Flags().StringVar(&scanDepth, "depth", "full", "Scan depth (full, surface)")
	cmd.Flags().IntVarP(&workers, "workers", "t", 0, "Concurrent element analyzers (0 = sequential)")
	cmd.Flags().StringArrayVarP(&excludeSelectors, "exclude", "x", nil, "Selector whose matches are skipped. Can be used multiple times.")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.6, "Heuristic suspicion threshold (0.0-1.0)")
	cmd.Flags().IntVar(&timeout, "timeout", 60, "Scan timeout in seconds")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the JSON report to this file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw JSON report instead of the summary")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record the scan in the history database")

	return cmd
}

func runScan(ctx context.Context, target string) error {
	logger := newLogger("CLI")

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	html, sourceURL, err := loadDocument(ctx, target, logger)
	if err != nil {
		return err
	}

	view, err := docview.ParseHTML(html)
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}

	cfg := model.DefaultConfig()
	cfg.ScanDepth = model.ScanDepth(scanDepth)
	cfg.Workers = workers
	cfg.ExcludeSelectors = append(cfg.ExcludeSelectors, excludeSelectors...)

	eng := engine.New(view, rules.NewDefaultRegistry(logger), &cfg, logger)
	eng.SetSuspicionThreshold(threshold)

	if !jsonOut {
		color.Cyan("[*] Scanning %s", target)
	}

	rep, err := eng.ScanPage(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	rep.URL = sourceURL

	if !noSave {
		st, err := store.Open(storePath, logger)
		if err != nil {
			color.Yellow("[!] Scan history unavailable: %v", err)
		} else {
			defer st.Close()
			if id, err := st.SaveReport(ctx, rep); err != nil {
				color.Yellow("[!] Could not record scan: %v", err)
			} else if !jsonOut {
				color.White("    Scan recorded as %s", id)
			}
		}
	}

	if jsonOut {
		out, err := report.Export(rep)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printDetections(rep.Detections)
		printSummary(rep)
	}

	if outputFile != "" {
		out, err := report.Export(rep)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputFile, out, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		color.Green("\n[✓] Report saved to: %s", outputFile)
	}

	return nil
}

// loadDocument reads the target either from disk or through a renderer.
func loadDocument(ctx context.Context, target string, logger logging.Logger) (html, sourceURL string, err error) {
	if st, statErr := os.Stat(target); statErr == nil && !st.IsDir() {
		data, err := os.ReadFile(target)
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", target, err)
		}
		return string(data), "file://" + target, nil
	}

	fcfg := fetcher.DefaultConfig()
	fcfg.Backend = backend
	fcfg.Timeout = time.Duration(timeout) * time.Second

	renderer, err := fetcher.NewRenderer(fcfg, logger)
	if err != nil {
		return "", "", err
	}
	defer renderer.Close()

	html, err = renderer.Render(ctx, target)
	if err != nil {
		return "", "", err
	}
	return html, target, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP + WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.DefaultConfig()
			cfg.ListenAddr = listenAddr
			cfg.StorePath = storePath
			cfg.Fetch.Backend = backend
			cfg.Logger = logging.NewStdoutLogger("Server")

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			httpSrv := srv.HTTPServer()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				color.Yellow("\n[!] Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shutdownCtx)
			}()

			color.Cyan("[*] Kage API listening on %s", listenAddr)
			color.White("    Docs at http://localhost%s/docs/index.html", listenAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "addr", ":8454", "HTTP listen address")
	cmd.Flags().StringVar(&backend, "backend", "nethttp", "Renderer backend (nethttp, chromedp)")

	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the registered detection rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := rules.NewDefaultRegistry(logging.Nop())
			for _, r := range registry.Rules() {
				fmt.Printf("  %s  %s  %s\n",
					severityColored(string(r.Severity)),
					color.CyanString("%-28s", r.ID),
					r.Name,
				)
			}
			color.White("\n  %d rules registered", registry.Len())
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		urlOnly string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(storePath, newLogger("CLI"))
			if err != nil {
				return err
			}
			defer st.Close()

			var recs []store.ScanRecord
			if urlOnly != "" {
				recs, err = st.ListScansByURL(cmd.Context(), urlOnly, limit)
			} else {
				recs, err = st.ListScans(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				color.Yellow("[*] No recorded scans.")
				return nil
			}
			for _, rec := range recs {
				line := fmt.Sprintf("  %s  %s  %s", rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.URL)
				if rec.TotalDetections > 0 {
					color.Red("%s  (%d detections)", line, rec.TotalDetections)
				} else {
					color.Green("%s  (clean)", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max scans to list")
	cmd.Flags().StringVar(&urlOnly, "url", "", "Only scans of this URL")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <base-scan-id> <head-scan-id>",
		Short: "Compare two recorded scans",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(storePath, newLogger("CLI"))
			if err != nil {
				return err
			}
			defer st.Close()

			base, err := st.GetReport(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("base scan %s: %w", args[0], err)
			}
			head, err := st.GetReport(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("head scan %s: %w", args[1], err)
			}

			diff, err := report.Compare(base, head)
			if err != nil {
				return err
			}

			color.Cyan("[*] %d detections -> %d detections", diff.BaseTotal, diff.HeadTotal)
			for sev, delta := range diff.SeverityDeltas {
				sign := "+"
				if delta < 0 {
					sign = ""
				}
				color.White("    %s: %s%d", sev, sign, delta)
			}
			for _, ch := range diff.Changes {
				switch ch.Kind {
				case "detection_added":
					color.Red("  + %s <%s>", ch.Detection.Element.Path, ch.Detection.Element.Tag)
				case "detection_resolved":
					color.Green("  - %s <%s>", ch.Detection.Element.Path, ch.Detection.Element.Tag)
				}
			}
			if len(diff.Changes) == 0 {
				color.Green("[✓] No detection changes.")
			}
			return nil
		},
	}
}

// --- printing helpers ---

func printDetections(detections []model.Detection) {
	for i, d := range detections {
		fmt.Printf("\n%s Detection #%d\n", color.RedString("════════"), i+1)
		fmt.Printf("  Element:    <%s> %s\n", d.Element.Tag, d.Element.Path)
		if d.Element.TextExcerpt != "" {
			fmt.Printf("  Text:       %s\n", color.CyanString(d.Element.TextExcerpt))
		}
		fmt.Printf("  Severity:   %s\n", severityColored(string(d.Severity)))
		fmt.Printf("  Confidence: %.2f\n", d.Confidence)
		for _, m := range d.RuleMatches {
			fmt.Printf("  Rule:       %s (%s)\n", color.YellowString(m.RuleName), m.Category.DisplayName())
		}
		if d.Heuristic != nil && d.Heuristic.IsDarkPattern {
			fmt.Printf("  Heuristic:  %s\n", strings.Join(d.Heuristic.DetectedPatterns, ", "))
		}
		for _, rec := range d.Recommendations {
			fmt.Printf("  Fix:        %s\n", rec)
		}
	}
}

func printSummary(rep *model.ScanReport) {
	color.Yellow("\n──────────────── SCAN SUMMARY ────────────────")
	color.White("  Elements analyzed:  %d", rep.TotalElements)
	color.White("  Duration:           %s", rep.Elapsed)

	if rep.Summary.TotalDetections > 0 {
		color.Red("  Dark patterns:      %d FOUND", rep.Summary.TotalDetections)
	} else {
		color.Green("  Dark patterns:      0 (clean)")
	}

	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		if n := rep.Summary.BySeverity[sev]; n > 0 {
			color.White("    %s: %d", severityColored(string(sev)), n)
		}
	}

	if len(rep.Summary.TopIssues) > 0 {
		color.Yellow("\n  Top issues:")
		for _, issue := range rep.Summary.TopIssues {
			color.White("    %-22s %d", issue.Name, issue.Count)
		}
	}
	color.Yellow("──────────────────────────────────────────────")
}

func severityColored(severity string) string {
	switch strings.ToLower(severity) {
	case "high":
		return color.New(color.FgRed, color.Bold).Sprint(severity)
	case "medium":
		return color.YellowString(severity)
	case "low":
		return color.CyanString(severity)
	default:
		return severity
	}
}
