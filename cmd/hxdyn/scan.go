package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pthm/hxdyn"
	"github.com/pthm/hxdyn/lib/dom"
	"github.com/pthm/hxdyn/lib/eventloop"
	"github.com/pthm/hxdyn/lib/transport"
)

func scanCmd(g *globalFlags) *cobra.Command {
	var (
		base          string
		dir           string
		retries       int
		showRedirects bool
		sanitize      bool
		debug         bool
		metricsFile   string
	)

	cmd := &cobra.Command{
		Use:   "scan <page.html>",
		Short: "Load a page headlessly and print the result",
		Long: `Scan parses a page, binds its dynamic content areas, loads them until
nothing is pending and prints the resulting HTML. Fragments are read from
--dir, or fetched from --base when it is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(g.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("base") {
				cfg.Scan.Base = base
			}
			if flags.Changed("dir") {
				cfg.Scan.Dir = dir
			}
			if flags.Changed("retries") {
				cfg.Scan.AllowedRetries = retries
			}
			if flags.Changed("show-redirects") {
				cfg.Scan.ShowRedirects = showRedirects
			}
			if flags.Changed("sanitize") {
				cfg.Scan.Sanitize = sanitize
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := dom.Parse(f)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			report, err := runScan(cmd.Context(), doc, cfg.Scan, debug, slog.Default(), hxdyn.NewMetrics(reg))
			if err != nil {
				return err
			}
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if debug {
				if err := writeBindings(out, doc); err != nil {
					return err
				}
			} else if err := doc.Render(out); err != nil {
				return err
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Fetch fragments from this base URL")
	cmd.Flags().StringVar(&dir, "dir", "", "Read fragments from this directory (default .)")
	cmd.Flags().IntVar(&retries, "retries", hxdyn.DefaultAllowedRetries, "Retries per content area after an unacceptable response")
	cmd.Flags().BoolVar(&showRedirects, "show-redirects", false, "Accept redirected responses")
	cmd.Flags().BoolVar(&sanitize, "sanitize", false, "Sanitize fragments before inserting them")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print the bound components instead of the page")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write scan metrics to this file in Prometheus text format")
	return cmd
}

// scanReport collects the content areas that ended in the error state.
type scanReport struct {
	Failed []hxdyn.FailedDetail
}

// Err joins the failures, or returns nil.
func (r *scanReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = fmt.Errorf("%s: %w", f.Path, f.Cause)
	}
	return fmt.Errorf("%d content areas failed: %w", len(r.Failed), errors.Join(errs...))
}

func newFetcher(cfg ScanConfig) (transport.Fetcher, error) {
	if cfg.Base != "" {
		return transport.NewHTTPFetcher(cfg.Base, transport.WithTimeout(cfg.Timeout))
	}
	return transport.NewFSFetcher(os.DirFS(cfg.Dir)), nil
}

// runScan binds the content areas of doc and drains the loop. metrics may
// be nil.
func runScan(ctx context.Context, doc *dom.Document, cfg ScanConfig, debug bool, logger *slog.Logger, metrics *hxdyn.Metrics) (*scanReport, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	loop := eventloop.New()
	defer loop.Close()
	bus := hxdyn.NewBus()

	regOpts := []hxdyn.Option{hxdyn.WithBus(bus), hxdyn.WithLogger(logger), hxdyn.WithMetrics(metrics)}
	if debug {
		regOpts = append(regOpts, hxdyn.WithDebug())
	}
	reg := hxdyn.NewRegistry(regOpts...)
	defer reg.Close()

	areaOpts := []hxdyn.ContentOption{
		hxdyn.WithContentBus(bus),
		hxdyn.WithContentLogger(logger),
		hxdyn.WithContentMetrics(metrics),
		hxdyn.WithContext(ctx),
		hxdyn.WithAllowedRetries(cfg.AllowedRetries),
		hxdyn.WithShowRedirects(cfg.ShowRedirects),
	}
	if cfg.Sanitize {
		areaOpts = append(areaOpts, hxdyn.WithSanitizer(bluemonday.UGCPolicy()))
	}
	if cfg.LatestOnly {
		areaOpts = append(areaOpts, hxdyn.WithLatestResponseOnly())
	}

	report := &scanReport{}
	reg.RegisterType(hxdyn.SelectorDynamicContentArea, "ContentArea", func(n *dom.Node) hxdyn.Component {
		area := hxdyn.NewContentArea(n, loop, fetcher, areaOpts...)
		// Attached before Register so a failure during the first load counts.
		area.Listen(n, hxdyn.EventContentFailed, func(e *dom.Event) {
			if d, ok := e.Detail.(hxdyn.FailedDetail); ok {
				report.Failed = append(report.Failed, d)
			}
		})
		return area
	})

	if err := reg.Scan(doc.Root()); err != nil {
		return nil, err
	}
	loop.Flush()
	return report, nil
}

// writeBindings prints one row per bound node.
func writeBindings(w io.Writer, doc *dom.Document) error {
	nodes, err := doc.QuerySelectorAll("[data-" + hxdyn.DataRegistered + "]")
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tTYPE\tPATH\tCLASS")
	for _, n := range nodes {
		typ, _ := n.Data(hxdyn.DataRegisteredAs)
		path, _ := n.Data(hxdyn.DataPath)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Tag(), orDash(typ), orDash(path), orDash(strings.Join(n.Classes(), " ")))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
