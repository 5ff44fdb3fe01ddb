package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/correlator-io/secdash/internal/analytics"
	"github.com/correlator-io/secdash/internal/dataset"
	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/export"
	"github.com/correlator-io/secdash/internal/views"
)

const defaultPreviewRows = 20

var errInvalidFlag = errors.New("invalid flag value")

type (
	// app carries state shared by every subcommand.
	app struct {
		now        func() time.Time
		logger     *slog.Logger
		datasetDir string
		verbose    bool
		noColor    bool
	}

	// viewOptions are the flags of one dataset subcommand. filters is keyed by schema dimension.
	viewOptions struct {
		filters  map[string]*string
		window   string
		search   string
		sort     string
		dir      string
		out      string
		all      bool
		preview  bool
		pageSize int
	}
)

// newRootCmd builds the command tree. now is the reference time for relative dataset ages,
// time windows and export filenames.
func newRootCmd(now func() time.Time) *cobra.Command {
	a := &app{now: now}

	root := &cobra.Command{
		Use:   "secdash-export",
		Short: "Export SECDASH dashboard tables as CSV",
		Long: `Export the incidents, high-risk users and top risks tables, or the analytics summary,
as <dataset>-<YYYY-MM-DD>.csv files.

Filters, search, time window and sort behave exactly like the dashboard. By default the
filtered rows are exported; --all exports every row in the current sort order.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if a.noColor {
				color.NoColor = true
			}

			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}

			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	root.PersistentFlags().StringVar(&a.datasetDir, "dataset-dir", "",
		"Directory of YAML dataset overrides (default: $"+dataset.DatasetDirEnvVar+" or embedded data)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newViewCmd(a, views.IncidentsView(), "inc",
			func(c *dataset.Catalog) []dataset.Incident { return c.Incidents }),
		newViewCmd(a, views.HighRiskUsersView(), "users",
			func(c *dataset.Catalog) []dataset.User { return c.Users }),
		newViewCmd(a, views.TopRisksView(), "risks",
			func(c *dataset.Catalog) []dataset.Risk { return c.Risks }),
		newSummaryCmd(a),
	)

	return root
}

// newViewCmd creates the subcommand for one dashboard table. Filter flags are derived from the
// view's dimensions, so "risk_level" becomes --risk-level.
func newViewCmd[T any](a *app, view *views.View[T], alias string, records func(*dataset.Catalog) []T) *cobra.Command {
	opts := &viewOptions{filters: make(map[string]*string)}

	cmd := &cobra.Command{
		Use:     view.Name(),
		Aliases: []string{alias},
		Short:   "Export the " + view.Title() + " table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runView(cmd, a, view, records, opts)
		},
	}

	schema := view.Schema()

	for _, dimension := range slices.Sorted(maps.Keys(schema.Dimensions)) {
		value := new(string)
		opts.filters[dimension] = value
		cmd.Flags().StringVar(value, strings.ReplaceAll(dimension, "_", "-"), "",
			"Only rows whose "+dimension+" equals this value (\"all\" disables)")
	}

	cmd.Flags().StringVar(&opts.window, "window", "", "Time window: "+strings.Join(windowNames(), ", "))
	cmd.Flags().StringVarP(&opts.search, "q", "q", "", "Case-insensitive free-text search")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort column: "+sortColumnsHelp(schema))
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Sort direction: asc or desc")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Export (or preview) every row, ignoring filters")
	addOutputFlags(cmd, &opts.out, &opts.preview)
	cmd.Flags().IntVar(&opts.pageSize, "rows", defaultPreviewRows, "Rows shown by --print")

	return cmd
}

// windowNames lists the accepted --window values: the sentinel plus every named window.
func windowNames() []string {
	return append([]string{dataview.SentinelAll}, dataview.WindowNames()...)
}

// sortColumnsHelp lists sort columns with their ordering kind, e.g. "severity (rank)".
func sortColumnsHelp[T any](schema dataview.Schema[T]) string {
	names := slices.Sorted(maps.Keys(schema.Columns))

	described := make([]string, 0, len(names))
	for _, name := range names {
		described = append(described, name+" ("+schema.Columns[name].Kind.String()+")")
	}

	return strings.Join(described, ", ")
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		out     string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Export the analytics summary report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.loadCatalog()
			if err != nil {
				return err
			}

			now := a.now()
			summary := analytics.Summarize(catalog, now)

			if preview {
				header, rows, err := export.Table(summary.Metrics(), analytics.MetricColumns())
				if err != nil {
					return fmt.Errorf("failed to render summary: %w", err)
				}

				renderTable(cmd.OutOrStdout(), "Analytics Summary", header, rows)

				return nil
			}

			payload, err := summary.Export()
			if err != nil {
				return fmt.Errorf("failed to serialize summary: %w", err)
			}

			return a.save(cmd.OutOrStdout(), analytics.DatasetLabel, out, payload, len(summary.Metrics()))
		},
	}

	addOutputFlags(cmd, &out, &preview)

	return cmd
}

func addOutputFlags(cmd *cobra.Command, out *string, preview *bool) {
	cmd.Flags().StringVarP(out, "out", "o", ".", "Directory the CSV file is written to")
	cmd.Flags().BoolVar(preview, "print", false, "Print a preview table instead of writing a file")
}

func runView[T any](
	cmd *cobra.Command,
	a *app,
	view *views.View[T],
	records func(*dataset.Catalog) []T,
	opts *viewOptions,
) error {
	state, err := buildState(opts, view, a.now())
	if err != nil {
		return err
	}

	catalog, err := a.loadCatalog()
	if err != nil {
		return err
	}

	a.logger.Debug("Running view query",
		slog.String("view", view.Name()),
		slog.Any("filters", state.Filters),
		slog.String("sort", state.Sort.Column),
		slog.String("direction", string(state.Sort.Direction)),
		slog.Bool("all", opts.all),
	)

	scope := views.ScopeFiltered
	if opts.all {
		scope = views.ScopeAll
	}

	if opts.preview {
		if opts.pageSize <= 0 {
			return fmt.Errorf("%w: --rows must be positive, got %d", errInvalidFlag, opts.pageSize)
		}

		state, err = views.ApplyScope(state, scope)
		if err != nil {
			return fmt.Errorf("failed to scope %s: %w", view.Name(), err)
		}

		state.Page = dataview.Page{Index: 1, Size: opts.pageSize}

		result, err := view.Query(records(catalog), state)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", view.Name(), err)
		}

		header, rows, err := export.Table(result.Items, view.Columns())
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", view.Name(), err)
		}

		renderTable(cmd.OutOrStdout(), view.Title(), header, rows)
		renderFooter(cmd.OutOrStdout(), result)

		return nil
	}

	selected, err := view.Select(records(catalog), state, scope)
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", view.Name(), err)
	}

	payload, err := export.Serialize(selected, view.Columns())
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", view.Name(), err)
	}

	return a.save(cmd.OutOrStdout(), view.Name(), opts.out, payload, len(selected))
}

// buildState validates the flags against view and turns them into engine state. Unlike the
// engine, an unknown sort column or window is an error here rather than a no-op.
func buildState[T any](opts *viewOptions, view *views.View[T], now time.Time) (dataview.State, error) {
	filters := dataview.Filters{}

	for dimension, value := range opts.filters {
		if v := strings.TrimSpace(*value); v != "" {
			filters[dimension] = v
		}
	}

	if search := strings.TrimSpace(opts.search); search != "" {
		filters[dataview.DimSearch] = search
	}

	if window := strings.ToLower(strings.TrimSpace(opts.window)); window != "" {
		if !slices.Contains(windowNames(), window) {
			return dataview.State{}, fmt.Errorf("%w: --window %q", errInvalidFlag, opts.window)
		}

		filters[dataview.DimWindow] = window
	}

	direction, err := dataview.ParseDirection(strings.ToLower(strings.TrimSpace(opts.dir)))
	if err != nil {
		return dataview.State{}, fmt.Errorf("%w: --dir: %w", errInvalidFlag, err)
	}

	sort := dataview.Sort{Column: strings.TrimSpace(opts.sort), Direction: direction}
	if err := dataview.ValidateSort(sort, view.Schema()); err != nil {
		return dataview.State{}, fmt.Errorf("%w: --sort: %w", errInvalidFlag, err)
	}

	return dataview.State{Filters: filters, Sort: view.ResolveSort(sort), Now: now}, nil
}

func (a *app) loadCatalog() (*dataset.Catalog, error) {
	now := a.now()

	var (
		catalog *dataset.Catalog
		err     error
	)

	if a.datasetDir != "" {
		catalog, err = dataset.LoadDir(a.datasetDir, now)
	} else {
		catalog, err = dataset.LoadFromEnv(now)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	return catalog, nil
}

func (a *app) save(w io.Writer, label, dir, payload string, records int) error {
	filename, err := export.Filename(label, a.now())
	if err != nil {
		return fmt.Errorf("failed to name export: %w", err)
	}

	path, err := export.SaveFile(dir, filename, payload)
	if err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}

	a.logger.Info("Export written",
		slog.String("path", path),
		slog.Int("records", records),
		slog.Int("bytes", len(payload)),
	)

	successColor.Fprintf(w, "✓ Wrote %d records to %s\n", records, path)

	return nil
}
