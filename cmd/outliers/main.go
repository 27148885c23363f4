// Command outliers removes statistical outliers from an .asc point cloud.
//
// Each point is scored by the mean squared distance to its nearest
// neighbours. The highest-scoring points are written to <name>_removed.asc
// and the rest to <name>_kept.asc, both with the score as an extra column.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pointclean/internal/config"
	"github.com/banshee-data/pointclean/internal/geom"
	"github.com/banshee-data/pointclean/internal/monitor"
	"github.com/banshee-data/pointclean/internal/neighbors"
	"github.com/banshee-data/pointclean/internal/outlier"
	"github.com/banshee-data/pointclean/internal/pointio"
	"github.com/banshee-data/pointclean/internal/runstore"
	"github.com/banshee-data/pointclean/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("[outliers] %v", err)
	}
}

type options struct {
	configPath string
	input      string
	outDir     string
	plotDir    string
	dbPath     string
	listRuns   int
	deleteRun  string
	version    bool
	verbose    bool
	trace      bool

	// overrides holds only the tuning flags given on the command line.
	overrides *config.OutlierConfig
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("outliers", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to outlier tuning JSON, e.g. "+config.DefaultConfigPath+" (defaults built in)")
	fs.StringVar(&o.input, "in", "", "Input .asc point cloud")
	fs.StringVar(&o.outDir, "out", ".", "Directory for the kept/removed .asc files")
	fs.StringVar(&o.plotDir, "plots", "", "Base directory for score plots (disabled when empty)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record runs in (disabled when empty)")
	fs.IntVar(&o.listRuns, "list-runs", 0, "Print the N most recent runs from -db and exit")
	fs.StringVar(&o.deleteRun, "delete-run", "", "Delete the run with this ID from -db and exit")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.BoolVar(&o.verbose, "v", false, "Log a summary line per run")
	fs.BoolVar(&o.trace, "trace", false, "Log scan progress")

	k := fs.Int("k", 0, "Neighbours per point (overrides config)")
	radius := fs.Float64("radius", 0, "Neighbour search radius, 0 for exact k-nearest (overrides config)")
	percent := fs.Float64("percent", 0, "Maximum percentage of points to remove (overrides config)")
	distance := fs.Float64("distance", 0, "Keep points whose RMS neighbour distance is below this (overrides config)")
	index := fs.String("index", "", "Neighbour index: kdtree, grid or brute (overrides config)")
	cellSize := fs.Float64("cell-size", 0, "Grid index cell size (overrides config)")
	timeout := fs.Duration("timeout", 0, "Abort the scan after this long (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Only flags given explicitly override the config file.
	o.overrides = config.EmptyOutlierConfig()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			o.overrides.Neighbors = k
		case "radius":
			o.overrides.NeighborRadius = radius
		case "percent":
			o.overrides.ThresholdPercent = percent
		case "distance":
			o.overrides.ThresholdDistance = distance
		case "index":
			o.overrides.Index = index
		case "cell-size":
			o.overrides.CellSize = cellSize
		case "timeout":
			s := timeout.String()
			o.overrides.Timeout = &s
		}
	})

	if o.version {
		return o, nil
	}
	if o.input == "" && o.listRuns <= 0 && o.deleteRun == "" {
		return nil, errors.New("-in is required")
	}
	if o.listRuns > 0 && o.dbPath == "" {
		return nil, errors.New("-list-runs requires -db")
	}
	if o.deleteRun != "" && o.dbPath == "" {
		return nil, errors.New("-delete-run requires -db")
	}
	return o, nil
}

func loadConfig(o *options) (*config.OutlierConfig, error) {
	cfg := config.DefaultOutlierConfig()
	if o.configPath != "" {
		fileCfg, err := config.LoadOutlierConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	cfg.Merge(o.overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String("outliers"))
		return nil
	}

	writers := outlier.LogWriters{Ops: os.Stderr}
	if o.verbose {
		writers.Diag = os.Stderr
	}
	if o.trace {
		writers.Trace = os.Stderr
	}
	outlier.SetLogWriters(writers)

	var store *runstore.Store
	if o.dbPath != "" {
		store, err = runstore.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer store.Close()
	}
	if o.deleteRun != "" {
		if err := store.Delete(o.deleteRun); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		fmt.Fprintf(stdout, "deleted run %s\n", o.deleteRun)
		return nil
	}
	if o.listRuns > 0 {
		return printRuns(stdout, store, o.listRuns)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	points, err := pointio.LoadASC(o.input)
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	if len(points) == 0 {
		return fmt.Errorf("%s contains no points", o.input)
	}
	log.Printf("[outliers] loaded %d points from %s", len(points), o.input)

	idx, err := neighbors.New(cfg.GetIndex(), geom.Positions(points, pointio.PointASC.Position), cfg.GetCellSize())
	if err != nil {
		return err
	}

	k := cfg.GetNeighbors()
	opts := config.ToOptions[pointio.PointASC](cfg)
	opts.PointMap = pointio.PointASC.Position
	opts.Index = idx
	opts.Progress = progressLogger(time.Now(), 5*time.Second)

	if d := cfg.GetTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, runErr := outlier.Run(ctx, points, k, opts)
	if store != nil && (runErr == nil || res.Canceled) {
		rec := runstore.NewRunRecord(o.input, cfg.GetIndex(), len(points), k, opts, res)
		if err := store.Insert(&rec); err != nil {
			log.Printf("[outliers] failed to record run: %v", err)
		} else {
			log.Printf("[outliers] recorded run %s", rec.RunID)
		}
	}
	if runErr != nil {
		return fmt.Errorf("remove outliers: %w", runErr)
	}
	if res.Canceled {
		return errors.New("scan cancelled")
	}

	sum := res.Summary()
	log.Printf("[outliers] kept %d, removed %d of %d (quota_index=%d score_cutoff=%.6f mean=%.6f p90=%.6f) in %s",
		res.Boundary, res.Removed, len(points), res.Cutoff.QuotaIndex, res.Cutoff.ScoreCutoff,
		sum.Mean, sum.P90, res.Elapsed)

	if err := writeOutputs(o, points, res); err != nil {
		return err
	}

	if o.plotDir != "" {
		sp := monitor.NewScorePlotter(baseName(o.input))
		if err := sp.Start(monitor.MakePlotOutputDir(o.plotDir, o.input)); err != nil {
			return err
		}
		paths, err := sp.GeneratePlots(res)
		if err != nil {
			return fmt.Errorf("plots: %w", err)
		}
		log.Printf("[outliers] wrote %d plots to %s", len(paths), sp.OutputDir())
	}
	return nil
}

// progressLogger logs the scan fraction at most once per interval. It never
// cancels; deadlines go through the context.
func progressLogger(start time.Time, interval time.Duration) outlier.ProgressFunc {
	last := start
	return func(fraction float64) bool {
		if now := time.Now(); now.Sub(last) >= interval {
			last = now
			log.Printf("[outliers] scored %.0f%% (%s elapsed)", fraction*100, now.Sub(start).Round(time.Second))
		}
		return true
	}
}

// writeOutputs writes the kept and removed partitions, each point carrying
// its score. An empty partition produces no file.
func writeOutputs(o *options, points []pointio.PointASC, res outlier.Result) error {
	if err := os.MkdirAll(o.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	scored := make([]pointio.PointASC, len(points))
	for i, p := range points {
		p.Extra = append(append([]interface{}(nil), p.Extra...), res.Scores[i])
		scored[i] = p
	}

	name := baseName(o.input)
	parts := []struct {
		suffix string
		pts    []pointio.PointASC
	}{
		{"_kept.asc", scored[:res.Boundary]},
		{"_removed.asc", scored[res.Boundary:]},
	}
	for _, part := range parts {
		if len(part.pts) == 0 {
			continue
		}
		if _, err := pointio.ExportPointsToASC(part.pts, o.outDir, name+part.suffix, " Score"); err != nil {
			return err
		}
	}
	return nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printRuns(w io.Writer, store *runstore.Store, limit int) error {
	runs, err := store.List("", limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tINDEX\tK\tPERCENT\tDISTANCE\tPOINTS\tREMOVED\tCANCELED\tELAPSED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.4f\t%d\t%d\t%t\t%s\n",
			r.RunID, r.CreatedAt.Local().Format(time.DateTime), r.Source, r.IndexKind, r.Neighbors,
			r.ThresholdPercent, r.ThresholdDistance, r.PointCount, r.Removed, r.Canceled, r.Elapsed)
	}
	return tw.Flush()
}
