// Package monitor renders diagnostic plots of outlier-removal runs.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointclean/internal/outlier"
	"github.com/banshee-data/pointclean/internal/security"
)

// DefaultHistogramBins is used when ScorePlotter.Bins is not positive.
const DefaultHistogramBins = 50

var (
	keptColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	removedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	cutoffColor  = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// ScorePlotter writes PNG plots of a run's score distribution: the ranked
// scores with the kept/removed split marked, and a histogram.
type ScorePlotter struct {
	mu        sync.Mutex
	outputDir string
	name      string

	// Bins is the histogram bin count.
	Bins int
}

// NewScorePlotter creates a plotter writing files prefixed with name.
func NewScorePlotter(name string) *ScorePlotter {
	return &ScorePlotter{
		name: security.SanitizeFilename(name),
		Bins: DefaultHistogramBins,
	}
}

// Start creates outputDir and directs subsequent plots there.
func (sp *ScorePlotter) Start(outputDir string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	sp.outputDir = outputDir
	return nil
}

// OutputDir returns the current output directory.
func (sp *ScorePlotter) OutputDir() string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.outputDir
}

// GeneratePlots writes the plots for res and returns their paths.
// A cancelled run or one without scores produces no files.
func (sp *ScorePlotter) GeneratePlots(res outlier.Result) ([]string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.outputDir == "" {
		return nil, errors.New("no output directory configured")
	}
	if res.Canceled || len(res.Scores) == 0 {
		return nil, nil
	}

	var paths []string
	rankedFile := filepath.Join(sp.outputDir, sp.name+"_scores_ranked.png")
	if err := sp.rankedPlot(res, rankedFile); err != nil {
		return paths, fmt.Errorf("ranked plot: %w", err)
	}
	paths = append(paths, rankedFile)

	histFile := filepath.Join(sp.outputDir, sp.name+"_scores_hist.png")
	if err := sp.histogramPlot(res, histFile); err != nil {
		return paths, fmt.Errorf("histogram plot: %w", err)
	}
	paths = append(paths, histFile)
	return paths, nil
}

// rankedPlot draws score against rank, kept points and outliers in
// separate colours, with the boundary and the distance cutoff as dashed
// lines.
func (sp *ScorePlotter) rankedPlot(res outlier.Result, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - ranked scores (%d kept, %d removed)", sp.name, res.Boundary, res.Removed)
	p.X.Label.Text = "Rank"
	p.Y.Label.Text = "Mean squared neighbour distance"

	kept := make(plotter.XYs, 0, res.Boundary)
	removed := make(plotter.XYs, 0, res.Removed)
	for i, s := range res.Scores {
		xy := plotter.XY{X: float64(i), Y: s}
		if i < res.Boundary {
			kept = append(kept, xy)
		} else {
			removed = append(removed, xy)
		}
	}

	if len(kept) > 0 {
		sc, err := plotter.NewScatter(kept)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = keptColor
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add("kept", sc)
	}
	if len(removed) > 0 {
		sc, err := plotter.NewScatter(removed)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = removedColor
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add("removed", sc)
	}

	minScore, maxScore := res.Scores[0], res.Scores[len(res.Scores)-1]
	if res.Removed > 0 {
		x := float64(res.Boundary) - 0.5
		if err := addDashed(p, plotter.XYs{{X: x, Y: minScore}, {X: x, Y: maxScore}}, "boundary"); err != nil {
			return err
		}
	}
	if res.Cutoff.ScoreCutoff > 0 {
		y := res.Cutoff.ScoreCutoff
		last := float64(len(res.Scores) - 1)
		if err := addDashed(p, plotter.XYs{{X: 0, Y: y}, {X: last, Y: y}}, "distance cutoff"); err != nil {
			return err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}

func (sp *ScorePlotter) histogramPlot(res outlier.Result, file string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - score histogram (n=%d)", sp.name, len(res.Scores))
	p.X.Label.Text = "Mean squared neighbour distance"
	p.Y.Label.Text = "Points"

	bins := sp.Bins
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	h, err := plotter.NewHist(plotter.Values(res.Scores), bins)
	if err != nil {
		return err
	}
	h.FillColor = keptColor
	p.Add(h)

	if res.Removed > 0 && res.Boundary > 0 {
		// Midway between the last kept and first removed score.
		x := (res.Scores[res.Boundary-1] + res.Scores[res.Boundary]) / 2
		top := 0.0
		for _, b := range h.Bins {
			if b.Weight > top {
				top = b.Weight
			}
		}
		if err := addDashed(p, plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}}, "boundary"); err != nil {
			return err
		}
		p.Legend.Top = true
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, file)
}

func addDashed(p *plot.Plot, pts plotter.XYs, label string) error {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.Color = cutoffColor
	l.Width = vg.Points(1)
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir returns a timestamped plot directory for an input file:
// <baseDir>/<input basename without extension>/<timestamp>.
func MakePlotOutputDir(baseDir, inputFile string) string {
	ts := FormatTimestamp(time.Now())
	if inputFile == "" {
		return filepath.Join(baseDir, "run_"+ts)
	}
	base := filepath.Base(inputFile)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(baseDir, security.SanitizeFilename(name), ts)
}
