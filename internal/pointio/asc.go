package pointio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/pointclean/internal/geom"
	"github.com/banshee-data/pointclean/internal/security"
)

// ErrNoPoints is returned when exporting an empty point slice.
var ErrNoPoints = errors.New("no points to export")

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// PointASC is a cartesian point with optional extra columns
// (X, Y, Z, Intensity, ...extra).
type PointASC struct {
	X, Y, Z   float64
	Intensity int
	Extra     []interface{}
}

// Position returns the point's coordinates.
func (p PointASC) Position() geom.Point {
	return geom.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// ReadASC parses points from r. Blank lines and lines starting with '#' or
// '//' are skipped. Columns may be separated by spaces, tabs, commas or
// semicolons. The fourth column is read as intensity, rounding non-integer
// values; later columns become float64 when numeric and string otherwise.
func ReadASC(r io.Reader) ([]PointASC, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var points []PointASC
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read asc: %w", err)
	}
	return points, nil
}

func parseLine(line string) (PointASC, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})
	if len(fields) < 3 {
		return PointASC{}, fmt.Errorf("expected at least 3 columns, got %d", len(fields))
	}

	var xyz [3]float64
	for i := range xyz {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return PointASC{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return PointASC{}, fmt.Errorf("column %d: non-finite coordinate %q", i+1, fields[i])
		}
		xyz[i] = v
	}
	p := PointASC{X: xyz[0], Y: xyz[1], Z: xyz[2]}

	if len(fields) > 3 {
		v, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return PointASC{}, fmt.Errorf("intensity: %w", err)
		}
		v = math.Round(v)
		if !(v >= math.MinInt32 && v <= math.MaxInt32) {
			return PointASC{}, fmt.Errorf("intensity %q out of range", fields[3])
		}
		p.Intensity = int(v)
	}
	for _, f := range fields[min(len(fields), 4):] {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			p.Extra = append(p.Extra, v)
		} else {
			p.Extra = append(p.Extra, f)
		}
	}
	return p, nil
}

// LoadASC reads the .asc file at path.
func LoadASC(path string) ([]PointASC, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := ReadASC(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// WriteASC writes a header and one line per point to w.
// extraHeader describes extra columns and is appended to the format line.
func WriteASC(w io.Writer, points []PointASC, extraHeader string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z Intensity%s\n", extraHeader)

	for _, p := range points {
		fmt.Fprintf(bw, "%.6f %.6f %.6f %d", p.X, p.Y, p.Z, p.Intensity)
		for _, col := range p.Extra {
			switch v := col.(type) {
			case int:
				fmt.Fprintf(bw, " %d", v)
			case float64:
				fmt.Fprintf(bw, " %.6f", v)
			case string:
				fmt.Fprintf(bw, " %s", v)
			default:
				fmt.Fprintf(bw, " %v", v)
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ExportPointsToASC writes points to a file named name inside dir and
// returns its path. Only the last element of name is used, and the result
// must stay within dir.
func ExportPointsToASC(points []PointASC, dir, name, extraHeader string) (string, error) {
	if len(points) == 0 {
		return "", ErrNoPoints
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export filename %q", name)
	}
	path := filepath.Join(dir, base)
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		log.Printf("Security: rejected export path %s (from %s): %v", path, name, err)
		return "", fmt.Errorf("invalid export path: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteASC(f, points, extraHeader); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("Exported %d points to %s", len(points), path)
	return path, nil
}
