package runstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pointclean/internal/outlier"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one persisted outlier-removal run.
type RunRecord struct {
	RunID             string        `json:"run_id"`
	Source            string        `json:"source"`
	IndexKind         string        `json:"index_kind"`
	Neighbors         int           `json:"neighbors"`
	NeighborRadius    float64       `json:"neighbor_radius"`
	ThresholdPercent  float64       `json:"threshold_percent"`
	ThresholdDistance float64       `json:"threshold_distance"`
	PointCount        int           `json:"point_count"`
	Boundary          int           `json:"boundary"`
	Removed           int           `json:"removed"`
	Canceled          bool          `json:"canceled"`
	QuotaIndex        int           `json:"quota_index"`
	ScoreCutoff       float64       `json:"score_cutoff"`
	ScoreMean         float64       `json:"score_mean"`
	ScoreMax          float64       `json:"score_max"`
	Elapsed           time.Duration `json:"elapsed"`
	CreatedAt         time.Time     `json:"created_at"`
}

// NewRunRecord describes a finished run of outlier.Run over n points.
func NewRunRecord[E any](source, indexKind string, n, k int, opts outlier.Options[E], res outlier.Result) RunRecord {
	sum := res.Summary()
	return RunRecord{
		Source:            source,
		IndexKind:         indexKind,
		Neighbors:         k,
		NeighborRadius:    opts.NeighborRadius,
		ThresholdPercent:  opts.ThresholdPercent,
		ThresholdDistance: opts.ThresholdDistance,
		PointCount:        n,
		Boundary:          res.Boundary,
		Removed:           res.Removed,
		Canceled:          res.Canceled,
		QuotaIndex:        res.Cutoff.QuotaIndex,
		ScoreCutoff:       res.Cutoff.ScoreCutoff,
		ScoreMean:         sum.Mean,
		ScoreMax:          sum.Max,
		Elapsed:           res.Elapsed,
	}
}

// Insert stores rec, assigning a run ID and creation time when unset.
func (s *Store) Insert(rec *RunRecord) error {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO outlier_runs (
			run_id, source, index_kind, neighbors, neighbor_radius,
			threshold_percent, threshold_distance, point_count, boundary,
			removed, canceled, quota_index, score_cutoff, score_mean,
			score_max, elapsed_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			rec.RunID,
			rec.Source,
			rec.IndexKind,
			rec.Neighbors,
			rec.NeighborRadius,
			rec.ThresholdPercent,
			rec.ThresholdDistance,
			rec.PointCount,
			rec.Boundary,
			rec.Removed,
			rec.Canceled,
			rec.QuotaIndex,
			rec.ScoreCutoff,
			rec.ScoreMean,
			rec.ScoreMax,
			rec.Elapsed.Milliseconds(),
			rec.CreatedAt.UTC().Format(timeLayout),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.RunID, err)
	}
	return nil
}

const selectColumns = `
	SELECT run_id, source, index_kind, neighbors, neighbor_radius,
	       threshold_percent, threshold_distance, point_count, boundary,
	       removed, canceled, quota_index, score_cutoff, score_mean,
	       score_max, elapsed_ms, created_at
	FROM outlier_runs
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec       RunRecord
		elapsedMS int64
		createdAt string
	)
	err := row.Scan(
		&rec.RunID,
		&rec.Source,
		&rec.IndexKind,
		&rec.Neighbors,
		&rec.NeighborRadius,
		&rec.ThresholdPercent,
		&rec.ThresholdDistance,
		&rec.PointCount,
		&rec.Boundary,
		&rec.Removed,
		&rec.Canceled,
		&rec.QuotaIndex,
		&rec.ScoreCutoff,
		&rec.ScoreMean,
		&rec.ScoreMax,
		&elapsedMS,
		&createdAt,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return RunRecord{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return rec, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(runID string) (*RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(selectColumns+" WHERE run_id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	return &rec, nil
}

// List returns up to limit runs, newest first. An empty source lists runs
// of every source; limit <= 0 means no limit.
func (s *Store) List(source string, limit int) ([]RunRecord, error) {
	query := selectColumns
	var args []interface{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Delete removes a run. Deleting an unknown run returns ErrRunNotFound.
func (s *Store) Delete(runID string) error {
	var affected int64
	err := retryOnBusy(func() error {
		res, err := s.db.Exec("DELETE FROM outlier_runs WHERE run_id = ?", runID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
