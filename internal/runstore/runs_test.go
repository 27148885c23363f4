package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointclean/internal/geom"
	"github.com/banshee-data/pointclean/internal/outlier"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleRecord(source string, created time.Time) RunRecord {
	return RunRecord{
		Source:           source,
		IndexKind:        "kdtree",
		Neighbors:        8,
		ThresholdPercent: 10,
		PointCount:       100,
		Boundary:         90,
		Removed:          10,
		QuotaIndex:       90,
		ScoreMean:        0.25,
		ScoreMax:         4,
		Elapsed:          1500 * time.Millisecond,
		CreatedAt:        created,
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	s, path := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.MigrateUp())
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	rec := sampleRecord("mem.asc", time.Now())
	require.NoError(t, s.Insert(&rec))
	got, err := s.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, "mem.asc", got.Source)
}

func TestInsertGet(t *testing.T) {
	s, _ := openTestStore(t)
	created := time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)

	rec := sampleRecord("scan.asc", created)
	rec.Canceled = true
	rec.NeighborRadius = 0.5
	rec.ThresholdDistance = 0.2
	rec.ScoreCutoff = 0.04
	require.NoError(t, s.Insert(&rec))

	_, err := uuid.Parse(rec.RunID)
	require.NoError(t, err, "run ID should be a UUID")

	got, err := s.Get(rec.RunID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))
	got.CreatedAt = rec.CreatedAt
	assert.Equal(t, rec, *got)
}

func TestInsert_KeepsGivenID(t *testing.T) {
	s, _ := openTestStore(t)
	rec := sampleRecord("a.asc", time.Time{})
	rec.RunID = "fixed-id"
	require.NoError(t, s.Insert(&rec))
	assert.Equal(t, "fixed-id", rec.RunID)
	assert.False(t, rec.CreatedAt.IsZero())

	dup := sampleRecord("a.asc", time.Now())
	dup.RunID = "fixed-id"
	assert.Error(t, s.Insert(&dup))
}

func TestGet_NotFound(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestList(t *testing.T) {
	s, _ := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i, src := range []string{"a.asc", "b.asc", "a.asc", "a.asc"} {
		rec := sampleRecord(src, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Insert(&rec))
		ids = append(ids, rec.RunID)
	}

	all, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].RunID, "newest first")
	assert.Equal(t, ids[0], all[3].RunID)

	onlyA, err := s.List("a.asc", 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 3)
	for _, r := range onlyA {
		assert.Equal(t, "a.asc", r.Source)
	}

	limited, err := s.List("", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[3], limited[0].RunID)
	assert.Equal(t, ids[2], limited[1].RunID)

	none, err := s.List("c.asc", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	s, _ := openTestStore(t)
	rec := sampleRecord("a.asc", time.Now())
	require.NoError(t, s.Insert(&rec))

	require.NoError(t, s.Delete(rec.RunID))
	_, err := s.Get(rec.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(s.Delete(rec.RunID), ErrRunNotFound))
}

func TestNewRunRecord(t *testing.T) {
	points := make([]geom.Point, 0, 11)
	for i := 0; i < 10; i++ {
		points = append(points, geom.Point{X: float64(i)})
	}
	points = append(points, geom.Point{X: 100})

	opts := outlier.DefaultOptions[geom.Point]()
	res, err := outlier.Run(context.Background(), points, 2, opts)
	require.NoError(t, err)

	rec := NewRunRecord("line.asc", "kdtree", len(points), 2, opts, res)
	assert.Equal(t, 11, rec.PointCount)
	assert.Equal(t, 10, rec.Boundary)
	assert.Equal(t, 1, rec.Removed)
	assert.Equal(t, 9, rec.QuotaIndex)
	assert.Equal(t, 10.0, rec.ThresholdPercent)
	assert.InDelta(t, 91.0*91.0/2, rec.ScoreMax, 1e-9)

	s, _ := openTestStore(t)
	require.NoError(t, s.Insert(&rec))
	got, err := s.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Boundary, got.Boundary)
}

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	boom := errors.New("constraint failed")
	err = retryOnBusy(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-busy errors are not retried")

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("database is locked (5) (SQLITE_BUSY)")
	})
	assert.Error(t, err)
	assert.Equal(t, busyMaxAttempts, calls)
}
