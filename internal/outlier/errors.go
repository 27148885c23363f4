package outlier

import "errors"

// Precondition violations. The slice is never modified when one of these
// is returned.
var (
	ErrEmptyPointSet    = errors.New("outlier: point set is empty")
	ErrTooFewNeighbors  = errors.New("outlier: at least 2 neighbours are required")
	ErrThresholdPercent = errors.New("outlier: threshold percent must be within [0, 100]")
	ErrNegativeRadius   = errors.New("outlier: neighbour radius must be non-negative")
	ErrNegativeDistance = errors.New("outlier: threshold distance must be non-negative")
	ErrNoPointMap       = errors.New("outlier: point map required for non-point elements")
)

// ErrNoNeighbors is returned when the neighbour query yields nothing for a
// point, typically because the neighbour radius is smaller than the point
// spacing.
var ErrNoNeighbors = errors.New("outlier: neighbour query returned no points")
