// Package geom owns the geometric kernel used by point-set processing.
//
// Responsibilities: the 3D position type, squared Euclidean distance, and
// the accessor that maps a caller's stored element to its position.
// Key types: Point, PointMap.
//
// Dependency rule: geom depends on nothing else in this module.
package geom
