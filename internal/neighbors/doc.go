// Package neighbors provides nearest-neighbour search over 3D point sets.
//
// Responsibilities: the Query capability consumed by point-set processing,
// and three interchangeable indexes behind it (gonum KD-tree, uniform voxel
// grid, brute force).
// Key types: Query, KDTree, Grid, BruteForce.
//
// Every index holds the full point set it was built from, so a query at a
// stored position returns that position among its own neighbours at
// distance zero.
//
// Dependency rule: neighbors may depend on geom only.
package neighbors
