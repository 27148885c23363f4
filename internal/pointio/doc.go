// Package pointio reads and writes point clouds in the CloudCompare ASCII
// (.asc) layout: one point per line, X Y Z, an optional integer intensity
// and any number of extra columns.
package pointio
