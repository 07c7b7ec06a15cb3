// README: Shared identifier and coordinate primitives.
package types

// ID is an opaque entity identifier (restaurant, order, driver, customer).
type ID string

// Point is a WGS84 coordinate in decimal degrees. Values are taken as given;
// out-of-range degrees produce degenerate but non-crashing distances.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
