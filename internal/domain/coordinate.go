package domain

import "math"

// Immutable geographic coordinates (latitude, longitude).
type Coordinate struct {
	Lat float64
	Lng float64
}

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle (haversine) distance to other.
// It is the straight-line approximation used when no road network data
// is available.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLng := (other.Lng - c.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(c.Lat*math.Pi/180)*math.Cos(other.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
