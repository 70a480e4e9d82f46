package geo

import (
	"math"

	"github.com/vecindario/discovery/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle math.
const EarthRadiusMeters = 6371000.0

// trianglePoints is the number of vertices the legacy map selector
// collects before deriving a search circle. Arbitrary polygons were never
// supported upstream; the limit is kept as documented legacy behavior.
const trianglePoints = 3

// Haversine returns the great-circle distance in meters between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance is Haversine over LatLng values.
func Distance(a, b models.LatLng) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// BoundingCircle derives a search circle from a triangle of picked
// points: the centroid is the arithmetic mean of the vertices (not
// geodesically correct, matching the legacy selector) and the radius is
// the largest centroid-to-vertex distance, so the circle contains all
// three points. ok is false unless exactly three points are given.
func BoundingCircle(points []models.LatLng) (centroid models.LatLng, radius float64, ok bool) {
	if len(points) != trianglePoints {
		return models.LatLng{}, 0, false
	}

	for _, p := range points {
		centroid.Latitude += p.Latitude
		centroid.Longitude += p.Longitude
	}
	centroid.Latitude /= trianglePoints
	centroid.Longitude /= trianglePoints

	for _, p := range points {
		if d := Distance(centroid, p); d > radius {
			radius = d
		}
	}
	return centroid, radius, true
}

// TriangleSelection accumulates up to three map taps and yields the
// derived circle once the triangle is complete.
type TriangleSelection struct {
	points []models.LatLng
}

// Add records a tapped point. Once three points are held, further taps
// start a fresh selection, mirroring the upstream selector.
func (s *TriangleSelection) Add(p models.LatLng) {
	if len(s.points) >= trianglePoints {
		s.points = s.points[:0]
	}
	s.points = append(s.points, p)
}

// Clear discards all picked points.
func (s *TriangleSelection) Clear() {
	s.points = s.points[:0]
}

// Points returns a copy of the picked points.
func (s *TriangleSelection) Points() []models.LatLng {
	return append([]models.LatLng(nil), s.points...)
}

// Circle returns the derived circle, or ok=false while the triangle is
// incomplete.
func (s *TriangleSelection) Circle() (models.LatLng, float64, bool) {
	return BoundingCircle(s.points)
}
