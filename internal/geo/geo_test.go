package geo

import (
	"math"
	"testing"

	"github.com/vecindario/discovery/internal/models"
)

func TestHaversine_OneDegreeLongitudeAtEquator(t *testing.T) {
	// One degree of arc on the sphere is R * pi/180.
	want := EarthRadiusMeters * math.Pi / 180

	got := Haversine(0, 0, 0, 1)
	if math.Abs(got-want) > 1 {
		t.Errorf("Haversine() = %f, want %f", got, want)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	if got := Haversine(-34.6037, -58.3816, -34.6037, -58.3816); got != 0 {
		t.Errorf("Haversine() = %f, want 0", got)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	ab := Haversine(-34.6037, -58.3816, -34.9011, -56.1645)
	ba := Haversine(-34.9011, -56.1645, -34.6037, -58.3816)

	if math.Abs(ab-ba) > 1e-6 {
		t.Errorf("Haversine() not symmetric: %f vs %f", ab, ba)
	}
}

func TestBoundingCircle_RightTriangle(t *testing.T) {
	// Right triangle with roughly 1000m legs via small deltas near the
	// equator (1000m is about 0.008993 degrees of latitude).
	const delta = 0.008993
	points := []models.LatLng{
		{Latitude: 0, Longitude: 0},
		{Latitude: delta, Longitude: 0},
		{Latitude: 0, Longitude: delta},
	}

	centroid, radius, ok := BoundingCircle(points)
	if !ok {
		t.Fatal("BoundingCircle() ok = false for 3 points")
	}

	var farthest float64
	for _, p := range points {
		d := Distance(centroid, p)
		if radius < d {
			t.Errorf("radius %f smaller than centroid-vertex distance %f", radius, d)
		}
		if d > farthest {
			farthest = d
		}
	}
	if math.Abs(radius-farthest) > 1 {
		t.Errorf("radius = %f, want farthest vertex distance %f", radius, farthest)
	}

	wantLat := delta / 3
	wantLng := delta / 3
	if math.Abs(centroid.Latitude-wantLat) > 1e-9 || math.Abs(centroid.Longitude-wantLng) > 1e-9 {
		t.Errorf("centroid = %+v, want {%f %f}", centroid, wantLat, wantLng)
	}
}

func TestBoundingCircle_RequiresExactlyThreePoints(t *testing.T) {
	cases := [][]models.LatLng{
		nil,
		{},
		{{Latitude: 1, Longitude: 1}},
		{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}},
		{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}, {Latitude: 3, Longitude: 3}, {Latitude: 4, Longitude: 4}},
	}

	for _, points := range cases {
		if _, _, ok := BoundingCircle(points); ok {
			t.Errorf("BoundingCircle() ok = true for %d points", len(points))
		}
	}
}

func TestTriangleSelection(t *testing.T) {
	var sel TriangleSelection

	if _, _, ok := sel.Circle(); ok {
		t.Error("Circle() ok = true with no points")
	}

	sel.Add(models.LatLng{Latitude: 0, Longitude: 0})
	sel.Add(models.LatLng{Latitude: 0.01, Longitude: 0})
	if _, _, ok := sel.Circle(); ok {
		t.Error("Circle() ok = true with two points")
	}

	sel.Add(models.LatLng{Latitude: 0, Longitude: 0.01})
	if _, _, ok := sel.Circle(); !ok {
		t.Error("Circle() ok = false with three points")
	}

	// A fourth tap starts a new selection.
	sel.Add(models.LatLng{Latitude: 1, Longitude: 1})
	if got := len(sel.Points()); got != 1 {
		t.Errorf("Points() len = %d after fourth tap, want 1", got)
	}

	sel.Clear()
	if got := len(sel.Points()); got != 0 {
		t.Errorf("Points() len = %d after Clear, want 0", got)
	}
}
