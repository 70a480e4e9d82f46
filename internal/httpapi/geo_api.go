package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vecindario/discovery/internal/geo"
	"github.com/vecindario/discovery/internal/models"
)

type boundingCircleRequest struct {
	Points []models.LatLng `json:"points"`
}

type boundingCircleResponse struct {
	Centroid     models.LatLng `json:"centroid"`
	RadiusMeters float64       `json:"radius"`
}

// handleBoundingCircle derives a search circle from the triangle
// selector's three picked points.
func (s *Server) handleBoundingCircle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req boundingCircleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	centroid, radius, ok := geo.BoundingCircle(req.Points)
	if !ok {
		s.writeError(w, http.StatusUnprocessableEntity, "exactly 3 points required")
		return
	}

	s.writeJSON(w, http.StatusOK, boundingCircleResponse{
		Centroid:     centroid,
		RadiusMeters: radius,
	})
}
