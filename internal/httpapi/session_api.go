package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vecindario/discovery/internal/coordinator"
	"github.com/vecindario/discovery/internal/models"
	"github.com/vecindario/discovery/internal/session"
)

type createSessionRequest struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Mode      string `json:"mode"`
}

type sessionResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// filterEditRequest carries partial edits; absent fields are untouched.
// ClearLocation exists because a null location in JSON is
// indistinguishable from an absent one.
type filterEditRequest struct {
	Title         *string        `json:"title"`
	Tags          []string       `json:"tags"`
	Location      *models.LatLng `json:"location"`
	ClearLocation bool           `json:"clearLocation"`
	Radius        *int           `json:"radius"`
}

type filtersResponse struct {
	State models.FilterState `json:"state"`
	Draft models.FilterState `json:"draft"`
}

type vocabularyRequest struct {
	Tags []string `json:"tags"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := session.Kind(req.Kind)
	if req.Kind == "" {
		kind = session.KindJobs
	}

	mode := coordinator.Mode(req.Mode)
	switch mode {
	case "", coordinator.ModeDebounced, coordinator.ModeManual:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown mode "+req.Mode)
		return
	}

	sess, err := s.registry.Create(r.Context(), kind, req.Namespace, mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, sessionResponse{
		ID:   sess.ID,
		Kind: string(sess.Kind),
	})
}

// handleSessionSubtree routes /api/sessions/{id}[/...] by hand the way
// the rest of the API does.
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "session id required")
		return
	}

	sess, ok := s.registry.Get(parts[0])
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleSessionRoot(w, r, sess)
	case parts[1] == "feed":
		s.handleFeed(w, r, sess, parts[1:])
	case parts[1] == "filters":
		s.handleFilters(w, r, sess, parts[1:])
	case parts[1] == "vocabulary" && len(parts) == 2:
		s.handleVocabulary(w, r, sess)
	default:
		s.writeError(w, http.StatusNotFound, "unknown session resource")
	}
}

func (s *Server) handleSessionRoot(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Kind: string(sess.Kind)})
	case http.MethodDelete:
		s.registry.Delete(sess.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request, sess *session.Session, parts []string) {
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, sess.Feed.Snapshot())

	case len(parts) == 2 && parts[1] == "next" && r.Method == http.MethodPost:
		// onEndReached from the scrollable list. The load is synchronous
		// so the returned snapshot already reflects the appended page;
		// concurrent calls are dropped by the controller's guard.
		sess.Feed.LoadNextPage(r.Context())
		s.writeJSON(w, http.StatusOK, sess.Feed.Snapshot())

	default:
		s.writeError(w, http.StatusNotFound, "unknown feed resource")
	}
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request, sess *session.Session, parts []string) {
	coord := sess.Coordinator

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, filtersResponse{
			State: coord.State(),
			Draft: coord.Draft(),
		})

	case len(parts) == 1 && r.Method == http.MethodPut:
		var req filterEditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title != nil {
			coord.SetTitle(*req.Title)
		}
		if req.Tags != nil {
			coord.SetTags(req.Tags)
		}
		if req.ClearLocation {
			coord.ClearLocation()
		} else if req.Location != nil {
			coord.SetLocation(*req.Location)
		}
		if req.Radius != nil {
			coord.SetRadius(*req.Radius)
		}
		s.writeJSON(w, http.StatusOK, filtersResponse{
			State: coord.State(),
			Draft: coord.Draft(),
		})

	case len(parts) == 2 && parts[1] == "apply" && r.Method == http.MethodPost:
		applied := coord.Apply()
		s.writeJSON(w, http.StatusOK, filtersResponse{State: applied, Draft: applied})

	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		reverted := coord.Cancel()
		s.writeJSON(w, http.StatusOK, filtersResponse{State: reverted, Draft: reverted})

	default:
		s.writeError(w, http.StatusNotFound, "unknown filters resource")
	}
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req vocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess.Coordinator.SetVocabulary(req.Tags)
	s.writeJSON(w, http.StatusOK, filtersResponse{
		State: sess.Coordinator.State(),
		Draft: sess.Coordinator.Draft(),
	})
}
