package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vecindario/discovery/internal/dispatch"
	"github.com/vecindario/discovery/internal/filterstore"
	"github.com/vecindario/discovery/internal/session"
	"github.com/vecindario/discovery/internal/testutil"
)

func testServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()

	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)

	cfg := dispatch.DefaultConfig()
	cfg.BaseURL = backend.URL
	client := dispatch.New(cfg, nil, testutil.NullLogger())

	registry := session.NewRegistry(func(namespace string) filterstore.Store {
		return filterstore.NewMemory()
	}, client, time.Minute, 10*time.Millisecond, testutil.NullLogger())
	t.Cleanup(registry.Close)

	srv := httptest.NewServer(New(registry, testutil.NullLogger()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, out interface{}) int {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, srv *httptest.Server, body string) string {
	t.Helper()

	var created struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", body, &created)
	if status != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", status)
	}
	if created.ID == "" {
		t.Fatal("create session returned empty id")
	}
	return created.ID
}

func TestHealth(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[]}`)
	})

	var body map[string]string
	if status := doJSON(t, http.MethodGet, srv.URL+"/health", "", &body); status != http.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("health body = %v", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[{"id":1,"title":"first"}]}`)
	})

	id := createSession(t, srv, `{"kind":"jobs"}`)

	// The feed primes itself from the restored filter.
	feedURL := srv.URL + "/api/sessions/" + id + "/feed"
	deadline := time.After(2 * time.Second)
	for {
		var snap struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		doJSON(t, http.MethodGet, feedURL, "", &snap)
		if len(snap.Items) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("feed never primed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if status := doJSON(t, http.MethodDelete, srv.URL+"/api/sessions/"+id, "", nil); status != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", status)
	}
	if status := doJSON(t, http.MethodGet, feedURL, "", nil); status != http.StatusNotFound {
		t.Errorf("feed status after delete = %d, want 404", status)
	}
}

func TestCreateSession_UnknownKind(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[]}`)
	})

	if status := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", `{"kind":"reports"}`, nil); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestManualFilters_ApplyAndCancel(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[]}`)
	})

	id := createSession(t, srv, `{"kind":"jobs","mode":"manual"}`)
	base := srv.URL + "/api/sessions/" + id + "/filters"

	var after struct {
		State struct {
			SearchTitle string `json:"searchTitle"`
		} `json:"state"`
		Draft struct {
			SearchTitle string `json:"searchTitle"`
		} `json:"draft"`
	}

	doJSON(t, http.MethodPut, base, `{"title":"electricista"}`, &after)
	if after.State.SearchTitle != "" || after.Draft.SearchTitle != "electricista" {
		t.Errorf("after edit state=%q draft=%q, want edit confined to draft", after.State.SearchTitle, after.Draft.SearchTitle)
	}

	doJSON(t, http.MethodPost, base+"/apply", "", &after)
	if after.State.SearchTitle != "electricista" {
		t.Errorf("after apply state=%q, want %q", after.State.SearchTitle, "electricista")
	}

	doJSON(t, http.MethodPut, base, `{"title":"discarded"}`, &after)
	doJSON(t, http.MethodPost, base+"/cancel", "", &after)
	if after.State.SearchTitle != "electricista" || after.Draft.SearchTitle != "electricista" {
		t.Errorf("after cancel state=%q draft=%q, want reverted", after.State.SearchTitle, after.Draft.SearchTitle)
	}
}

func TestVocabularyUpdate(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[]}`)
	})

	id := createSession(t, srv, `{"kind":"jobs","mode":"manual"}`)
	base := srv.URL + "/api/sessions/" + id

	doJSON(t, http.MethodPut, base+"/filters", `{"tags":["Plomería","Ghost"]}`, nil)
	doJSON(t, http.MethodPost, base+"/filters/apply", "", nil)

	var after struct {
		State struct {
			SelectedTags []string `json:"selectedTags"`
		} `json:"state"`
	}
	doJSON(t, http.MethodPut, base+"/vocabulary", `{"tags":["Plomería","Electricidad"]}`, &after)

	if len(after.State.SelectedTags) != 1 || after.State.SelectedTags[0] != "Plomería" {
		t.Errorf("SelectedTags = %v, want [Plomería]", after.State.SelectedTags)
	}
}

func TestFeedNext_AppendsPage(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "2":
			fmt.Fprint(w, `{"jobs":[{"id":21,"title":"page two"}]}`)
		default:
			// Full first page so hasMore stays true.
			items := make([]string, 0, dispatch.PageSize)
			for i := 1; i <= dispatch.PageSize; i++ {
				items = append(items, fmt.Sprintf(`{"id":%d,"title":"job %d"}`, i, i))
			}
			fmt.Fprintf(w, `{"jobs":[%s]}`, strings.Join(items, ","))
		}
	})

	id := createSession(t, srv, `{"kind":"jobs"}`)
	base := srv.URL + "/api/sessions/" + id + "/feed"

	var snap struct {
		Items   []struct{ ID string } `json:"items"`
		HasMore bool                  `json:"hasMore"`
	}

	deadline := time.After(2 * time.Second)
	for {
		doJSON(t, http.MethodGet, base, "", &snap)
		if len(snap.Items) == dispatch.PageSize {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first page never loaded, items = %d", len(snap.Items))
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if !snap.HasMore {
		t.Fatal("hasMore = false after a full first page")
	}

	doJSON(t, http.MethodPost, base+"/next", "", &snap)
	if len(snap.Items) != dispatch.PageSize+1 {
		t.Errorf("items = %d after next, want %d", len(snap.Items), dispatch.PageSize+1)
	}
	if snap.HasMore {
		t.Error("hasMore = true after short page")
	}
}

func TestBoundingCircleEndpoint(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs":[]}`)
	})

	var resp struct {
		Centroid struct {
			Latitude float64 `json:"latitude"`
		} `json:"centroid"`
		Radius float64 `json:"radius"`
	}
	body := `{"points":[{"latitude":0,"longitude":0},{"latitude":0.009,"longitude":0},{"latitude":0,"longitude":0.009}]}`
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/geo/bounding-circle", body, &resp); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if resp.Radius <= 0 {
		t.Errorf("radius = %f, want positive", resp.Radius)
	}

	status := doJSON(t, http.MethodPost, srv.URL+"/api/geo/bounding-circle", `{"points":[{"latitude":0,"longitude":0}]}`, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d for one point, want 422", status)
	}
}
