// Package filterstore persists the last-applied search filter as four
// independent keyed entries. Persistence is a best-effort cache: loads
// never fail (unreadable entries fall back to defaults) and partial
// write failures are logged and swallowed.
package filterstore

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/vecindario/discovery/internal/models"
)

// Entry keys. Each key is written and read independently; there is no
// transactional atomicity and concurrent saves are last-write-wins per key.
const (
	KeyTitle    = "searchTitle"
	KeyTags     = "selectedTags"
	KeyLocation = "location"
	KeyRadius   = "radius"
)

// Keys lists every entry a store manages, in save order.
var Keys = []string{KeyTitle, KeyTags, KeyLocation, KeyRadius}

// Store is the durable home of the last-applied filter for one
// namespace. Distinct screens use distinct namespaces so their entries
// do not collide.
type Store interface {
	// Load reads the persisted filter. Missing or unparsable entries
	// fall back to that field's default; Load never fails.
	Load(ctx context.Context) models.FilterState

	// Save writes all entries. Failures are the implementation's to log;
	// callers proceed as if the save succeeded.
	Save(ctx context.Context, state models.FilterState)
}

// Encode turns a filter into its per-key string entries.
func Encode(state models.FilterState) map[string]string {
	entries := map[string]string{
		KeyTitle:  state.SearchTitle,
		KeyRadius: strconv.Itoa(state.RadiusMeters),
	}

	if tags, err := json.Marshal(state.SelectedTags); err == nil {
		entries[KeyTags] = string(tags)
	}

	if state.Location == nil {
		entries[KeyLocation] = ""
	} else if loc, err := json.Marshal(state.Location); err == nil {
		entries[KeyLocation] = string(loc)
	}

	return entries
}

// Decode rebuilds a filter from whatever entries could be read. Each key
// decodes independently so one corrupt entry cannot poison the others.
func Decode(entries map[string]string) models.FilterState {
	state := models.DefaultFilterState()

	if title, ok := entries[KeyTitle]; ok {
		state.SearchTitle = title
	}

	if raw, ok := entries[KeyTags]; ok && raw != "" {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			state.SelectedTags = tags
		}
	}

	if raw, ok := entries[KeyLocation]; ok && raw != "" {
		var loc models.LatLng
		if err := json.Unmarshal([]byte(raw), &loc); err == nil {
			state.Location = &loc
		}
	}

	if raw, ok := entries[KeyRadius]; ok && raw != "" {
		// Negative values are accepted here and floored at 0 by
		// Normalize, the same resolution every other path applies.
		if radius, err := strconv.Atoi(raw); err == nil {
			state.RadiusMeters = radius
		}
	}

	return state.Normalize()
}
