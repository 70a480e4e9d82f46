package models

// DefaultRadiusMeters is the search radius applied when none has been chosen.
const DefaultRadiusMeters = 5000

// LatLng is a geographic coordinate pair (WGS 84).
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FilterState is the canonical, serializable description of the user's
// current search criteria. A nil Location means "do not filter by distance".
type FilterState struct {
	SearchTitle  string   `json:"searchTitle"`
	SelectedTags []string `json:"selectedTags"`
	Location     *LatLng  `json:"location,omitempty"`
	RadiusMeters int      `json:"radius"`
}

// DefaultFilterState returns the filter applied before the user has
// touched anything.
func DefaultFilterState() FilterState {
	return FilterState{
		SelectedTags: []string{},
		RadiusMeters: DefaultRadiusMeters,
	}
}

// Normalize clamps the radius and drops duplicate tags while keeping
// first-seen order.
func (f FilterState) Normalize() FilterState {
	if f.RadiusMeters < 0 {
		f.RadiusMeters = 0
	}
	if f.SelectedTags == nil {
		f.SelectedTags = []string{}
		return f
	}

	seen := make(map[string]bool, len(f.SelectedTags))
	tags := make([]string, 0, len(f.SelectedTags))
	for _, tag := range f.SelectedTags {
		key := Fold(tag)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	f.SelectedTags = tags
	return f
}

// IntersectTags keeps only the selected tags present in the available
// vocabulary. Comparison is accent- and case-insensitive, so a stale
// "plomeria" still matches a vocabulary entry "Plomería".
func (f FilterState) IntersectTags(vocabulary []string) FilterState {
	if len(f.SelectedTags) == 0 {
		return f
	}

	available := make(map[string]bool, len(vocabulary))
	for _, tag := range vocabulary {
		available[Fold(tag)] = true
	}

	kept := make([]string, 0, len(f.SelectedTags))
	for _, tag := range f.SelectedTags {
		if available[Fold(tag)] {
			kept = append(kept, tag)
		}
	}
	f.SelectedTags = kept
	return f
}

// Clone returns a deep copy so drafts can be edited without aliasing the
// committed state.
func (f FilterState) Clone() FilterState {
	out := f
	out.SelectedTags = append([]string(nil), f.SelectedTags...)
	if f.Location != nil {
		loc := *f.Location
		out.Location = &loc
	}
	return out
}
