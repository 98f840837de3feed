package domain

import "time"

// State maps stream id -> bookmark key -> timestamp.
type State struct {
	Bookmarks map[string]map[string]string `json:"bookmarks"`
}

// Bookmark is one persisted state row.
type Bookmark struct {
	StreamID  string    `db:"stream_id"`
	Key       string    `db:"bookmark_key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewState() *State {
	return &State{Bookmarks: make(map[string]map[string]string)}
}

// Bookmark returns the stored value or def when absent.
func (s *State) Bookmark(stream, key, def string) string {
	if s == nil || s.Bookmarks == nil {
		return def
	}
	if v, ok := s.Bookmarks[stream][key]; ok && v != "" {
		return v
	}
	return def
}

func (s *State) SetBookmark(stream, key, value string) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]string)
	}
	if s.Bookmarks[stream] == nil {
		s.Bookmarks[stream] = make(map[string]string)
	}
	s.Bookmarks[stream][key] = value
}

// AdvanceBookmark stores max(current, candidate). Current defaults to def.
// Values that do not parse as timestamps never replace a parseable one.
func (s *State) AdvanceBookmark(stream, key, def string, candidate time.Time) string {
	current := s.Bookmark(stream, key, def)
	if prev, err := ParseTimestamp(current); err == nil && !candidate.After(prev) {
		s.SetBookmark(stream, key, current)
		return current
	}
	value := FormatTimestamp(candidate)
	s.SetBookmark(stream, key, value)
	return value
}

// Rows flattens the state into persisted bookmark rows.
func (s *State) Rows() []Bookmark {
	var rows []Bookmark
	for stream, keys := range s.Bookmarks {
		for key, value := range keys {
			rows = append(rows, Bookmark{StreamID: stream, Key: key, Value: value})
		}
	}
	return rows
}

func (s *State) Clone() *State {
	out := NewState()
	if s == nil {
		return out
	}
	for stream, keys := range s.Bookmarks {
		for key, value := range keys {
			out.SetBookmark(stream, key, value)
		}
	}
	return out
}
