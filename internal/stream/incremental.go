package stream

import (
	"context"
	"fmt"
	"time"

	"tap_amazon_ads/internal/domain"
)

// Incremental emits only records whose replication key is at or after the
// stream's bookmark and advances the bookmark to the newest value seen.
type Incremental struct {
	base
}

func NewIncremental(def Definition, deps Deps, children []Stream) *Incremental {
	return &Incremental{base: newBase(def, deps, children)}
}

func (s *Incremental) Sync(ctx context.Context, state *domain.State, parent domain.Record) (int, error) {
	bookmark, err := s.startBookmark(state)
	if err != nil {
		return 0, err
	}

	req, err := s.def.buildRequest(parent)
	if err != nil {
		return 0, err
	}

	s.logger.Info("syncing stream", "bookmark", domain.FormatTimestamp(bookmark))

	count := 0
	maxSeen := bookmark
	for raw, err := range s.records(ctx, req) {
		if err != nil {
			return count, fmt.Errorf("sync %s: %w", s.def.ID, err)
		}

		enriched, rec, err := s.prepare(raw, parent)
		if err != nil {
			return count, err
		}

		value, ok := rec.Lookup(s.def.ReplicationKey)
		if ok && value != nil {
			ts, err := domain.ParseTimestamp(value)
			if err != nil {
				return count, fmt.Errorf("sync %s: replication key %s: %w", s.def.ID, s.def.ReplicationKey, err)
			}
			if ts.Before(bookmark) {
				continue
			}
			if ts.After(maxSeen) {
				maxSeen = ts
			}
		} else {
			s.logger.Warn("record has no replication key value", "key", s.def.ReplicationKey)
		}

		written, err := s.emit(rec)
		if err != nil {
			return count, err
		}
		if written {
			count++
		}

		if err := s.syncChildren(ctx, state, enriched); err != nil {
			return count, err
		}
	}

	s.writeBookmark(state, maxSeen)

	s.logger.Info("stream synced", "records", count, "bookmark", domain.FormatTimestamp(maxSeen))
	return count, nil
}

// startBookmark is the cutoff for this invocation. A stream sharing its
// bookmark starts from the oldest of its own bookmark and every selected
// child's shared bookmark.
func (s *Incremental) startBookmark(state *domain.State) (time.Time, error) {
	own, err := s.bookmark(state, s.def.ID, s.def.ReplicationKey)
	if err != nil {
		return time.Time{}, err
	}
	if !s.def.SharesBookmark {
		return own, nil
	}

	var (
		start time.Time
		found bool
	)
	if s.selected() {
		start, found = own, true
	}
	for _, child := range s.children {
		if !s.deps.Catalog.IsSelected(child.ID()) {
			continue
		}
		v, err := s.bookmark(state, child.ID(), s.def.SharedBookmarkKey())
		if err != nil {
			return time.Time{}, err
		}
		if !found || v.Before(start) {
			start, found = v, true
		}
	}
	if !found {
		return own, nil
	}
	return start, nil
}

func (s *Incremental) bookmark(state *domain.State, stream, key string) (time.Time, error) {
	raw := state.Bookmark(stream, key, s.deps.StartDate)
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s bookmark %s: %w", stream, key, err)
	}
	return ts, nil
}

// writeBookmark stores max(previous, candidate) under every key this stream owns.
func (s *Incremental) writeBookmark(state *domain.State, candidate time.Time) {
	if !s.def.SharesBookmark {
		state.AdvanceBookmark(s.def.ID, s.def.ReplicationKey, s.deps.StartDate, candidate)
		return
	}

	if s.selected() {
		state.AdvanceBookmark(s.def.ID, s.def.ReplicationKey, s.deps.StartDate, candidate)
	}
	for _, child := range s.children {
		if s.deps.Catalog.IsSelected(child.ID()) {
			state.AdvanceBookmark(child.ID(), s.def.SharedBookmarkKey(), s.deps.StartDate, candidate)
		}
	}
}
