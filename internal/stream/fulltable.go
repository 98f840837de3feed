package stream

import (
	"context"
	"fmt"

	"tap_amazon_ads/internal/domain"
)

// FullTable re-reads every record on each run. Children are synced for every
// record regardless of selection.
type FullTable struct {
	base
}

func NewFullTable(def Definition, deps Deps, children []Stream) *FullTable {
	return &FullTable{base: newBase(def, deps, children)}
}

func (s *FullTable) Sync(ctx context.Context, state *domain.State, parent domain.Record) (int, error) {
	req, err := s.def.buildRequest(parent)
	if err != nil {
		return 0, err
	}

	s.logger.Info("syncing stream")

	count := 0
	for raw, err := range s.records(ctx, req) {
		if err != nil {
			return count, fmt.Errorf("sync %s: %w", s.def.ID, err)
		}

		enriched, rec, err := s.prepare(raw, parent)
		if err != nil {
			return count, err
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

	s.logger.Info("stream synced", "records", count)
	return count, nil
}
