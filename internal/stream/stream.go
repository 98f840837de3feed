package stream

import (
	"context"
	"fmt"
	"log/slog"

	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/metrics"
)

// Stream syncs one entity type, optionally nested under a parent record.
type Stream interface {
	ID() string
	Definition() Definition
	Children() []Stream
	// Sync returns the number of records this stream emitted.
	Sync(ctx context.Context, state *domain.State, parent domain.Record) (int, error)
}

// Catalog answers selection and shapes records before they are written.
type Catalog interface {
	IsSelected(stream string) bool
	Transform(stream string, record domain.Record) (domain.Record, error)
}

type RecordWriter interface {
	WriteRecord(stream string, record domain.Record) error
}

// Deps are shared by every stream of a run.
type Deps struct {
	Client    Doer
	Catalog   Catalog
	Writer    RecordWriter
	StartDate string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

type base struct {
	def      Definition
	deps     Deps
	children []Stream
	logger   *slog.Logger
}

func newBase(def Definition, deps Deps, children []Stream) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		def:      def,
		deps:     deps,
		children: children,
		logger:   logger.With("stream", def.ID),
	}
}

func (b *base) ID() string { return b.def.ID }

func (b *base) Definition() Definition { return b.def }

func (b *base) Children() []Stream { return b.children }

func (b *base) selected() bool {
	return b.deps.Catalog.IsSelected(b.def.ID)
}

// prepare runs enrichment and the catalog transform. The enriched record is
// what children receive as parent context.
func (b *base) prepare(raw, parent domain.Record) (enriched, out domain.Record, err error) {
	enriched = raw
	if b.def.Modify != nil {
		enriched = b.def.Modify(raw.Clone(), parent)
	}
	out, err = b.deps.Catalog.Transform(b.def.ID, enriched)
	if err != nil {
		return nil, nil, fmt.Errorf("transform %s record: %w", b.def.ID, err)
	}
	return enriched, out, nil
}

// emit writes rec when the stream is selected and reports whether it did.
func (b *base) emit(rec domain.Record) (bool, error) {
	if !b.selected() {
		return false, nil
	}
	if err := b.deps.Writer.WriteRecord(b.def.ID, rec); err != nil {
		return false, fmt.Errorf("write %s record: %w", b.def.ID, err)
	}
	b.deps.Metrics.RecordEmitted(b.def.ID)
	return true, nil
}

// syncChildren runs every child to completion for one parent record.
func (b *base) syncChildren(ctx context.Context, state *domain.State, parent domain.Record) error {
	for _, child := range b.children {
		if _, err := child.Sync(ctx, state, parent); err != nil {
			return err
		}
	}
	return nil
}
