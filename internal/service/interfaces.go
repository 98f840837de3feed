package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/output"
	"tap_amazon_ads/internal/stream"
)

type StateStore interface {
	Load(ctx context.Context) (*domain.State, error)
	Save(ctx context.Context, state *domain.State) error
}

type Emitter interface {
	Emit(ctx context.Context, msg output.Message) error
	Close() error
}

type Catalog interface {
	IsSelected(stream string) bool
	Transform(stream string, record domain.Record) (domain.Record, error)
	Selected() []string
	Schema(stream string) (map[string]any, bool)
}

type StreamBuilder interface {
	Build(deps stream.Deps, selected []string) ([]stream.Stream, error)
}
