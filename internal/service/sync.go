package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tap_amazon_ads/internal/catalog"
	"tap_amazon_ads/internal/config"
	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/metrics"
	"tap_amazon_ads/internal/output"
	"tap_amazon_ads/internal/stream"
)

type SyncService struct {
	streams StreamBuilder
	catalog Catalog
	client  stream.Doer
	state   StateStore
	emitter Emitter
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  config.SyncConfig
	now     func() time.Time
}

type Option func(*SyncService)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SyncService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *SyncService) { s.now = now }
}

func NewSyncService(
	streams StreamBuilder,
	cat Catalog,
	client stream.Doer,
	state StateStore,
	emitter Emitter,
	logger *slog.Logger,
	cfg config.SyncConfig,
	opts ...Option,
) *SyncService {
	s := &SyncService{
		streams: streams,
		catalog: cat,
		client:  client,
		state:   state,
		emitter: emitter,
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs every selected stream once. Root streams run in registry order;
// after each root its state is emitted and persisted, so a failure leaves the
// bookmarks of completed roots saved.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := s.now()
	stats := domain.NewSyncStats()

	state, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	selected := s.catalog.Selected()
	s.logger.Info("starting sync",
		"selected", len(selected),
		"start_date", s.config.StartDate,
	)

	writer := &recordWriter{ctx: ctx, emitter: s.emitter, stats: stats, now: s.now}
	roots, err := s.streams.Build(stream.Deps{
		Client:    s.client,
		Catalog:   s.catalog,
		Writer:    writer,
		StartDate: s.config.StartDate,
		Logger:    s.logger,
		Metrics:   s.metrics,
	}, selected)
	if err != nil {
		return nil, fmt.Errorf("build streams: %w", err)
	}

	for _, root := range roots {
		if err := s.syncRoot(ctx, root, state, stats); err != nil {
			stats.Duration = s.now().Sub(startTime)
			return stats, err
		}
	}

	stats.Duration = s.now().Sub(startTime)
	s.logger.Info("sync completed",
		"records", stats.Records,
		"streams", len(stats.Streams),
		"duration", stats.Duration,
	)
	return stats, nil
}

func (s *SyncService) syncRoot(ctx context.Context, root stream.Stream, state *domain.State, stats *domain.SyncStats) error {
	if err := s.emitSchemas(ctx, root); err != nil {
		return err
	}

	s.logger.Info("syncing stream", "stream", root.ID())
	before := stats.Records

	if _, err := root.Sync(ctx, state, nil); err != nil {
		return fmt.Errorf("sync %s: %w", root.ID(), err)
	}

	if err := s.emitter.Emit(ctx, output.StateMessage(state)); err != nil {
		return fmt.Errorf("emit state: %w", err)
	}
	if err := s.state.Save(ctx, state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	s.logger.Info("stream synced", "stream", root.ID(), "records", stats.Records-before)
	return nil
}

// emitSchemas announces every selected stream in the subtree of st.
func (s *SyncService) emitSchemas(ctx context.Context, st stream.Stream) error {
	def := st.Definition()
	if s.catalog.IsSelected(def.ID) {
		schema, ok := s.catalog.Schema(def.ID)
		if !ok || schema == nil {
			schema = catalog.Schema(def)
		}
		msg := output.SchemaMessage(def.ID, schema, def.KeyProperties, def.ReplicationKey)
		if err := s.emitter.Emit(ctx, msg); err != nil {
			return fmt.Errorf("emit %s schema: %w", def.ID, err)
		}
	}
	for _, child := range st.Children() {
		if err := s.emitSchemas(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// Discover writes a catalog for defs with nothing selected.
func Discover(w io.Writer, defs []stream.Definition) error {
	return catalog.Discover(defs).Write(w)
}

// recordWriter turns records into RECORD messages for one run. It holds the
// run context because stream.RecordWriter carries none.
type recordWriter struct {
	ctx     context.Context
	emitter Emitter
	stats   *domain.SyncStats
	now     func() time.Time
}

func (w *recordWriter) WriteRecord(streamID string, record domain.Record) error {
	if err := w.emitter.Emit(w.ctx, output.RecordMessage(streamID, record, w.now())); err != nil {
		return err
	}
	w.stats.Add(streamID, 1)
	return nil
}
