package stream

import (
	"context"
	"log/slog"
	"os"

	"tap_amazon_ads/internal/client"
	"tap_amazon_ads/internal/domain"
)

const testStartDate = "2024-01-01T00:00:00Z"

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeDoer struct {
	calls   []client.Request
	respond func(n int, req client.Request) (any, error)
}

func (d *fakeDoer) Do(_ context.Context, req client.Request) (any, error) {
	d.calls = append(d.calls, req)
	return d.respond(len(d.calls), req)
}

// pages answers the n-th call with the n-th response.
func pages(responses ...any) func(int, client.Request) (any, error) {
	return func(n int, _ client.Request) (any, error) {
		if n > len(responses) {
			return []any{}, nil
		}
		return responses[n-1], nil
	}
}

type fakeCatalog struct {
	selected map[string]bool
}

func selecting(ids ...string) fakeCatalog {
	c := fakeCatalog{selected: map[string]bool{}}
	for _, id := range ids {
		c.selected[id] = true
	}
	return c
}

func (c fakeCatalog) IsSelected(stream string) bool { return c.selected[stream] }

func (c fakeCatalog) Transform(_ string, record domain.Record) (domain.Record, error) {
	return record, nil
}

type written struct {
	stream string
	record domain.Record
}

type recordingWriter struct {
	records []written
}

func (w *recordingWriter) WriteRecord(stream string, record domain.Record) error {
	w.records = append(w.records, written{stream: stream, record: record})
	return nil
}

func (w *recordingWriter) ids(stream, field string) []any {
	var out []any
	for _, r := range w.records {
		if r.stream == stream {
			out = append(out, r.record[field])
		}
	}
	return out
}

// spyStream records the parent context of every invocation.
type spyStream struct {
	def     Definition
	parents []domain.Record
	err     error
}

func (s *spyStream) ID() string { return s.def.ID }
func (s *spyStream) Definition() Definition { return s.def }
func (s *spyStream) Children() []Stream { return nil }

func (s *spyStream) Sync(_ context.Context, _ *domain.State, parent domain.Record) (int, error) {
	s.parents = append(s.parents, parent)
	return 0, s.err
}

func obj(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func testDeps(doer Doer, cat Catalog, w RecordWriter) Deps {
	return Deps{
		Client:    doer,
		Catalog:   cat,
		Writer:    w,
		StartDate: testStartDate,
		Logger:    testLogger,
	}
}
