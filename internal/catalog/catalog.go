package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/stream"
)

const (
	InclusionAutomatic   = "automatic"
	InclusionAvailable   = "available"
	InclusionUnsupported = "unsupported"
)

// Catalog is the Singer discovery document: every stream with its schema and
// selection metadata.
type Catalog struct {
	Streams []*Entry `json:"streams"`

	byID map[string]*Entry
}

type Entry struct {
	TapStreamID   string         `json:"tap_stream_id"`
	Stream        string         `json:"stream"`
	KeyProperties []string       `json:"key_properties"`
	Schema        map[string]any `json:"schema"`
	Metadata      []Metadata     `json:"metadata"`
}

// Metadata applies to the stream (empty breadcrumb) or to one property
// (breadcrumb ["properties", name]).
type Metadata struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// Discover builds an unselected catalog for defs.
func Discover(defs []stream.Definition) *Catalog {
	c := &Catalog{}
	for _, def := range defs {
		c.Streams = append(c.Streams, discoverEntry(def))
	}
	c.index()
	return c
}

func discoverEntry(def stream.Definition) *Entry {
	streamMeta := map[string]any{
		"inclusion":                 InclusionAvailable,
		"table-key-properties":      def.KeyProperties,
		"forced-replication-method": string(def.Replication),
	}
	if def.Incremental() {
		streamMeta["valid-replication-keys"] = []string{def.ReplicationKey}
	}
	if def.Parent != "" {
		streamMeta["parent-tap-stream-id"] = def.Parent
	}

	entry := &Entry{
		TapStreamID:   def.ID,
		Stream:        def.ID,
		KeyProperties: def.KeyProperties,
		Schema:        Schema(def),
		Metadata:      []Metadata{{Breadcrumb: []string{}, Metadata: streamMeta}},
	}

	for _, field := range automaticFields(def) {
		entry.Metadata = append(entry.Metadata, Metadata{
			Breadcrumb: []string{"properties", field},
			Metadata:   map[string]any{"inclusion": InclusionAutomatic},
		})
	}
	return entry
}

// automaticFields are the top-level properties that are always emitted.
func automaticFields(def stream.Definition) []string {
	fields := append([]string(nil), def.KeyProperties...)
	if def.Incremental() {
		top, _, _ := strings.Cut(def.ReplicationKey, ".")
		seen := false
		for _, f := range fields {
			if f == top {
				seen = true
			}
		}
		if !seen {
			fields = append(fields, top)
		}
	}
	return fields
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.index()
	return &c, nil
}

func (c *Catalog) index() {
	c.byID = make(map[string]*Entry, len(c.Streams))
	for _, e := range c.Streams {
		c.byID[e.TapStreamID] = e
	}
}

func (c *Catalog) Entry(id string) (*Entry, bool) {
	if c.byID == nil {
		c.index()
	}
	e, ok := c.byID[id]
	return e, ok
}

func (c *Catalog) IsSelected(id string) bool {
	e, ok := c.Entry(id)
	if !ok {
		return false
	}
	selected, _ := e.streamMetadata()["selected"].(bool)
	return selected
}

// Selected lists selected stream ids in catalog order.
func (c *Catalog) Selected() []string {
	var ids []string
	for _, e := range c.Streams {
		if c.IsSelected(e.TapStreamID) {
			ids = append(ids, e.TapStreamID)
		}
	}
	return ids
}

// SelectAll marks every stream selected.
func (c *Catalog) SelectAll() {
	for _, e := range c.Streams {
		e.streamMetadata()["selected"] = true
	}
}

// Schema returns the stored JSON schema for id.
func (c *Catalog) Schema(id string) (map[string]any, bool) {
	e, ok := c.Entry(id)
	if !ok {
		return nil, false
	}
	return e.Schema, true
}

// Transform drops top-level fields that were explicitly deselected or are
// unsupported. Automatic fields are always kept. Epoch values of date-time
// properties are rewritten in the bookmark layout so records match the schema.
func (c *Catalog) Transform(id string, record domain.Record) (domain.Record, error) {
	e, ok := c.Entry(id)
	if !ok {
		return nil, fmt.Errorf("stream %s not in catalog", id)
	}

	out := make(domain.Record, len(record))
	for field, value := range record {
		if !e.includes(field) {
			continue
		}
		out[field] = value
	}
	normalizeDateTimes(out, e.Schema)
	return out, nil
}

func (c *Catalog) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

func (e *Entry) streamMetadata() map[string]any {
	for i := range e.Metadata {
		if len(e.Metadata[i].Breadcrumb) == 0 {
			if e.Metadata[i].Metadata == nil {
				e.Metadata[i].Metadata = map[string]any{}
			}
			return e.Metadata[i].Metadata
		}
	}
	e.Metadata = append(e.Metadata, Metadata{Breadcrumb: []string{}, Metadata: map[string]any{}})
	return e.Metadata[len(e.Metadata)-1].Metadata
}

func (e *Entry) includes(field string) bool {
	for _, m := range e.Metadata {
		if len(m.Breadcrumb) != 2 || m.Breadcrumb[0] != "properties" || m.Breadcrumb[1] != field {
			continue
		}
		switch m.Metadata["inclusion"] {
		case InclusionAutomatic:
			return true
		case InclusionUnsupported:
			return false
		}
		if selected, ok := m.Metadata["selected"].(bool); ok {
			return selected
		}
		return true
	}
	return true
}
