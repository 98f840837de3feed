package output

import (
	"context"
	"time"

	"tap_amazon_ads/internal/domain"
)

type MessageType string

const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// Message is one line of the Singer protocol.
type Message struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream,omitempty"`
	Schema             map[string]any `json:"schema,omitempty"`
	KeyProperties      []string       `json:"key_properties,omitempty"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
	Record             domain.Record  `json:"record,omitempty"`
	TimeExtracted      *time.Time     `json:"time_extracted,omitempty"`
	Value              *domain.State  `json:"value,omitempty"`
}

// Emitter delivers protocol messages somewhere.
type Emitter interface {
	Emit(ctx context.Context, msg Message) error
	Close() error
}

func SchemaMessage(stream string, schema map[string]any, keys []string, bookmarkKey string) Message {
	msg := Message{
		Type:          TypeSchema,
		Stream:        stream,
		Schema:        schema,
		KeyProperties: keys,
	}
	if bookmarkKey != "" {
		msg.BookmarkProperties = []string{bookmarkKey}
	}
	return msg
}

func RecordMessage(stream string, record domain.Record, extracted time.Time) Message {
	ts := extracted.UTC()
	return Message{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: &ts,
	}
}

// StateMessage snapshots state so later mutation does not leak into queued messages.
func StateMessage(state *domain.State) Message {
	return Message{
		Type:  TypeState,
		Value: state.Clone(),
	}
}
