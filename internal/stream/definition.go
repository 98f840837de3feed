package stream

import (
	"errors"
	"fmt"
	"net/http"

	"tap_amazon_ads/internal/domain"
)

type Replication string

const (
	ReplicationIncremental Replication = "INCREMENTAL"
	ReplicationFullTable   Replication = "FULL_TABLE"
)

// Pagination says where the next page token travels on the follow-up request.
type Pagination int

const (
	PaginationNone Pagination = iota
	PaginationParams
	PaginationBody
)

func (p Pagination) String() string {
	switch p {
	case PaginationNone:
		return "none"
	case PaginationParams:
		return "params"
	case PaginationBody:
		return "body"
	}
	return fmt.Sprintf("pagination(%d)", int(p))
}

const (
	DefaultNextPageKey = "nextToken"
	defaultMediaType   = "application/json"
)

var ErrInvalidDefinition = errors.New("invalid stream definition")

// ModifyFunc enriches a raw record with parent context before it is transformed.
type ModifyFunc func(record, parent domain.Record) domain.Record

// Definition is the declarative description of one vendor entity stream.
type Definition struct {
	ID            string
	KeyProperties []string
	Replication   Replication
	// ReplicationKey is a dotted path into the record.
	ReplicationKey string

	HTTPMethod  string
	Path        string
	Accept      string
	ContentType string
	Prefer      string

	DataKey        string
	Pagination     Pagination
	NextPageKey    string
	PageTokenField string
	PageSize       int

	StaticParams map[string]string
	StaticBody   map[string]any
	// ParentBodyFields maps outgoing body field -> parent record path.
	ParentBodyFields map[string]string
	Modify           ModifyFunc

	Parent   string
	Children []string
	// SharesBookmark makes the stream drive its children's replication cadence
	// through composite "<id>_<replication key>" bookmarks.
	SharesBookmark bool
}

func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDefinition)
	}
	if d.Path == "" {
		return fmt.Errorf("%w: %s: missing path", ErrInvalidDefinition, d.ID)
	}
	switch d.Replication {
	case ReplicationIncremental:
		if d.ReplicationKey == "" {
			return fmt.Errorf("%w: %s: incremental stream without replication key", ErrInvalidDefinition, d.ID)
		}
	case ReplicationFullTable:
		if d.SharesBookmark {
			return fmt.Errorf("%w: %s: full table stream cannot share bookmarks", ErrInvalidDefinition, d.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown replication method %q", ErrInvalidDefinition, d.ID, d.Replication)
	}
	switch d.HTTPMethod {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("%w: %s: unsupported method %q", ErrInvalidDefinition, d.ID, d.HTTPMethod)
	}
	switch d.Pagination {
	case PaginationNone, PaginationParams:
	case PaginationBody:
		if d.HTTPMethod != http.MethodPost {
			return fmt.Errorf("%w: %s: body pagination needs POST", ErrInvalidDefinition, d.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown pagination mode %d", ErrInvalidDefinition, d.ID, int(d.Pagination))
	}
	if len(d.ParentBodyFields) > 0 && d.Parent == "" {
		return fmt.Errorf("%w: %s: parent body fields without a parent", ErrInvalidDefinition, d.ID)
	}
	if d.ID == d.Parent {
		return fmt.Errorf("%w: %s: stream is its own parent", ErrInvalidDefinition, d.ID)
	}
	return nil
}

func (d Definition) nextPageKey() string {
	if d.NextPageKey == "" {
		return DefaultNextPageKey
	}
	return d.NextPageKey
}

func (d Definition) pageTokenField() string {
	if d.PageTokenField == "" {
		return d.nextPageKey()
	}
	return d.PageTokenField
}

func (d Definition) headers() map[string]string {
	headers := map[string]string{
		"Accept":       defaultMediaType,
		"Content-Type": defaultMediaType,
	}
	if d.Accept != "" {
		headers["Accept"] = d.Accept
	}
	if d.ContentType != "" {
		headers["Content-Type"] = d.ContentType
	}
	if d.Prefer != "" {
		headers["Prefer"] = d.Prefer
	}
	return headers
}

// SharedBookmarkKey is the key under which this stream records its cadence in
// each child's bookmarks.
func (d Definition) SharedBookmarkKey() string {
	return d.ID + "_" + d.ReplicationKey
}

func (d Definition) Incremental() bool {
	return d.Replication == ReplicationIncremental
}
