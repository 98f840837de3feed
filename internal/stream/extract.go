package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"tap_amazon_ads/internal/client"
	"tap_amazon_ads/internal/domain"
)

var (
	ErrMissingDataKey     = errors.New("object response without a configured data key")
	ErrUnexpectedResponse = errors.New("unexpected response type")
)

// Doer issues vendor API requests.
type Doer interface {
	Do(ctx context.Context, req client.Request) (any, error)
}

// records pages through req and yields raw records lazily. An error ends the
// sequence.
func (b *base) records(ctx context.Context, req client.Request) iter.Seq2[domain.Record, error] {
	return func(yield func(domain.Record, error) bool) {
		page := 0
		for {
			page++
			resp, err := b.deps.Client.Do(ctx, req)
			if err != nil {
				yield(nil, err)
				return
			}

			items, token, err := b.parsePage(resp)
			if err != nil {
				yield(nil, err)
				return
			}

			b.logger.Debug("page fetched", "page", page, "records", len(items))

			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					yield(nil, fmt.Errorf("%w: %s record is %T", ErrUnexpectedResponse, b.def.ID, item))
					return
				}
				if !yield(domain.Record(obj), nil) {
					return
				}
			}

			if token == nil || b.def.Pagination == PaginationNone {
				return
			}
			req = b.def.withPageToken(req, token)
		}
	}
}

// parsePage splits a response into its records and the next page token.
// A list is a complete, unpaginated batch.
func (b *base) parsePage(resp any) ([]any, any, error) {
	switch body := resp.(type) {
	case []any:
		return body, nil, nil
	case map[string]any:
		if b.def.DataKey == "" {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingDataKey, b.def.ID)
		}

		var items []any
		switch v := body[b.def.DataKey].(type) {
		case nil:
		case []any:
			items = v
		default:
			return nil, nil, fmt.Errorf("%w: %s.%s is %T", ErrUnexpectedResponse, b.def.ID, b.def.DataKey, v)
		}

		token := body[b.def.nextPageKey()]
		if s, ok := token.(string); ok && s == "" {
			token = nil
		}
		return items, token, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedResponse, b.def.ID, resp)
	}
}
