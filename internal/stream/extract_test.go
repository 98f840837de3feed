package stream

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tap_amazon_ads/internal/client"
	"tap_amazon_ads/internal/domain"
)

func collect(t *testing.T, b *base, req client.Request) ([]domain.Record, error) {
	t.Helper()
	var out []domain.Record
	for r, err := range b.records(context.Background(), req) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestBase(def Definition, doer Doer) *base {
	b := newBase(def, testDeps(doer, selecting(def.ID), &recordingWriter{}), nil)
	return &b
}

func TestRecords_ListIsSinglePage(t *testing.T) {
	doer := &fakeDoer{respond: pages([]any{obj("id", "1"), obj("id", "2")}, []any{obj("id", "3")})}
	def := Definition{ID: "profiles", HTTPMethod: http.MethodGet, Path: "v2/profiles", Pagination: PaginationParams}

	got, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodGet})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, doer.calls, 1)
}

func TestRecords_BodyPagination(t *testing.T) {
	doer := &fakeDoer{respond: pages(
		map[string]any{"campaigns": []any{obj("campaignId", "1")}, "nextToken": "t1"},
		map[string]any{"campaigns": []any{obj("campaignId", "2")}, "nextToken": "t2"},
		map[string]any{"campaigns": []any{obj("campaignId", "3")}},
	)}
	def := Definition{
		ID:         "sponsored_brands_campaigns",
		HTTPMethod: http.MethodPost,
		Path:       "sb/v4/campaigns/list",
		DataKey:    "campaigns",
		Pagination: PaginationBody,
		StaticBody: map[string]any{"includeExtendedDataFields": true},
	}

	req, err := def.buildRequest(nil)
	require.NoError(t, err)

	got, err := collect(t, newTestBase(def, doer), req)

	require.NoError(t, err)
	assert.Len(t, got, 3)
	require.Len(t, doer.calls, 3)
	assert.NotContains(t, doer.calls[0].Body, "nextToken")
	assert.Equal(t, "t1", doer.calls[1].Body["nextToken"])
	assert.Equal(t, "t2", doer.calls[2].Body["nextToken"])
	assert.Equal(t, true, doer.calls[2].Body["includeExtendedDataFields"])

	// the request handed in is never mutated
	assert.NotContains(t, req.Body, "nextToken")
	assert.NotContains(t, def.StaticBody, "nextToken")
}

func TestRecords_ParamsPaginationWithCustomField(t *testing.T) {
	doer := &fakeDoer{respond: pages(
		map[string]any{"invoiceSummaries": []any{obj("id", "a")}, "nextCursor": "c1"},
		map[string]any{"invoiceSummaries": []any{obj("id", "b")}, "nextCursor": ""},
	)}
	def := Definition{
		ID:             "invoices",
		HTTPMethod:     http.MethodGet,
		Path:           "invoices",
		DataKey:        "invoiceSummaries",
		Pagination:     PaginationParams,
		NextPageKey:    "nextCursor",
		PageTokenField: "cursor",
	}

	req, err := def.buildRequest(nil)
	require.NoError(t, err)

	got, err := collect(t, newTestBase(def, doer), req)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, doer.calls, 2)
	assert.Empty(t, doer.calls[0].Params["cursor"])
	assert.Equal(t, "c1", doer.calls[1].Params["cursor"])
	assert.NotContains(t, doer.calls[1].Params, "nextCursor")
}

func TestRecords_NoPaginationIgnoresToken(t *testing.T) {
	doer := &fakeDoer{respond: pages(
		map[string]any{"requestStatusList": []any{obj("requestId", "1")}, "nextToken": "more"},
	)}
	def := Definition{ID: "sponsored_display_brand_safety_list", HTTPMethod: http.MethodGet, Path: "sd/brandSafety/status", DataKey: "requestStatusList"}

	got, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodGet})

	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, doer.calls, 1)
}

func TestRecords_MissingRecordsKeyIsEmptyPage(t *testing.T) {
	doer := &fakeDoer{respond: pages(map[string]any{"totalResults": 0})}
	def := Definition{ID: "portfolios", HTTPMethod: http.MethodPost, Path: "portfolios/list", DataKey: "portfolios", Pagination: PaginationBody}

	got, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodPost})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecords_ObjectWithoutDataKeyIsFatal(t *testing.T) {
	doer := &fakeDoer{respond: pages(map[string]any{"items": []any{}})}
	def := Definition{ID: "sd", HTTPMethod: http.MethodGet, Path: "x"}

	_, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodGet})

	assert.ErrorIs(t, err, ErrMissingDataKey)
}

func TestRecords_UnexpectedBodies(t *testing.T) {
	def := Definition{ID: "s", HTTPMethod: http.MethodGet, Path: "x", DataKey: "items"}

	for name, body := range map[string]any{
		"scalar":        "nope",
		"records field": map[string]any{"items": "nope"},
		"record item":   []any{"nope"},
	} {
		t.Run(name, func(t *testing.T) {
			doer := &fakeDoer{respond: pages(body)}
			_, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodGet})
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
		})
	}
}

func TestRecords_ClientErrorEndsSequence(t *testing.T) {
	wantErr := client.RaiseForStatus(http.StatusForbidden, nil)
	doer := &fakeDoer{respond: func(n int, _ client.Request) (any, error) {
		if n == 1 {
			return map[string]any{"ads": []any{obj("adId", "1")}, "nextToken": "t"}, nil
		}
		return nil, wantErr
	}}
	def := Definition{ID: "ads", HTTPMethod: http.MethodPost, Path: "x", DataKey: "ads", Pagination: PaginationBody}

	got, err := collect(t, newTestBase(def, doer), client.Request{Method: http.MethodPost})

	assert.Len(t, got, 1)
	assert.True(t, errors.Is(err, client.ErrForbidden))
}

func TestRecords_StopsFetchingWhenConsumerStops(t *testing.T) {
	doer := &fakeDoer{respond: func(int, client.Request) (any, error) {
		return map[string]any{"ads": []any{obj("adId", "1"), obj("adId", "2")}, "nextToken": "again"}, nil
	}}
	def := Definition{ID: "ads", HTTPMethod: http.MethodPost, Path: "x", DataKey: "ads", Pagination: PaginationBody}
	b := newTestBase(def, doer)

	for range b.records(context.Background(), client.Request{Method: http.MethodPost}) {
		break
	}

	assert.Len(t, doer.calls, 1)
}
