package stream

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tap_amazon_ads/internal/domain"
)

func TestDefinitions_AreValid(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	defs := reg.Definitions()
	assert.Len(t, defs, 32)

	for _, def := range defs {
		assert.NotEmpty(t, def.KeyProperties, def.ID)
		if def.Incremental() {
			assert.NotEmpty(t, def.ReplicationKey, def.ID)
		}
	}
}

func TestDefinitions_Wiring(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	tests := map[string][]string{
		"sponsored_brands_campaigns":     {"sponsored_brands_bid_recommendations", "sponsored_brands_campaigns_budget_rules"},
		"sponsored_brands_ads":           {"sponsored_brands_ad_creatives"},
		"sponsored_display_campaigns":    {"sponsored_display_campaigns_budget_rules"},
		"sponsored_display_budget_rules": {"sponsored_display_budget_rules_campaigns"},
		"sponsored_brands_budget_rules":  {"sponsored_brands_budget_rules_campaigns"},
	}
	for parent, children := range tests {
		def, ok := reg.Get(parent)
		require.True(t, ok, parent)
		assert.Equal(t, children, def.Children, parent)
	}

	ads, _ := reg.Get("sponsored_brands_ads")
	assert.True(t, ads.SharesBookmark)
	assert.Equal(t, "sponsored_brands_ads_extendedData.lastUpdateDate", ads.SharedBookmarkKey())

	invoices, _ := reg.Get("invoices")
	assert.Equal(t, PaginationParams, invoices.Pagination)
	assert.Equal(t, "nextCursor", invoices.nextPageKey())
	assert.Equal(t, "cursor", invoices.pageTokenField())
}

func TestRegistry_BuildRoots(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	roots, err := reg.Build(testDeps(nil, selecting(), nil), []string{
		"profiles",
		"sponsored_brands_ad_creatives",
		"sponsored_brands_campaigns_budget_rules",
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(roots))
	for _, r := range roots {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"profiles", "sponsored_brands_campaigns", "sponsored_brands_ads"}, ids)

	// only the selected branch of sponsored_brands_campaigns is built
	require.Len(t, roots[1].Children(), 1)
	assert.Equal(t, "sponsored_brands_campaigns_budget_rules", roots[1].Children()[0].ID())
	assert.IsType(t, &Incremental{}, roots[1].Children()[0])

	assert.IsType(t, &FullTable{}, roots[0])
	assert.Empty(t, roots[0].Children())
}

func TestRegistry_BuildUnknownStream(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	_, err = reg.Build(testDeps(nil, selecting(), nil), []string{"nope"})
	assert.Error(t, err)
}

func TestRegistry_BuildNothingSelected(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	roots, err := reg.Build(testDeps(nil, selecting(), nil), nil)
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestNewRegistry_RejectsBadWiring(t *testing.T) {
	parent := Definition{ID: "p", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "p", Children: []string{"c"}}
	child := Definition{ID: "c", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "c", Parent: "p"}

	tests := map[string][]Definition{
		"duplicate":      {parent, child, child},
		"unknown child":  {parent},
		"unknown parent": {child},
		"asymmetric child": {
			parent,
			{ID: "c", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "c"},
		},
		"asymmetric parent": {
			{ID: "p", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "p"},
			child,
		},
		"shared bookmark without children": {
			{ID: "s", Replication: ReplicationIncremental, ReplicationKey: "k", HTTPMethod: http.MethodGet, Path: "s", SharesBookmark: true},
		},
	}

	for name, defs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(defs)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestDefinition_Validate(t *testing.T) {
	valid := Definition{ID: "s", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "s"}
	require.NoError(t, valid.Validate())

	tests := map[string]func(d *Definition){
		"no id":                     func(d *Definition) { d.ID = "" },
		"no path":                   func(d *Definition) { d.Path = "" },
		"incremental without key":   func(d *Definition) { d.Replication = ReplicationIncremental },
		"unknown replication":       func(d *Definition) { d.Replication = "LOG_BASED" },
		"unsupported method":        func(d *Definition) { d.HTTPMethod = http.MethodPut },
		"body pagination on get":    func(d *Definition) { d.Pagination = PaginationBody },
		"unknown pagination":        func(d *Definition) { d.Pagination = Pagination(9) },
		"parent fields sans parent": func(d *Definition) { d.ParentBodyFields = map[string]string{"a": "b"} },
		"full table sharing":        func(d *Definition) { d.SharesBookmark = true },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			d := valid
			mutate(&d)
			assert.ErrorIs(t, d.Validate(), ErrInvalidDefinition)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	reg, err := NewRegistry(Definitions())
	require.NoError(t, err)

	bids, _ := reg.Get("sponsored_brands_bid_recommendations")
	req, err := bids.buildRequest(domain.Record{"campaignId": "c-9"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "c-9", req.Body["campaignId"])
	assert.Equal(t, "application/vnd.sbbidsrecommendation.v3+json", req.Headers["Accept"])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])

	_, err = bids.buildRequest(nil)
	assert.Error(t, err)

	campaigns, _ := reg.Get("sponsored_brands_campaigns")
	req, err = campaigns.buildRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, true, req.Body["includeExtendedDataFields"])
	assert.Equal(t, "application/vnd.sbcampaignresource.v4+json", req.Headers["Content-Type"])

	rules, _ := reg.Get("sponsored_brands_campaigns_budget_rules")
	req, err = rules.buildRequest(domain.Record{"campaignId": "a/b"})
	require.NoError(t, err)
	assert.Equal(t, "sb/campaigns/a%2Fb/budgetRules", req.Path)
}

func TestBuildRequest_Prefer(t *testing.T) {
	def := Definition{ID: "s", Replication: ReplicationFullTable, HTTPMethod: http.MethodGet, Path: "s", Prefer: "return=representation"}

	req, err := def.buildRequest(nil)

	require.NoError(t, err)
	assert.Equal(t, "return=representation", req.Headers["Prefer"])
}
