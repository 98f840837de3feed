package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tap_amazon_ads/internal/domain"
	"tap_amazon_ads/internal/stream"
)

func TestDiscover_GeneratesEntries(t *testing.T) {
	c := Discover(stream.Definitions())

	e, ok := c.Entry("sponsored_brands_ads")
	require.True(t, ok)
	assert.Equal(t, []string{"adId"}, e.KeyProperties)
	assert.False(t, c.IsSelected("sponsored_brands_ads"))

	meta := e.streamMetadata()
	assert.Equal(t, "INCREMENTAL", meta["forced-replication-method"])
	assert.Equal(t, []string{"extendedData.lastUpdateDate"}, meta["valid-replication-keys"])

	props := e.Schema["properties"].(map[string]any)
	assert.Contains(t, props, "adId")
	nested := props["extendedData"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "date-time", nested["lastUpdateDate"].(map[string]any)["format"])
	assert.Equal(t, true, e.Schema["additionalProperties"])

	child, _ := c.Entry("sponsored_brands_ad_creatives")
	assert.Equal(t, "sponsored_brands_ads", child.streamMetadata()["parent-tap-stream-id"])
}

func TestLoad_SelectionAndTransform(t *testing.T) {
	doc := `{
  "streams": [
    {
      "tap_stream_id": "portfolios",
      "stream": "portfolios",
      "key_properties": ["portfolioId"],
      "schema": {"type": "object"},
      "metadata": [
        {"breadcrumb": [], "metadata": {"selected": true}},
        {"breadcrumb": ["properties", "portfolioId"], "metadata": {"inclusion": "automatic", "selected": false}},
        {"breadcrumb": ["properties", "budget"], "metadata": {"inclusion": "available", "selected": false}},
        {"breadcrumb": ["properties", "legacy"], "metadata": {"inclusion": "unsupported"}},
        {"breadcrumb": ["properties", "name"], "metadata": {"inclusion": "available", "selected": true}}
      ]
    },
    {
      "tap_stream_id": "profiles",
      "stream": "profiles",
      "key_properties": ["profileId"],
      "schema": {},
      "metadata": [{"breadcrumb": [], "metadata": {"selected": false}}]
    }
  ]
}`
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.IsSelected("portfolios"))
	assert.False(t, c.IsSelected("profiles"))
	assert.False(t, c.IsSelected("missing"))
	assert.Equal(t, []string{"portfolios"}, c.Selected())

	out, err := c.Transform("portfolios", domain.Record{
		"portfolioId": "p1",
		"budget":      10,
		"legacy":      "x",
		"name":        "n",
		"extra":       true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"portfolioId": "p1", "name": "n", "extra": true}, out)

	_, err = c.Transform("missing", domain.Record{})
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSelectAll(t *testing.T) {
	c := Discover(stream.Definitions())
	c.SelectAll()

	assert.Len(t, c.Selected(), len(stream.Definitions()))
}

func TestWrite_CanBeLoadedBack(t *testing.T) {
	c := Discover(stream.Definitions())

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Streams, len(c.Streams))
	_, ok := loaded.Schema("invoices")
	assert.True(t, ok)
}

func TestTransform_NormalizesEpochDateTimes(t *testing.T) {
	c := Discover(stream.Definitions())

	schema, ok := c.Schema("sponsored_display_campaigns")
	require.True(t, ok)
	prop := schema["properties"].(map[string]any)["lastUpdatedDate"].(map[string]any)
	assert.Equal(t, "date-time", prop["format"])

	out, err := c.Transform("sponsored_display_campaigns", domain.Record{
		"campaignId":      json.Number("42"),
		"lastUpdatedDate": json.Number("1714979289000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06T07:08:09.000000Z", out["lastUpdatedDate"])
	assert.Equal(t, json.Number("42"), out["campaignId"])
}

func TestTransform_NormalizesNestedEpochWithoutMutatingInput(t *testing.T) {
	c := Discover(stream.Definitions())

	extended := map[string]any{"lastUpdateDateTime": float64(1714979289000), "servingStatus": "ENABLED"}
	out, err := c.Transform("portfolios", domain.Record{"portfolioId": "p1", "extendedData": extended})
	require.NoError(t, err)

	nested := out["extendedData"].(map[string]any)
	assert.Equal(t, "2024-05-06T07:08:09.000000Z", nested["lastUpdateDateTime"])
	assert.Equal(t, "ENABLED", nested["servingStatus"])
	assert.Equal(t, float64(1714979289000), extended["lastUpdateDateTime"])
}

func TestTransform_LeavesStringDateTimes(t *testing.T) {
	c := Discover(stream.Definitions())

	out, err := c.Transform("invoices", domain.Record{"id": "i1", "invoiceDate": "20240506"})
	require.NoError(t, err)
	assert.Equal(t, "20240506", out["invoiceDate"])
}
