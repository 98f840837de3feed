package stream

import (
	"net/http"

	"tap_amazon_ads/internal/domain"
)

const (
	lastUpdateDateTime = "extendedData.lastUpdateDateTime"
	lastUpdateDate     = "extendedData.lastUpdateDate"
)

var extendedData = map[string]any{"includeExtendedDataFields": true}

// Definitions returns the vendor streams.
func Definitions() []Definition {
	return []Definition{
		{
			ID:            "profiles",
			KeyProperties: []string{"profileId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "v2/profiles",
		},
		{
			ID:             "portfolios",
			KeyProperties:  []string{"portfolioId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "portfolios/list",
			DataKey:        "portfolios",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "invoices",
			KeyProperties:  []string{"id"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "invoiceDate",
			HTTPMethod:     http.MethodGet,
			Path:           "invoices",
			ContentType:    "application/vnd.invoices.v1.1+json",
			DataKey:        "invoiceSummaries",
			Pagination:     PaginationParams,
			NextPageKey:    "nextCursor",
			PageTokenField: "cursor",
		},

		// Sponsored Display
		{
			ID:             "sponsored_display_campaigns",
			KeyProperties:  []string{"campaignId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/campaigns/extended",
			Children:       []string{"sponsored_display_campaigns_budget_rules"},
		},
		{
			ID:             "sponsored_display_campaigns_budget_rules",
			KeyProperties:  []string{"ruleId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/campaigns/{campaignId}/budgetRules",
			DataKey:        "associatedRules",
			Parent:         "sponsored_display_campaigns",
			Modify:         inheritField("campaignId"),
		},
		{
			ID:             "sponsored_display_ad_groups",
			KeyProperties:  []string{"adGroupId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/adGroups/extended",
		},
		{
			ID:             "sponsored_display_product_ads",
			KeyProperties:  []string{"adId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdateDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/productAds/extended",
		},
		{
			ID:             "sponsored_display_targetings",
			KeyProperties:  []string{"targetId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/targets/extended",
		},
		{
			ID:             "sponsored_display_budget_rules",
			KeyProperties:  []string{"ruleId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdateDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/budgetRules",
			DataKey:        "budgetRulesForAdvertiserResponse",
			Pagination:     PaginationParams,
			PageSize:       30,
			Children:       []string{"sponsored_display_budget_rules_campaigns"},
		},
		{
			ID:            "sponsored_display_budget_rules_campaigns",
			KeyProperties: []string{"campaignId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sd/budgetRules/{ruleId}/campaigns",
			DataKey:       "associatedCampaigns",
			Pagination:    PaginationParams,
			PageSize:      30,
			Parent:        "sponsored_display_budget_rules",
			Modify:        inheritField("ruleId"),
		},
		{
			ID:            "sponsored_display_brand_safety_list",
			KeyProperties: []string{"requestId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sd/brandSafety/status",
			DataKey:       "requestStatusList",
		},
		{
			ID:             "sponsored_display_negative_targeting_clauses",
			KeyProperties:  []string{"targetId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sd/negativeTargets/extended",
		},
		{
			ID:            "sponsored_display_creatives",
			KeyProperties: []string{"creativeId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sd/creatives",
		},

		// Sponsored Brands
		{
			ID:             "sponsored_brands_campaigns",
			KeyProperties:  []string{"campaignId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDate,
			HTTPMethod:     http.MethodPost,
			Path:           "sb/v4/campaigns/list",
			Accept:         "application/vnd.sbcampaignresource.v4+json",
			ContentType:    "application/vnd.sbcampaignresource.v4+json",
			DataKey:        "campaigns",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
			Children: []string{
				"sponsored_brands_bid_recommendations",
				"sponsored_brands_campaigns_budget_rules",
			},
		},
		{
			ID:               "sponsored_brands_bid_recommendations",
			KeyProperties:    []string{"recommendationId"},
			Replication:      ReplicationFullTable,
			HTTPMethod:       http.MethodPost,
			Path:             "sb/recommendations/bids",
			Accept:           "application/vnd.sbbidsrecommendation.v3+json",
			DataKey:          "keywordsBidsRecommendationSuccessResults",
			ParentBodyFields: map[string]string{"campaignId": "campaignId"},
			Parent:           "sponsored_brands_campaigns",
			Modify:           inheritField("campaignId"),
		},
		{
			ID:             "sponsored_brands_campaigns_budget_rules",
			KeyProperties:  []string{"ruleId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sb/campaigns/{campaignId}/budgetRules",
			DataKey:        "associatedRules",
			Parent:         "sponsored_brands_campaigns",
			Modify:         inheritField("campaignId"),
		},
		{
			ID:             "sponsored_brands_ad_groups",
			KeyProperties:  []string{"adGroupId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sb/v4/adGroups/list",
			DataKey:        "adGroups",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_brands_ads",
			KeyProperties:  []string{"adId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDate,
			HTTPMethod:     http.MethodPost,
			Path:           "sb/v4/ads/list",
			Accept:         "application/vnd.sbadresource.v4+json",
			ContentType:    "application/vnd.sbadresource.v4+json",
			DataKey:        "ads",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
			Children:       []string{"sponsored_brands_ad_creatives"},
			SharesBookmark: true,
		},
		{
			ID:               "sponsored_brands_ad_creatives",
			KeyProperties:    []string{"adId"},
			Replication:      ReplicationIncremental,
			ReplicationKey:   "lastUpdateTime",
			HTTPMethod:       http.MethodPost,
			Path:             "sb/ads/creatives/list",
			DataKey:          "creatives",
			Pagination:       PaginationBody,
			ParentBodyFields: map[string]string{"adId": "adId"},
			Parent:           "sponsored_brands_ads",
			Modify:           inheritField("adId"),
		},
		{
			ID:            "sponsored_brands_keywords",
			KeyProperties: []string{"keywordId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sb/keywords",
		},
		{
			ID:            "sponsored_brands_negative_keywords",
			KeyProperties: []string{"keywordId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sb/negativeKeywords",
			Accept:        "application/vnd.sbnegativekeyword.v3.2+json",
		},
		{
			ID:            "sponsored_brands_negative_targets",
			KeyProperties: []string{"targetId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodPost,
			Path:          "sb/negativeTargets/list",
			DataKey:       "negativeTargets",
			Pagination:    PaginationBody,
		},
		{
			ID:            "sponsored_brands_product_targets",
			KeyProperties: []string{"targetId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodPost,
			Path:          "sb/targets/list",
			DataKey:       "targets",
			Pagination:    PaginationBody,
		},
		{
			ID:            "sponsored_brands_store_assets",
			KeyProperties: []string{"assetID"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "stores/assets",
		},
		{
			ID:             "sponsored_brands_budget_rules",
			KeyProperties:  []string{"ruleId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sb/budgetRules",
			DataKey:        "budgetRulesForAdvertiserResponse",
			Pagination:     PaginationParams,
			Children:       []string{"sponsored_brands_budget_rules_campaigns"},
		},
		{
			ID:            "sponsored_brands_budget_rules_campaigns",
			KeyProperties: []string{"campaignId"},
			Replication:   ReplicationFullTable,
			HTTPMethod:    http.MethodGet,
			Path:          "sb/budgetRules/{ruleId}/campaigns",
			DataKey:       "associatedCampaigns",
			Pagination:    PaginationParams,
			PageSize:      30,
			Parent:        "sponsored_brands_budget_rules",
			Modify:        inheritField("ruleId"),
		},

		// Sponsored Products
		{
			ID:             "sponsored_products_campaigns",
			KeyProperties:  []string{"campaignId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sp/campaigns/list",
			DataKey:        "campaigns",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_products_ad_groups",
			KeyProperties:  []string{"adGroupId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sp/adGroups/list",
			DataKey:        "adGroups",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_products_keywords",
			KeyProperties:  []string{"keywordId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sp/keywords/list",
			DataKey:        "keywords",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_products_negative_keywords",
			KeyProperties:  []string{"keywordId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sp/negativeKeywords/list",
			DataKey:        "negativeKeywords",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_products_ads",
			KeyProperties:  []string{"adId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: lastUpdateDateTime,
			HTTPMethod:     http.MethodPost,
			Path:           "sp/productAds/list",
			DataKey:        "productAds",
			Pagination:     PaginationBody,
			StaticBody:     extendedData,
		},
		{
			ID:             "sponsored_products_budget_rules",
			KeyProperties:  []string{"ruleId"},
			Replication:    ReplicationIncremental,
			ReplicationKey: "lastUpdatedDate",
			HTTPMethod:     http.MethodGet,
			Path:           "sp/budgetRules",
			DataKey:        "budgetRulesForAdvertiserResponse",
			Pagination:     PaginationParams,
		},
	}
}

// inheritField copies field from the parent record unless the record already has it.
func inheritField(field string) ModifyFunc {
	return func(record, parent domain.Record) domain.Record {
		if _, ok := record[field]; ok {
			return record
		}
		if v, ok := parent.Lookup(field); ok {
			record[field] = v
		}
		return record
	}
}
