package sources

import "time"

// builtinTable declares every external grant-data source the service knows
// about. Credentialed sources stay disabled until the resolver finds a key;
// public sources are always enabled.
func builtinTable() []Descriptor {
	return []Descriptor{
		{
			ID:      "grants_gov",
			Name:    "Grants.gov",
			BaseURL: "https://api.grants.gov/v1/api",
			Endpoints: map[string]string{
				"search": "/search2",
				"detail": "/fetchOpportunity",
			},
			Method:             "POST",
			AuthType:           AuthNone,
			CredentialRequired: false,
			RateLimit:          RateLimit{Calls: 60, Period: time.Minute},
			CacheTTL:           60 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 500, 502, 503},
				MaxRetries:    3,
				BackoffFactor: 1.0,
			},
			RecordsPath: "data.oppHits",
			FieldMapping: map[string]string{
				"title":       "title",
				"funder":      "agencyName",
				"deadline":    "closeDate",
				"description": "synopsis",
			},
		},
		{
			ID:      "sam_gov_opportunities",
			Name:    "SAM.gov Contract Opportunities",
			BaseURL: "https://api.sam.gov/opportunities/v2",
			Endpoints: map[string]string{
				"search": "/search",
			},
			Method:              "GET",
			AuthType:            AuthAPIKey,
			AuthHeader:          "X-Api-Key",
			CredentialRequired:  true,
			CredentialEnvVar:    "SAM_GOV_API_KEY",
			CredentialFallbacks: []string{"SAM_API_KEY", "SAMGOV_KEY"},
			RateLimit:           RateLimit{Calls: 30, Period: time.Minute},
			CacheTTL:            120 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 502, 503},
				MaxRetries:    3,
				BackoffFactor: 2.0,
			},
			RecordsPath: "opportunitiesData",
			FieldMapping: map[string]string{
				"title":       "title",
				"funder":      "fullParentPathName",
				"deadline":    "responseDeadLine",
				"description": "description",
				"amount_min":  "award.amount",
			},
		},
		{
			ID:      "federal_register",
			Name:    "Federal Register",
			BaseURL: "https://www.federalregister.gov/api/v1",
			Endpoints: map[string]string{
				"search": "/documents.json",
			},
			Method:             "GET",
			AuthType:           AuthNone,
			CredentialRequired: false,
			RateLimit:          RateLimit{Calls: 60, Period: time.Minute},
			CacheTTL:           360 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 500, 503},
				MaxRetries:    2,
				BackoffFactor: 1.0,
			},
			RecordsPath: "results",
			FieldMapping: map[string]string{
				"title":       "title",
				"funder":      "agencies.0.name",
				"deadline":    "comments_close_on",
				"description": "abstract",
			},
		},
		{
			ID:      "usaspending",
			Name:    "USAspending",
			BaseURL: "https://api.usaspending.gov/api/v2",
			Endpoints: map[string]string{
				"search": "/search/spending_by_award/",
			},
			Method:             "POST",
			AuthType:           AuthNone,
			CredentialRequired: false,
			RateLimit:          RateLimit{Calls: 30, Period: time.Minute},
			CacheTTL:           240 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 500, 502, 503},
				MaxRetries:    3,
				BackoffFactor: 1.0,
			},
			RecordsPath: "results",
			FieldMapping: map[string]string{
				"title":      "Description",
				"funder":     "Awarding Agency",
				"amount_max": "Award Amount",
			},
		},
		{
			ID:      "candid_essentials",
			Name:    "Candid Essentials",
			BaseURL: "https://api.candid.org/essentials/v3",
			Endpoints: map[string]string{
				"search": "/search",
			},
			Method:              "POST",
			AuthType:            AuthAPIKey,
			AuthHeader:          "Subscription-Key",
			CredentialRequired:  true,
			CredentialEnvVar:    "CANDID_API_KEY",
			CredentialFallbacks: []string{"CANDID_ESSENTIALS_KEY", "FDO_API_KEY"},
			RateLimit:           RateLimit{Calls: 10, Period: time.Minute},
			CacheTTL:            720 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 503},
				MaxRetries:    2,
				BackoffFactor: 2.0,
			},
			RecordsPath: "hits",
			FieldMapping: map[string]string{
				"title":       "main_sort_name",
				"funder":      "organization.funder_name",
				"description": "mission",
			},
		},
		{
			ID:      "ny_grants_gateway",
			Name:    "NY Grants Gateway",
			BaseURL: "https://data.ny.gov/resource",
			Endpoints: map[string]string{
				"search": "/a5ui-jpxi.json",
			},
			Method: "GET",
			// Socrata works without a token but throttles aggressively;
			// an app token lifts the shared-pool limits.
			AuthType:            AuthAppToken,
			AuthHeader:          "X-App-Token",
			CredentialRequired:  false,
			CredentialEnvVar:    "NY_GRANTS_APP_TOKEN",
			CredentialFallbacks: []string{"SOCRATA_APP_TOKEN"},
			RateLimit:           RateLimit{Calls: 30, Period: time.Minute},
			CacheTTL:            360 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 503},
				MaxRetries:    2,
				BackoffFactor: 1.0,
			},
			RecordsPath: "", // response body is the array itself
			FieldMapping: map[string]string{
				"title":       "grant_opportunity_name",
				"funder":      "agency",
				"deadline":    "due_date",
				"description": "purpose",
				"eligibility": "eligible_applicants",
			},
		},
		{
			ID:      "philanthropy_news",
			Name:    "Philanthropy News Digest RFPs",
			BaseURL: "https://api.philanthropynewsdigest.org/v1",
			Endpoints: map[string]string{
				"search": "/rfps",
			},
			Method:              "GET",
			AuthType:            AuthBasic,
			CredentialRequired:  true,
			CredentialEnvVar:    "PND_API_CREDENTIALS",
			CredentialFallbacks: []string{"PHILANTHROPY_NEWS_CREDENTIALS"},
			RateLimit:           RateLimit{Calls: 20, Period: time.Minute},
			CacheTTL:            180 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 500, 503},
				MaxRetries:    2,
				BackoffFactor: 1.5,
			},
			RecordsPath: "rfps",
			FieldMapping: map[string]string{
				"title":       "title",
				"funder":      "funder.name",
				"deadline":    "deadline",
				"description": "summary",
				"eligibility": "eligibility",
			},
		},
		{
			ID:      "grantstation",
			Name:    "GrantStation",
			BaseURL: "https://api.grantstation.com/v2",
			Endpoints: map[string]string{
				"search": "/opportunities",
			},
			Method:              "GET",
			AuthType:            AuthBearer,
			CredentialRequired:  true,
			CredentialEnvVar:    "GRANTSTATION_TOKEN",
			CredentialFallbacks: []string{"GRANT_STATION_API_TOKEN"},
			RateLimit:           RateLimit{Calls: 10, Period: time.Minute},
			CacheTTL:            720 * time.Minute,
			ErrorHandling: ErrorHandling{
				RetryCodes:    []int{429, 503},
				MaxRetries:    2,
				BackoffFactor: 2.0,
			},
			RecordsPath: "opportunities",
			FieldMapping: map[string]string{
				"title":       "name",
				"funder":      "sponsor",
				"amount_min":  "award_floor",
				"amount_max":  "award_ceiling",
				"deadline":    "due",
				"description": "details",
			},
		},
	}
}
