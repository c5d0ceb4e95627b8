package fetch

import (
	"strconv"

	"github.com/grantwell/grantwell/internal/sources"
)

// defaultPageSize is requested from every source that supports paging.
const defaultPageSize = 25

// RequestBuilder translates caller params into one source's wire format:
// the endpoint operation to hit, query parameters, and an optional JSON
// body for POST sources.
type RequestBuilder func(d *sources.Descriptor, p Params) (op string, query map[string]string, body interface{})

// requestBuilders maps source id to its builder. Sources without an entry
// use passthroughBuilder.
var requestBuilders = map[string]RequestBuilder{
	"grants_gov":            buildGrantsGov,
	"sam_gov_opportunities": buildSAMGov,
	"federal_register":      buildFederalRegister,
	"usaspending":           buildUSASpending,
	"candid_essentials":     buildCandid,
	"ny_grants_gateway":     buildSocrata,
}

func builderFor(sourceID string) RequestBuilder {
	if b, ok := requestBuilders[sourceID]; ok {
		return b
	}
	return passthroughBuilder
}

// passthroughBuilder forwards params untouched: as query parameters for GET
// sources and as a flat JSON object for POST sources.
func passthroughBuilder(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	if d.Method == "POST" {
		body := make(map[string]interface{}, len(p))
		for k, v := range p {
			body[k] = v
		}
		return "search", nil, body
	}
	query := make(map[string]string, len(p))
	for k, v := range p {
		query[k] = v
	}
	return "search", query, nil
}

func buildGrantsGov(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	if id, ok := p["grant_id"]; ok {
		if _, hasDetail := d.Endpoint("detail"); hasDetail {
			return "detail", nil, map[string]interface{}{"opportunityId": id}
		}
	}

	body := map[string]interface{}{
		"keyword":     p["query"],
		"rows":        defaultPageSize,
		"oppStatuses": "forecasted|posted",
	}
	if v, ok := p["agency"]; ok {
		body["agencies"] = v
	}
	if v, ok := p["eligibility"]; ok {
		body["eligibilities"] = v
	}
	return "search", nil, body
}

func buildSAMGov(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	query := map[string]string{
		"limit": strconv.Itoa(defaultPageSize),
		"ptype": "g",
	}
	if v, ok := p["query"]; ok {
		query["title"] = v
	}
	if v, ok := p["grant_id"]; ok {
		query["noticeid"] = v
	}
	if v, ok := p["posted_from"]; ok {
		query["postedFrom"] = v
	}
	if v, ok := p["posted_to"]; ok {
		query["postedTo"] = v
	}
	return "search", query, nil
}

func buildFederalRegister(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	query := map[string]string{
		"per_page":         strconv.Itoa(defaultPageSize),
		"conditions[type]": "NOTICE",
		"order":            "newest",
	}
	if v, ok := p["query"]; ok {
		query["conditions[term]"] = v
	}
	if v, ok := p["grant_id"]; ok {
		query["conditions[document_numbers][]"] = v
	}
	return "search", query, nil
}

func buildUSASpending(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	filters := map[string]interface{}{
		// Grant-flavored award types only
		"award_type_codes": []string{"02", "03", "04", "05"},
	}
	if v, ok := p["query"]; ok && v != "" {
		filters["keywords"] = []string{v}
	}
	body := map[string]interface{}{
		"filters": filters,
		"fields":  []string{"Award ID", "Description", "Awarding Agency", "Award Amount"},
		"limit":   defaultPageSize,
	}
	return "search", nil, body
}

func buildCandid(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	body := map[string]interface{}{
		"search_terms": p["query"],
		"size":         defaultPageSize,
	}
	if v, ok := p["state"]; ok {
		body["state"] = []string{v}
	}
	return "search", nil, body
}

func buildSocrata(d *sources.Descriptor, p Params) (string, map[string]string, interface{}) {
	query := map[string]string{
		"$limit": strconv.Itoa(defaultPageSize),
	}
	if v, ok := p["query"]; ok && v != "" {
		query["$q"] = v
	}
	if v, ok := p["grant_id"]; ok {
		query["reference_number"] = v
	}
	return "search", query, nil
}
