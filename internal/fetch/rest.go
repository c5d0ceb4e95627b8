package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/logger"
	"github.com/grantwell/grantwell/internal/sources"
)

// requestTimeout bounds every upstream call regardless of retries.
const requestTimeout = 30 * time.Second

// RESTFetcher implements Fetcher for JSON-over-HTTP sources, driven by the
// source descriptor: base URL, auth scheme, retryable status codes, and the
// field mapping used to standardize records.
type RESTFetcher struct {
	desc   *sources.Descriptor
	client *resty.Client
	build  RequestBuilder

	sleep func(time.Duration)
	now   func() time.Time
}

// NewRESTFetcher creates a fetcher for the given source descriptor. The
// credential, when present, is installed on the client according to the
// descriptor's auth type.
func NewRESTFetcher(d *sources.Descriptor) *RESTFetcher {
	client := resty.New()
	client.SetBaseURL(d.BaseURL)
	client.SetTimeout(requestTimeout)
	client.SetHeader("Accept", "application/json")

	switch d.AuthType {
	case sources.AuthAPIKey, sources.AuthAppToken:
		if d.Credential != "" && d.AuthHeader != "" {
			client.SetHeader(d.AuthHeader, d.Credential)
		}
	case sources.AuthBearer:
		if d.Credential != "" {
			client.SetAuthToken(d.Credential)
		}
	case sources.AuthBasic:
		if user, pass, ok := strings.Cut(d.Credential, ":"); ok {
			client.SetBasicAuth(user, pass)
		}
	}

	return &RESTFetcher{
		desc:   d,
		client: client,
		build:  builderFor(d.ID),
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// SourceID returns the unique identifier for this fetcher's source.
func (f *RESTFetcher) SourceID() string {
	return f.desc.ID
}

// Fetch retrieves and standardizes grant records from the source.
func (f *RESTFetcher) Fetch(ctx context.Context, params Params) ([]domain.Grant, error) {
	op, query, body := f.build(f.desc, params)
	path, ok := f.desc.Endpoint(op)
	if !ok {
		return nil, fmt.Errorf("%s: no %q endpoint declared", f.desc.ID, op)
	}

	resp, err := f.doWithRetry(ctx, path, query, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.desc.ID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s request failed: status %d: %s",
			f.desc.ID, resp.StatusCode(), bodySnippet(resp.Body()))
	}

	var payload interface{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", f.desc.ID, err)
	}

	records := extractRecords(payload, f.desc.RecordsPath)
	now := f.now()
	grants := make([]domain.Grant, 0, len(records))
	for _, rec := range records {
		raw, ok := rec.(map[string]interface{})
		if !ok {
			continue
		}
		grants = append(grants, standardize(raw, f.desc, now))
	}
	return grants, nil
}

// doWithRetry issues the request, retrying only on the descriptor's declared
// retry codes (and transport failures) up to MaxRetries, sleeping
// BackoffFactor * 2^attempt seconds between attempts. Once retries are
// exhausted the last response is returned even if its status is still an
// error; a transport failure on the final attempt propagates instead.
func (f *RESTFetcher) doWithRetry(ctx context.Context, path string, query map[string]string, body interface{}) (*resty.Response, error) {
	eh := f.desc.ErrorHandling
	method := f.desc.Method
	if method == "" {
		method = "GET"
	}

	var resp *resty.Response
	var err error
	for attempt := 0; ; attempt++ {
		req := f.client.R().SetContext(ctx)
		if len(query) > 0 {
			req.SetQueryParams(query)
		}
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err = req.Execute(method, path)
		if err == nil && !f.retryableStatus(resp.StatusCode()) {
			return resp, nil
		}
		if attempt >= eh.MaxRetries {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		wait := time.Duration(eh.BackoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
		logger.With(logger.Fields{
			logger.FieldSource:  f.desc.ID,
			logger.FieldAttempt: attempt + 1,
		}).Debug(ctx, "Retrying after %v", wait)
		f.sleep(wait)
	}
}

func (f *RESTFetcher) retryableStatus(code int) bool {
	for _, c := range f.desc.ErrorHandling.RetryCodes {
		if c == code {
			return true
		}
	}
	return false
}

// extractRecords walks the records path into the decoded payload and
// returns the record list. An empty path means the payload itself is the
// array.
func extractRecords(payload interface{}, path string) []interface{} {
	current := payload
	if path != "" {
		current = lookupPath(payload, path)
	}
	records, ok := current.([]interface{})
	if !ok {
		return nil
	}
	return records
}

func bodySnippet(body []byte) string {
	const maxLen = 200
	s := string(body)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
