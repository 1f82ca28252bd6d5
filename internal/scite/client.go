// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scite fetches citation tallies for a DOI from the scite.ai
// tallies API and classifies failures.
package scite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/tally-lookup/internal/httputil"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

// DefaultAPIBase is the tallies endpoint; requests go to DefaultAPIBase/<doi>.
const DefaultAPIBase = "https://api.scite.ai/tallies"

// Fetcher resolves one DOI to its tallies.
type Fetcher interface {
	Fetch(ctx context.Context, doi string) (types.TallyRecord, error)
}

// Client calls the tallies API. It performs no caching.
type Client struct {
	HTTP             *http.Client
	BaseURL          string
	UserAgent        string
	RateLimitRetries int
}

// NewClient builds a Client from configuration.
func NewClient(httpCfg types.HTTPConfig, svc types.ServiceConfig) *Client {
	return &Client{
		HTTP:             &http.Client{Timeout: httpCfg.Timeout},
		BaseURL:          svc.APIBase,
		UserAgent:        httpCfg.UserAgent,
		RateLimitRetries: svc.RateLimitRetries,
	}
}

type tallyResponse struct {
	DOI                string `json:"doi"`
	Total              *int   `json:"total"`
	Supporting         int    `json:"supporting"`
	Contradicting      int    `json:"contradicting"`
	Mentioning         int    `json:"mentioning"`
	Unclassified       int    `json:"unclassified"`
	CitingPublications int    `json:"citingPublications"`
}

// Fetch requests the tallies for doi. Failures are returned as *FetchError.
func (c *Client) Fetch(ctx context.Context, doi string) (types.TallyRecord, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return types.TallyRecord{}, ErrEmptyDOI
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(doi), nil)
	if err != nil {
		return types.TallyRecord{}, newFetchError(KindMalformed, doi, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.RateLimitRetries)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return types.TallyRecord{}, newFetchError(KindCancelled, doi, err)
		}
		return types.TallyRecord{}, newFetchError(KindNetwork, doi, err)
	}
	defer httputil.Drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return types.TallyRecord{}, newFetchError(KindNotFound, doi, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.TallyRecord{}, newFetchError(KindNetwork, doi, fmt.Errorf("citation service returned HTTP %d", resp.StatusCode))
	}

	var tr tallyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return types.TallyRecord{}, newFetchError(KindCancelled, doi, ctx.Err())
		}
		return types.TallyRecord{}, newFetchError(KindMalformed, doi, fmt.Errorf("parsing tallies: %w", err))
	}

	return toRecord(doi, tr)
}

func toRecord(doi string, tr tallyResponse) (types.TallyRecord, error) {
	if tr.Total == nil {
		return types.TallyRecord{}, newFetchError(KindMalformed, doi, errors.New("missing total"))
	}
	rec := types.TallyRecord{
		DOI:                tr.DOI,
		Total:              *tr.Total,
		Supporting:         tr.Supporting,
		Contradicting:      tr.Contradicting,
		Mentioning:         tr.Mentioning,
		Unclassified:       tr.Unclassified,
		CitingPublications: tr.CitingPublications,
	}
	if rec.DOI == "" {
		rec.DOI = doi
	}
	for _, n := range []int{rec.Total, rec.Supporting, rec.Contradicting, rec.Mentioning, rec.Unclassified, rec.CitingPublications} {
		if n < 0 {
			return types.TallyRecord{}, newFetchError(KindMalformed, doi, fmt.Errorf("negative count %d", n))
		}
	}
	return rec, nil
}

// endpoint returns BaseURL/<doi> with each DOI path segment escaped.
func (c *Client) endpoint(doi string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultAPIBase
	}
	segments := strings.Split(doi, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
