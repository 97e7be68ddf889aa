package jobsource

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	listingsPath    = "/api/v1/listings"
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"
	userAgent       = "jobsift (https://github.com/avoronov/jobsift)"
)

// ProviderError reports a failed fetch from the listings provider. Callers
// are expected to degrade gracefully rather than abort on it.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client fetches job listing batches from a JSON listings API.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string

	apiKey  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

type batchResponse struct {
	Jobs  []map[string]any `json:"jobs"`
	Found int              `json:"found"`
}

func New(apiURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
		apiKey:    apiKey,
		// Providers tend to throttle aggressive polling.
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		logger:  logger,
	}
}

// FetchBatch requests one batch of listings at the given offset. The batch
// may be empty or smaller than requested. Listings without a URL are dropped
// here so downstream code can rely on URL as the identifier.
func (c *Client) FetchBatch(ctx context.Context, params *SearchParams, offset int) (*Listings, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+listingsPath, nil)
	if err != nil {
		return nil, &ProviderError{Op: "build request", Err: err}
	}

	q := buildParams(params)
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: "fetch listings", Err: err}
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ProviderError{Op: "decompress response", Err: err}
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Op: "fetch listings", Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	var batch batchResponse
	if err := json.NewDecoder(body).Decode(&batch); err != nil {
		return nil, &ProviderError{Op: "decode response", Err: err}
	}

	c.logger.Debug("got response from provider",
		zap.Int("items", len(batch.Jobs)),
		zap.Int("found", batch.Found),
	)

	return c.decodeListings(batch.Jobs)
}

func (c *Client) decodeListings(items []map[string]any) (*Listings, error) {
	var decoded []*Listing

	cfg := &mapstructure.DecoderConfig{
		Result:  &decoded,
		TagName: "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, &ProviderError{Op: "build decoder", Err: err}
	}
	if err := decoder.Decode(items); err != nil {
		return nil, &ProviderError{Op: "decode listings", Err: err}
	}

	listings := &Listings{Items: make([]*Listing, 0, len(decoded))}
	for _, listing := range decoded {
		if strings.TrimSpace(listing.URL) == "" {
			c.logger.Warn("dropping listing without url",
				zap.String("title", listing.Title),
				zap.String("company", listing.Company),
			)
			continue
		}
		listings.Items = append(listings.Items, listing)
	}

	return listings, nil
}
