// Package googleplaces is the nearby-search client for the Places API.
// It owns all transport concerns (auth headers, field masks, rate
// limiting, retries); payloads leave here as raw maps and are normalized
// by the app layer.
package googleplaces

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/guanwill/restaurants-nearby/internal/adapters/observability"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

var (
	ErrNotFound     = errors.New("places: not found")
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")
)

// fieldMask limits the response to the fields the normalizer consumes.
const fieldMask = "places.name,places.displayName,places.formattedAddress," +
	"places.types,places.primaryType,places.rating,places.userRatingCount," +
	"places.location,places.reviews"

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type searchRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type searchResponse struct {
	Places []map[string]any `json:"places"`
}

// SearchNearby runs one categorized nearby search. The radius is in
// meters (provider convention). Results come back loosely typed; callers
// normalize them.
func (c *Client) SearchNearby(ctx context.Context, origin geo.Point, radiusMeters float64, includedType string, maxResults int) ([]map[string]any, error) {
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 20
	}

	var req searchRequest
	req.IncludedTypes = []string{includedType}
	req.MaxResultCount = maxResults
	req.LocationRestriction.Circle.Center.Latitude = origin.Lat
	req.LocationRestriction.Circle.Center.Longitude = origin.Lon
	req.LocationRestriction.Circle.Radius = radiusMeters

	var resp searchResponse
	start := time.Now()
	status, err := c.post(ctx, c.base+"/places:searchNearby", req, &resp)
	observability.ObserveExternal("places", "searchNearby", status, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("searchNearby %q: %w", includedType, err)
	}
	return resp.Places, nil
}

// post sends one JSON request with client-side rate limiting and retries
// on 429 and transient 5xx, honoring Retry-After when present. It returns
// the last HTTP status seen (0 when no response arrived).
func (c *Client) post(ctx context.Context, url string, in, out any) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}

	lastStatus := 0
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return lastStatus, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.key)
		req.Header.Set("X-Goog-FieldMask", fieldMask)

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return lastStatus, ctx.Err()
			}
			lastErr = err
			if attempt < maxAttempts-1 && sleepCtx(ctx, backoff(attempt)) {
				continue
			}
			return lastStatus, lastErr
		}
		lastStatus = resp.StatusCode

		retryable, err := c.handle(resp, out)
		if err == nil {
			return lastStatus, nil
		}
		lastErr = err
		if !retryable {
			return lastStatus, err
		}

		wait := retryAfter(resp)
		if wait == 0 {
			wait = backoff(attempt)
		}
		if attempt < maxAttempts-1 && sleepCtx(ctx, wait) {
			continue
		}
		if ctx.Err() != nil {
			return lastStatus, ctx.Err()
		}
		return lastStatus, lastErr
	}
	return lastStatus, lastErr
}

// handle consumes and closes the response body. The bool reports whether
// the failure is worth retrying.
func (c *Client) handle(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return false, json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return false, ErrNotFound
	case http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return false, ErrUnauthorized
	case http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return false, ErrForbidden
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		io.Copy(io.Discard, resp.Body)
		return true, fmt.Errorf("remote %d", resp.StatusCode)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter so
// concurrent category searches don't retry in lockstep.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<attempt) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
