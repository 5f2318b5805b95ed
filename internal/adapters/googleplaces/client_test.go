package googleplaces_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guanwill/restaurants-nearby/internal/adapters/googleplaces"
	"github.com/guanwill/restaurants-nearby/internal/geo"
)

var testOrigin = geo.Point{Lat: 48.8566, Lon: 2.3522}

func TestSearchNearby_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			if r.Header.Get("X-Goog-Api-Key") != "test-key" {
				t.Errorf("missing api key header")
			}
			if r.Header.Get("X-Goog-FieldMask") == "" {
				t.Errorf("missing field mask header")
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["locationRestriction"]; !ok {
				t.Errorf("missing locationRestriction in body: %+v", body)
			}
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"places": []map[string]any{{"name": "places/p1", "displayName": map[string]any{"text": "Bistro"}}},
			})
		}
	}))
	defer ts.Close()

	cl, err := googleplaces.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.SearchNearby(ctx, testOrigin, 1500, "restaurant", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["name"] != "places/p1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestSearchNearby_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, err := googleplaces.New(ts.URL, "bad-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.SearchNearby(ctx, testOrigin, 1500, "restaurant", 10)
	if !errors.Is(err, googleplaces.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := googleplaces.New("https://example.com", "", 5); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
