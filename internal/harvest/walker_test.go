package harvest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mferov/klexport/internal/klaviyo"
)

func TestWalkFollowsNextLinks(t *testing.T) {
	var srvURL string
	var queries []string

	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		switch r.URL.Query().Get("cursor") {
		case "":
			w.Write([]byte(`{"data":[` + campaignJSON("c1", "One", "2024-10-01T10:00:00Z", "", "") + `],` +
				`"links":{"next":"` + srvURL + `/campaigns/?cursor=2"}}`))
		case "2":
			w.Write([]byte(`{"data":[` + campaignJSON("c2", "Two", "2024-10-02T10:00:00Z", "", "") + `],"links":{}}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.RawQuery)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, srv := testClient(t, mux)
	srvURL = srv.URL

	walker := NewWalker(client, 0, discardLogger(), nil)

	var pages int
	aborted, err := walker.Walk(context.Background(), func(p *klaviyo.CampaignsPage) error {
		pages++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if aborted {
		t.Error("walk should not be aborted")
	}
	if pages != 2 {
		t.Errorf("expected 2 pages, got %d", pages)
	}

	// The filter/include query goes only with the first request; next-page
	// URLs carry their own parameters.
	if len(queries) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(queries))
	}
	if queries[0] == "" {
		t.Error("first request should carry the initial query")
	}
	if queries[1] != "cursor=2" {
		t.Errorf("second request should use the next link verbatim, got %q", queries[1])
	}
}

func TestWalkEmptyListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[],"links":{}}`))
	})

	client, _ := testClient(t, mux)
	walker := NewWalker(client, 0, discardLogger(), nil)

	var records int
	aborted, err := walker.Walk(context.Background(), func(p *klaviyo.CampaignsPage) error {
		records += len(p.Data)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if aborted {
		t.Error("empty listing is not an abort")
	}
	if records != 0 {
		t.Errorf("expected no records, got %d", records)
	}
}

func TestWalkFirstPageFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := testClient(t, mux)
	walker := NewWalker(client, 0, discardLogger(), nil)

	_, err := walker.Walk(context.Background(), func(p *klaviyo.CampaignsPage) error {
		t.Error("callback should not run")
		return nil
	})
	if !errors.Is(err, ErrListingUnavailable) {
		t.Errorf("expected ErrListingUnavailable, got %v", err)
	}
}

func TestWalkMidWalkFailureKeepsPartialResults(t *testing.T) {
	var srvURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":[` + campaignJSON("c1", "One", "2024-10-01T10:00:00Z", "", "") + `],` +
			`"links":{"next":"` + srvURL + `/campaigns/?cursor=2"}}`))
	})

	client, srv := testClient(t, mux)
	srvURL = srv.URL

	walker := NewWalker(client, 0, discardLogger(), nil)

	var pages int
	aborted, err := walker.Walk(context.Background(), func(p *klaviyo.CampaignsPage) error {
		pages++
		return nil
	})
	if err != nil {
		t.Fatalf("mid-walk failure should not be an error: %v", err)
	}
	if !aborted {
		t.Error("mid-walk failure should report an aborted walk")
	}
	if pages != 1 {
		t.Errorf("expected the first page to be kept, got %d pages", pages)
	}
}
