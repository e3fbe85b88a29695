package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mferov/klexport/internal/klaviyo"
)

// harvestFixture serves a complete two-page listing plus metrics and report
// endpoints. Campaign c3 on page two falls outside the date window.
func harvestFixture(t *testing.T) (*klaviyo.Client, *map[string]int) {
	t.Helper()

	calls := map[string]int{}
	var srvURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		calls["campaigns"]++
		if r.URL.Query().Get("cursor") == "2" {
			w.Write([]byte(`{"data":[` + campaignJSON("c3", "Ancient", "2024-01-01T00:00:00Z", "", "m3") + `],"links":{}}`))
			return
		}
		w.Write([]byte(`{"data":[` +
			campaignJSON("c1", "October Launch", "2024-10-05T09:00:00Z", "", "m1") + `,` +
			campaignJSON("c2", "September News", "2024-09-10T09:00:00Z", "", "m2") + `],` +
			`"included":[` + messageJSON("m1", "Launch day!") + `,` + messageJSON("m2", "News inside") + `],` +
			`"links":{"next":"` + srvURL + `/campaigns/?cursor=2"}}`))
	})
	mux.HandleFunc("/metrics/", func(w http.ResponseWriter, r *http.Request) {
		calls["metrics"]++
		w.Write([]byte(`{"data":[{"type":"metric","id":"MET1","attributes":{"name":"Placed Order"}}]}`))
	})
	mux.HandleFunc("/campaign-values-reports/", func(w http.ResponseWriter, r *http.Request) {
		calls["reports"]++
		var req klaviyo.ValuesReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad report request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Data.Attributes.ConversionMetricID != "MET1" {
			t.Errorf("expected resolved metric id, got %q", req.Data.Attributes.ConversionMetricID)
		}
		recipients := 100
		if strings.Contains(req.Data.Attributes.Filter, `"c2"`) {
			recipients = 200
		}
		fmt.Fprintf(w, `{"data":{"attributes":{"results":[{"statistics":{"recipients":%d,"open_rate":0.5}}]}}}`, recipients)
	})

	client, srv := testClient(t, mux)
	srvURL = srv.URL
	return client, &calls
}

func TestEngineEndToEnd(t *testing.T) {
	client, calls := harvestFixture(t)

	engine := NewEngine(client, Config{
		Cutoff:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StatsTimeframe: "last_6_months",
		MaxRetries:     3,
	}, discardLogger(), nil)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Pages != 2 || result.Seen != 3 {
		t.Errorf("expected 2 pages / 3 campaigns seen, got %d / %d", result.Pages, result.Seen)
	}
	if result.Included != 2 || result.ExcludedOld != 1 {
		t.Errorf("window counts wrong: %+v", result)
	}
	if result.Aborted {
		t.Error("run should not be aborted")
	}

	if len(result.Records) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(result.Records))
	}

	// Arrival order is preserved.
	if result.Records[0].CampaignID != "c1" || result.Records[1].CampaignID != "c2" {
		t.Errorf("records out of order: %q, %q",
			result.Records[0].CampaignID, result.Records[1].CampaignID)
	}

	// Content joined from inclusions.
	if result.Records[0].Subject != "Launch day!" {
		t.Errorf("expected joined subject, got %q", result.Records[0].Subject)
	}

	// Stats merged per campaign, rates scaled.
	if result.Records[0].Stats.Recipients != 100 || result.Records[1].Stats.Recipients != 200 {
		t.Errorf("stats mis-merged: %d, %d",
			result.Records[0].Stats.Recipients, result.Records[1].Stats.Recipients)
	}
	if result.Records[0].Stats.OpenRate != 50 {
		t.Errorf("expected scaled open rate 50, got %v", result.Records[0].Stats.OpenRate)
	}

	// The conversion metric is resolved exactly once for the whole run.
	if (*calls)["metrics"] != 1 {
		t.Errorf("expected 1 metrics call, got %d", (*calls)["metrics"])
	}
	if (*calls)["reports"] != 2 {
		t.Errorf("expected 2 report calls, got %d", (*calls)["reports"])
	}
}

func TestEngineShortCircuitsOnEmptyListing(t *testing.T) {
	calls := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[],"links":{}}`))
	})
	mux.HandleFunc("/metrics/", func(w http.ResponseWriter, r *http.Request) {
		calls["metrics"]++
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/campaign-values-reports/", func(w http.ResponseWriter, r *http.Request) {
		calls["reports"]++
	})

	client, _ := testClient(t, mux)
	engine := NewEngine(client, Config{
		Cutoff:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StatsTimeframe: "last_6_months",
	}, discardLogger(), nil)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("expected no records, got %d", len(result.Records))
	}
	if calls["metrics"] != 0 || calls["reports"] != 0 {
		t.Errorf("empty harvest must not touch metric or report endpoints: %v", calls)
	}
}

func TestEngineExcludedRecordsGetNoStatsCalls(t *testing.T) {
	calls := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[` + campaignJSON("c-old", "Old", "2023-01-01T00:00:00Z", "", "") + `],"links":{}}`))
	})
	mux.HandleFunc("/metrics/", func(w http.ResponseWriter, r *http.Request) {
		calls["metrics"]++
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/campaign-values-reports/", func(w http.ResponseWriter, r *http.Request) {
		calls["reports"]++
	})

	client, _ := testClient(t, mux)
	engine := NewEngine(client, Config{
		Cutoff:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		StatsTimeframe: "last_6_months",
	}, discardLogger(), nil)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 0 || result.ExcludedOld != 1 {
		t.Errorf("expected the only campaign filtered out: %+v", result)
	}
	if calls["metrics"] != 0 || calls["reports"] != 0 {
		t.Errorf("filtered-out harvest must not touch metric or report endpoints: %v", calls)
	}
}
