package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encoding test response: %v", err)
	}
}

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Token = "test-token"
	cfg.RateLimitRPS = 1000
	c := New(cfg, zap.NewNop())
	return c, srv
}

func TestListOOBInterfacesHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dcim/devices/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, listResponse[nbDevice]{
			Count: 1,
			Results: []nbDevice{
				{ID: 1, Name: "srv1", Site: &nbBrief{Slug: "dc1"}, OOBIP: &nbBrief{ID: 100}},
			},
		})
	})
	mux.HandleFunc("GET /api/ipam/ip-addresses/100/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbIPAddress{ID: 100, AssignedObjectType: "dcim.interface", AssignedObjectID: 200})
	})
	mux.HandleFunc("GET /api/dcim/interfaces/200/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbInterface{ID: 200, Name: "ipmi0", MACAddress: "AA:BB:CC:DD:EE:01"})
	})

	c, _ := newTestClient(t, mux)
	got, err := c.ListOOBInterfaces(t.Context())
	if err != nil {
		t.Fatalf("ListOOBInterfaces: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d interfaces, want 1", len(got))
	}
	if got[0].MAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("MAC = %q, want normalized canonical form", got[0].MAC)
	}
	if got[0].DeviceName != "srv1" || got[0].SiteSlug != "dc1" {
		t.Errorf("got %+v", got[0])
	}
}

func TestListOOBInterfacesDropsMissingMAC(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dcim/devices/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, listResponse[nbDevice]{
			Results: []nbDevice{{ID: 1, Name: "srv1", OOBIP: &nbBrief{ID: 100}}},
		})
	})
	mux.HandleFunc("GET /api/ipam/ip-addresses/100/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbIPAddress{ID: 100, AssignedObjectType: "dcim.interface", AssignedObjectID: 200})
	})
	mux.HandleFunc("GET /api/dcim/interfaces/200/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbInterface{ID: 200, Name: "ipmi0"})
	})

	c, _ := newTestClient(t, mux)
	got, err := c.ListOOBInterfaces(t.Context())
	if err != nil {
		t.Fatalf("ListOOBInterfaces: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d interfaces, want 0 (missing mac should be dropped)", len(got))
	}
}

func TestListOOBInterfacesFollowsPagination(t *testing.T) {
	var page2URL string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dcim/devices/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeTestJSON(t, w, listResponse[nbDevice]{
				Results: []nbDevice{{ID: 2, Name: "srv2", OOBIP: &nbBrief{ID: 101}}},
			})
			return
		}
		writeTestJSON(t, w, listResponse[nbDevice]{
			Next:    page2URL,
			Results: []nbDevice{{ID: 1, Name: "srv1", OOBIP: &nbBrief{ID: 100}}},
		})
	})
	mux.HandleFunc("GET /api/ipam/ip-addresses/100/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbIPAddress{ID: 100, AssignedObjectType: "dcim.interface", AssignedObjectID: 200})
	})
	mux.HandleFunc("GET /api/ipam/ip-addresses/101/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbIPAddress{ID: 101, AssignedObjectType: "dcim.interface", AssignedObjectID: 201})
	})
	mux.HandleFunc("GET /api/dcim/interfaces/200/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbInterface{ID: 200, Name: "ipmi0", MACAddress: "aa:bb:cc:dd:ee:01"})
	})
	mux.HandleFunc("GET /api/dcim/interfaces/201/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, nbInterface{ID: 201, Name: "ipmi0", MACAddress: "aa:bb:cc:dd:ee:02"})
	})

	c, srv := newTestClient(t, mux)
	page2URL = srv.URL + "/api/dcim/devices/?page=2"

	got, err := c.ListOOBInterfaces(t.Context())
	if err != nil {
		t.Fatalf("ListOOBInterfaces: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d interfaces, want 2 across both pages", len(got))
	}
}

func TestListSwitchesReturnsAllDevicesWithNoFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dcim/devices/", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, listResponse[nbDevice]{
			Results: []nbDevice{{ID: 1, Name: "sw1"}},
		})
	})

	c, _ := newTestClient(t, mux)
	got, err := c.ListSwitches(t.Context(), nil)
	if err != nil {
		t.Fatalf("ListSwitches: %v", err)
	}
	if len(got) != 1 || got[0].Name != "sw1" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateCableDryRun(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/dcim/cables/", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Token = "test-token"
	cfg.DryRun = true
	cfg.RateLimitRPS = 1000
	c := New(cfg, zap.NewNop())

	rec, err := c.CreateCable(t.Context(), "1", "2", nil, "", time.Now())
	if err != nil {
		t.Fatalf("CreateCable: %v", err)
	}
	if rec != nil {
		t.Errorf("dry-run CreateCable should return nil record, got %+v", rec)
	}
	if called {
		t.Error("dry-run CreateCable should not hit the API")
	}
}

func TestCreateCableDescriptionIncludesVLAN(t *testing.T) {
	var gotBody nbCableCreateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/dcim/cables/", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		writeTestJSON(t, w, nbCable{ID: 5, Description: gotBody.Description})
	})

	c, _ := newTestClient(t, mux)
	vlan := 10
	rec, err := c.CreateCable(t.Context(), "1", "2", &vlan, "", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CreateCable: %v", err)
	}
	if rec == nil || rec.ID != "5" {
		t.Fatalf("got %+v", rec)
	}
	if !strings.Contains(gotBody.Description, "vlan=10") {
		t.Errorf("description %q missing vlan=10", gotBody.Description)
	}
	if !strings.Contains(gotBody.Description, "autocabling:ipmi") {
		t.Errorf("description %q missing autocabling:ipmi prefix", gotBody.Description)
	}
}
