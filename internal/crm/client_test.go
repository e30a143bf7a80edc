package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeZoho struct {
	tokenCalls   int
	leadQueries  int
	contactQuery int
	leads        map[string]Record
	contacts     map[string]Record
}

func (f *fakeZoho) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, _ *http.Request) {
		f.tokenCalls++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/crm/v8/coql", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"select_query"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		var pool map[string]Record
		switch {
		case strings.Contains(body.Query, "from Leads"):
			f.leadQueries++
			pool = f.leads
		case strings.Contains(body.Query, "from Contacts"):
			f.contactQuery++
			pool = f.contacts
		}

		for email, rec := range pool {
			if strings.Contains(body.Query, `"`+email+`"`) {
				json.NewEncoder(w).Encode(map[string]any{"data": []Record{rec}})
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeZoho) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	client := NewClient(srv.URL, srv.URL, "cid", "csecret", "rtoken", NewMemoryTokenCache(), zap.NewNop())
	return client, srv
}

func TestResolveEmail_CandidateBeforeInterpreter(t *testing.T) {
	f := &fakeZoho{
		leads: map[string]Record{
			"lead@example.com": {"id": "L1", "First_Name": "Ana", "Email": "lead@example.com"},
		},
		contacts: map[string]Record{
			"lead@example.com": {"id": "C1", "Email": "lead@example.com"},
		},
	}
	client, srv := newTestClient(t, f)
	defer srv.Close()

	rec, cat, err := client.ResolveEmail(context.Background(), "lead@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cat != CategoryCandidate || rec.Str("id") != "L1" {
		t.Fatalf("expected candidate L1, got %v / %v", cat, rec)
	}
	if f.contactQuery != 0 {
		t.Fatalf("contacts must not be queried when a lead matches, got %d queries", f.contactQuery)
	}
}

func TestResolveEmail_FallsBackToInterpreter(t *testing.T) {
	f := &fakeZoho{
		contacts: map[string]Record{
			"interp@example.com": {"id": "C7", "First_Name": "Luis", "Email": "interp@example.com"},
		},
	}
	client, srv := newTestClient(t, f)
	defer srv.Close()

	rec, cat, err := client.ResolveEmail(context.Background(), "interp@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cat != CategoryInterpreter || rec.Str("id") != "C7" {
		t.Fatalf("expected interpreter C7, got %v / %v", cat, rec)
	}
	if f.leadQueries != 1 {
		t.Fatalf("expected leads queried first, got %d", f.leadQueries)
	}
}

func TestResolveEmail_NoMatch(t *testing.T) {
	f := &fakeZoho{}
	client, srv := newTestClient(t, f)
	defer srv.Close()

	rec, cat, err := client.ResolveEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rec != nil || cat != CategoryNone {
		t.Fatalf("expected no match, got %v / %v", rec, cat)
	}
}

func TestAccessToken_IsCached(t *testing.T) {
	f := &fakeZoho{
		leads: map[string]Record{
			"lead@example.com": {"id": "L1", "Email": "lead@example.com"},
		},
	}
	client, srv := newTestClient(t, f)
	defer srv.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.SearchLeadByEmail(ctx, "lead@example.com"); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if f.tokenCalls != 1 {
		t.Fatalf("expected a single token refresh, got %d", f.tokenCalls)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("http://unused.invalid", "http://unused.invalid", "", "", "", nil, zap.NewNop())
	if client.Enabled() {
		t.Fatalf("expected client disabled without credentials")
	}
	if _, _, err := client.ResolveEmail(context.Background(), "x@example.com"); err == nil {
		t.Fatalf("expected error when crm is not configured")
	}
}

func TestMemoryTokenCache_Expiry(t *testing.T) {
	cache := NewMemoryTokenCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "tok", -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := cache.Get(ctx); ok {
		t.Fatalf("expected expired token to be a miss")
	}

	if err := cache.Set(ctx, "tok", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	token, ok, err := cache.Get(ctx)
	if err != nil || !ok || token != "tok" {
		t.Fatalf("expected cached token, got %q ok=%v err=%v", token, ok, err)
	}
}
