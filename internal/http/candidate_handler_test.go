package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alfa-chat/internal/crm"
	"alfa-chat/internal/identity"
)

type stubVerifier struct {
	identities map[string]*identity.Identity
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if id, ok := s.identities[token]; ok {
		return id, nil
	}
	return nil, identity.ErrInvalidCredential
}

type stubCRM struct {
	records map[string]crm.Record
	leads   map[string]crm.Record
	tasks   []crm.Task
}

func (s *stubCRM) ResolveEmail(_ context.Context, email string) (crm.Record, crm.Category, error) {
	if rec, ok := s.records[email]; ok {
		return rec, crm.CategoryCandidate, nil
	}
	return nil, crm.CategoryNone, nil
}

func (s *stubCRM) LeadWithDocuments(_ context.Context, email string) (crm.Record, error) {
	return s.leads[email], nil
}

func (s *stubCRM) TasksForLead(context.Context, string) ([]crm.Task, error) {
	return s.tasks, nil
}

func getCandidateData(h *CandidateHandler, authHeader string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/candidate-data", h.CandidateData)

	req := httptest.NewRequest(http.MethodGet, "/api/candidate-data", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCandidateData_MissingHeader(t *testing.T) {
	h := NewCandidateHandler(zap.NewNop(), &stubVerifier{}, &stubCRM{})

	rec := getCandidateData(h, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCandidateData_InvalidToken(t *testing.T) {
	h := NewCandidateHandler(zap.NewNop(), &stubVerifier{}, &stubCRM{})

	rec := getCandidateData(h, "Bearer nope")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCandidateData_NotInCRM(t *testing.T) {
	verifier := &stubVerifier{identities: map[string]*identity.Identity{
		"tok": {Email: "nobody@example.com", Name: "Nadie"},
	}}
	h := NewCandidateHandler(zap.NewNop(), verifier, &stubCRM{})

	rec := getCandidateData(h, "Bearer tok")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCandidateData_FullProfile(t *testing.T) {
	verifier := &stubVerifier{identities: map[string]*identity.Identity{
		"tok": {Email: "ana@example.com", Name: "Ana Pérez"},
	}}
	crmStub := &stubCRM{
		records: map[string]crm.Record{
			"ana@example.com": {"id": "L1"},
		},
		leads: map[string]crm.Record{
			"ana@example.com": {
				"id":                          "L1",
				"First_Name":                  "Ana",
				"Last_Name":                   "Pérez",
				"Stage":                       "Candidate Interview",
				"Lead_Status":                 "In Review",
				"Language":                    "Spanish",
				"Resume":                      "resume.pdf",
				"Candidate_Recruitment_Owner": "María López",
			},
		},
		tasks: []crm.Task{{Title: "Schedule interview", Status: "Not Started"}},
	}
	h := NewCandidateHandler(zap.NewNop(), verifier, crmStub)

	rec := getCandidateData(h, "Bearer tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["name"] != "Ana Pérez" || body["stage"] != "Candidate Interview" {
		t.Fatalf("unexpected profile: %v", body)
	}
	if body["progress_percent"] != float64(crm.Progress("Candidate Interview")) {
		t.Fatalf("unexpected progress: %v", body["progress_percent"])
	}
	if tasks, ok := body["tasks"].([]any); !ok || len(tasks) != 1 {
		t.Fatalf("expected one task, got %v", body["tasks"])
	}
	if recruiter, ok := body["recruiter"].(map[string]any); !ok || recruiter["name"] != "María López" {
		t.Fatalf("unexpected recruiter: %v", body["recruiter"])
	}
}

func TestCandidateData_MinimalProfileWithoutLead(t *testing.T) {
	verifier := &stubVerifier{identities: map[string]*identity.Identity{
		"tok": {Email: "luis@example.com", Name: "Luis"},
	}}
	crmStub := &stubCRM{
		records: map[string]crm.Record{
			"luis@example.com": {"id": "C1"},
		},
	}
	h := NewCandidateHandler(zap.NewNop(), verifier, crmStub)

	rec := getCandidateData(h, "Bearer tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["name"] != "Luis" || body["progress_percent"] != float64(0) {
		t.Fatalf("unexpected minimal profile: %v", body)
	}
	if body["stage"] != nil {
		t.Fatalf("stage must be null without a lead, got %v", body["stage"])
	}
}
