package compute

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck-backend/pkg/config"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(config.ComputeConfig{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

func TestResumeSendsAuthorizedRequest(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewClient(config.ComputeConfig{BaseURL: server.URL, Token: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Resume(context.Background(), "tenant-123"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if gotPath != "/v1/tenants/tenant-123/resume" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %s", gotAuth)
	}
}

func TestResumeSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(config.ComputeConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Resume(context.Background(), "tenant-123"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestResumeRequiresTenantID(t *testing.T) {
	client, err := NewClient(config.ComputeConfig{BaseURL: "http://localhost:9"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Resume(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank tenant id")
	}
}
