package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunatix/conversation-gateway/internal/config"
)

func testConfig(url string) *config.Config {
	return &config.Config{
		AssistantURL:               url,
		AssistantAPIKey:            "test-key",
		AssistantTimeout:           5,
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
		RetryMaxAttempts:           1,
		RetryInitialBackoff:        1,
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/assistant/messages" {
			t.Errorf("Expected path '/v1/assistant/messages', got '%s'", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got '%s'", got)
		}

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.SessionID != "session-1" {
			t.Errorf("Expected session_id 'session-1', got '%s'", req.SessionID)
		}
		if req.Message != "What is a deductible?" {
			t.Errorf("Expected message 'What is a deductible?', got '%s'", req.Message)
		}

		json.NewEncoder(w).Encode(Reply{
			Response: "A deductible is...",
			Sources:  []Source{{Label: "Policy §4", URL: "https://x/4"}},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	reply, err := client.Complete(context.Background(), "session-1", "What is a deductible?")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	if reply.Response != "A deductible is..." {
		t.Errorf("Expected response 'A deductible is...', got '%s'", reply.Response)
	}
	if len(reply.Sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(reply.Sources))
	}
	if reply.Sources[0].Label != "Policy §4" {
		t.Errorf("Expected source label 'Policy §4', got '%s'", reply.Sources[0].Label)
	}
	if reply.Sources[0].URL != "https://x/4" {
		t.Errorf("Expected source url 'https://x/4', got '%s'", reply.Sources[0].URL)
	}
}

func TestComplete_SourceWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Reply{
			Response: "General guidance.",
			Sources:  []Source{{Label: "Knowledge Base: coverage"}},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	reply, err := client.Complete(context.Background(), "session-1", "What is covered?")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if len(reply.Sources) != 1 {
		t.Fatalf("Expected 1 source, got %d", len(reply.Sources))
	}
	if reply.Sources[0].URL != "" {
		t.Errorf("Expected empty URL, got '%s'", reply.Sources[0].URL)
	}
}

func TestComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Complete(context.Background(), "session-1", "hello")
	if err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestComplete_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Reply{Response: ""})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Complete(context.Background(), "session-1", "hello")
	if err == nil {
		t.Error("Expected error for empty assistant response")
	}
}

func TestComplete_Unreachable(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"))

	_, err := client.Complete(context.Background(), "session-1", "hello")
	if err == nil {
		t.Error("Expected error for unreachable assistant")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Expected path '/health', got '%s'", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	healthy, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() failed: %v", err)
	}
	if !healthy {
		t.Error("Expected assistant to be healthy")
	}
}
