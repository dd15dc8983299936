package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientRunAgentEncodesLiteralLists(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run-agent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query = map[string]string{}
		for key := range r.URL.Query() {
			query[key] = r.URL.Query().Get(key)
		}
		_, _ = w.Write([]byte(`{"thread_id":"t-1","query_reported":"why?","recommendation_text":"Check oil","recommendation_data":null,"used_tools":[{"name":"sql"}],"created_at":"2024-05-01T10:00:00"}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).RunAgent(context.Background(), RunAgentRequest{
		Query:       "why?",
		ThreadID:    "t-1",
		Filters:     []string{"downtown", "Fleet 1"},
		Preferences: []string{"charts"},
	})
	if err != nil {
		t.Fatalf("RunAgent error: %v", err)
	}
	if query["filters"] != "['downtown', 'Fleet 1']" {
		t.Fatalf("unexpected filters %q", query["filters"])
	}
	if query["preferences"] != "['charts']" {
		t.Fatalf("unexpected preferences %q", query["preferences"])
	}
	if query["query_reported"] != "why?" || query["thread_id"] != "t-1" {
		t.Fatalf("unexpected query %#v", query)
	}
	if result.AnswerText() != "Check oil" {
		t.Fatalf("unexpected answer %q", result.AnswerText())
	}
	meta := result.Metadata()
	if meta.ThreadID != "t-1" || len(meta.UsedTools) != 1 || meta.RecommendationData != nil {
		t.Fatalf("unexpected metadata %#v", meta)
	}
}

func TestAgentResultAnswerFallsBackToChainOfThought(t *testing.T) {
	result := &AgentResult{ChainOfThought: "thinking out loud"}
	if result.AnswerText() != "thinking out loud" {
		t.Fatalf("unexpected answer %q", result.AnswerText())
	}
}

func TestClientRunAgentInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RunAgent(context.Background(), RunAgentRequest{Query: "q"})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestClientRunAgentDecodesDetailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"graph failed"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RunAgent(context.Background(), RunAgentRequest{Query: "q"})
	apiErr := asAPIError(err)
	if apiErr == nil || apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "graph failed" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPythonListLiteralEscapesQuotes(t *testing.T) {
	got := pythonListLiteral([]string{`it's`, `a\b`})
	if got != `['it\'s', 'a\\b']` {
		t.Fatalf("unexpected literal %s", got)
	}
	if pythonListLiteral(nil) != "[]" {
		t.Fatalf("expected empty literal")
	}
}
