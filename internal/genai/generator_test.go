package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

func TestClientGenerate(t *testing.T) {
	var gotReq app.GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"questions": []domain.Question{
				{Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	questions, err := client.Generate(context.Background(), app.GenerateRequest{Topic: "geography", NumQuestions: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "Paris" {
		t.Fatalf("unexpected questions: %+v", questions)
	}
	if gotReq.Topic != "geography" || gotReq.NumQuestions != 1 {
		t.Fatalf("request not forwarded: %+v", gotReq)
	}
}

func TestClientGenerateErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.Generate(context.Background(), app.GenerateRequest{Topic: "x"}); err == nil {
		t.Fatalf("expected error on non-200 response")
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"questions": []domain.Question{}})
	}))
	defer empty.Close()

	client = NewClient(empty.URL, time.Second)
	if _, err := client.Generate(context.Background(), app.GenerateRequest{Topic: "x"}); err == nil {
		t.Fatalf("expected error on empty question list")
	}
}

func TestStaticGenerator(t *testing.T) {
	static := &Static{Questions: []domain.Question{
		{Text: "?", Options: []string{"a", "b"}, CorrectAnswer: "a"},
	}}

	questions, err := static.Generate(context.Background(), app.GenerateRequest{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	questions[0].Text = "mutated"

	again, _ := static.Generate(context.Background(), app.GenerateRequest{})
	if again[0].Text != "?" {
		t.Fatalf("canned questions were mutated by a caller")
	}
}
