package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/events-today/internal/event"
)

var ref = event.NewRefDate(time.Date(2025, time.May, 2, 9, 0, 0, 0, time.UTC))

func TestBuildPrompt(t *testing.T) {
	records := []event.Record{{Title: "Band X", Date: "Fri May 2", Venue: "The Hall"}}

	prompt, err := BuildPrompt(records, ref)
	if err != nil {
		t.Fatalf("BuildPrompt() error: %v", err)
	}

	for _, want := range []string{
		"Today is Friday, May 2, 2025.",
		`"<Weekday>, <Month> <Day>"`,
		`"<h>:<mm> <AM|PM>"`,
		"Merge duplicates",
		`"title": "Band X"`,
		`"is_today": false`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseResponse(t *testing.T) {
	const body = `[{"title": "Band X", "date": "Friday, May 2", "time": "8:00 PM", "venue": "The Hall", "is_today": true}]`

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "bare array", content: body},
		{name: "json fence", content: "```json\n" + body + "\n```"},
		{name: "plain fence", content: "```\n" + body + "\n```"},
		{name: "single line fence", content: "```" + body + "```"},
		{name: "surrounding whitespace", content: "\n\n  " + body + "  \n"},
		{name: "prose", content: "Here are your events!", wantErr: true},
		{name: "object not array", content: `{"title": "x"}`, wantErr: true},
		{name: "empty", content: "```json\n```", wantErr: true},
		{name: "null", content: "null", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseResponse(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidResponse) {
					t.Errorf("ParseResponse() error = %v, want ErrInvalidResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse() error: %v", err)
			}
			if len(records) != 1 || records[0].Title != "Band X" || !records[0].IsToday || records[0].Date != "Friday, May 2" {
				t.Errorf("records = %+v", records)
			}
		})
	}
}

func TestClient_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "```json\n[{\"title\": \"Band X\", \"venue\": \"The Hall\"}]\n```"}}},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	oracle := NewOracle(client, "test-model", 0.1, 1000)

	records, err := oracle.Clean(context.Background(), []event.Record{{Title: "Band X "}}, ref)
	if err != nil {
		t.Fatalf("Clean() error: %v", err)
	}
	if len(records) != 1 || records[0].Venue != "The Hall" {
		t.Errorf("records = %+v", records)
	}
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("key", WithBaseURL(server.URL))
	if _, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{}); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("ChatCompletion() error = %v, want api error 429", err)
	}

	if _, err := NewClient("").ChatCompletion(context.Background(), ChatCompletionRequest{}); err == nil {
		t.Error("ChatCompletion() without API key should fail")
	}
}

type stubClient struct {
	resp *ChatCompletionResponse
	err  error
}

func (s stubClient) ChatCompletion(context.Context, ChatCompletionRequest) (*ChatCompletionResponse, error) {
	return s.resp, s.err
}

func TestOracle_ContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		client stubClient
	}{
		{"transport error", stubClient{err: errors.New("connection reset")}},
		{"no choices", stubClient{resp: &ChatCompletionResponse{}}},
		{"not json", stubClient{resp: &ChatCompletionResponse{Choices: []Choice{{Message: Message{Content: "Sorry, I can't help."}}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOracle(tt.client, "m", 0, 0).Clean(context.Background(), nil, ref)
			if err == nil {
				t.Error("Clean() expected error, got nil")
			}
		})
	}
}
