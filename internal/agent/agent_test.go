package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Morwran/yagpt"
)

func TestOpenAIClientSendsHistoryThenPrompt(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1",
			"object":"chat.completion",
			"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Take care"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}
		}`))
	}))
	defer server.Close()

	client := NewOpenAI("sk-test", server.URL, "test-model")
	got, err := client.Generate(context.Background(), "How do I sleep better?", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Take care" {
		t.Fatalf("unexpected answer %q", got)
	}
	if received.Model != "test-model" {
		t.Fatalf("unexpected model %q", received.Model)
	}
	if len(received.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(received.Messages))
	}
	last := received.Messages[2]
	if last.Role != "user" || last.Content != "How do I sleep better?" {
		t.Fatalf("prompt should be sent last, got %+v", last)
	}
	if received.Messages[1].Role != "assistant" {
		t.Fatalf("history order lost: %+v", received.Messages)
	}
}

func TestOpenAIClientSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAI("sk-test", server.URL, "test-model")
	if _, err := client.Generate(context.Background(), "hi", nil); err == nil {
		t.Fatalf("expected error from failing upstream")
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text != "hello" {
			t.Errorf("unexpected text %q", req.Text)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := newElevenLabsClient(server.URL, "key", "voice-1")
	audio, err := client.Synthesize(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}

	if _, err := client.Synthesize(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestWhisperTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "wav" {
			t.Errorf("unexpected audio %q", data)
		}
		_, _ = w.Write([]byte(`{"text":"I feel dizzy","language":"en"}`))
	}))
	defer server.Close()

	text, err := NewWhisperClient(server.URL).Transcribe(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "I feel dizzy" {
		t.Fatalf("unexpected text %q", text)
	}
}

type fakeIAM struct {
	ttl    time.Duration
	now    *time.Time
	minted int
}

func (f *fakeIAM) CreateWithCtx(context.Context) (*yagpt.IamTokenResponse, error) {
	f.minted++
	return &yagpt.IamTokenResponse{
		IamToken:  fmt.Sprintf("iam-%d", f.minted),
		ExpiresAt: f.now.Add(f.ttl),
	}, nil
}

type fakeYaGPT struct {
	tokens []string
}

func (f *fakeYaGPT) CompletionWithCtx(_ context.Context, iamTok string, _ []yagpt.Message) (*yagpt.CompletionResponse, error) {
	f.tokens = append(f.tokens, iamTok)
	return &yagpt.CompletionResponse{
		Alternatives: []yagpt.Alternative{{Message: yagpt.Message{Role: "assistant", Content: "Take care"}}},
	}, nil
}

func (f *fakeYaGPT) Completion(iamTok string, m []yagpt.Message) (*yagpt.CompletionResponse, error) {
	return f.CompletionWithCtx(context.Background(), iamTok, m)
}

func TestYandexRenewsExpiringIAMToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	iam := &fakeIAM{ttl: 12 * time.Hour, now: &now}
	ya := &fakeYaGPT{}
	c := newYandexClient(ya, iam)
	c.now = func() time.Time { return now }

	generate := func() {
		t.Helper()
		if _, err := c.Generate(context.Background(), "hello", nil); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}

	generate()
	now = now.Add(11 * time.Hour)
	generate()
	if iam.minted != 1 {
		t.Fatalf("token should be reused while valid, minted %d", iam.minted)
	}

	// Inside the refresh margin.
	now = now.Add(55 * time.Minute)
	generate()
	if iam.minted != 2 {
		t.Fatalf("expected a renewed token, minted %d", iam.minted)
	}
	want := []string{"iam-1", "iam-1", "iam-2"}
	for i, tok := range ya.tokens {
		if tok != want[i] {
			t.Fatalf("call %d used %q, want %q", i, tok, want[i])
		}
	}
}
