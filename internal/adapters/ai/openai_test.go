package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/ports"
)

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode reply: %v", err)
	}
}

func TestGenerateLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" || req.ResponseFormat["type"] != "json_object" {
			t.Errorf("request = %+v", req)
		}
		chatReply(t, w, "```json\n{\"name\":\"Beach day\",\"color\":\"#00CAD1\",\"reset_rule\":\"manual\",\"tasks\":[{\"description\":\"Towels\",\"type\":\"recurring\"}]}\n```")
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL), WithModel("test-model"))
	skeleton, err := c.GenerateLoop(context.Background(), ports.GenerateLoopRequest{Prompt: "a day at the beach"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if skeleton.Name != "Beach day" || len(skeleton.Tasks) != 1 || skeleton.Tasks[0].Description != "Towels" {
		t.Errorf("skeleton = %+v", skeleton)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		chatReply(t, w, `{"summary":"fine","suggestions":["merge duplicates"]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	opt, err := c.Optimize(context.Background(), ports.LoopSnapshot{Name: "Morning"})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if opt.Summary != "fine" || len(opt.Suggestions) != 1 {
		t.Errorf("optimization = %+v", opt)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))
	_, err := c.SuggestTasks(context.Background(), ports.LoopSnapshot{Name: "Morning"})
	if !errors.Is(err, entities.ErrSuggestionsUnavailable) {
		t.Fatalf("err = %v, want suggestions unavailable", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "sorry, I cannot help with that")
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", WithBaseURL(srv.URL))
	if _, err := c.SuggestTasks(context.Background(), ports.LoopSnapshot{}); !errors.Is(err, entities.ErrSuggestionsUnavailable) {
		t.Fatalf("err = %v, want suggestions unavailable", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	if _, ok := New(config.AIConfig{Provider: "none"}).(Disabled); !ok {
		t.Error("provider none should select the disabled suggester")
	}
	if _, ok := New(config.AIConfig{Provider: "openai", APIKey: "k"}).(*OpenAIClient); !ok {
		t.Error("provider openai should select the OpenAI client")
	}

	_, err := Disabled{}.GenerateLoop(context.Background(), ports.GenerateLoopRequest{Prompt: "x"})
	if !errors.Is(err, entities.ErrSuggestionsUnavailable) {
		t.Errorf("disabled err = %v", err)
	}
}
