package advice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"piggy/internal/core"
)

func sampleState() (core.FinancialSummary, *core.Transaction, []core.Goal) {
	summary := core.FinancialSummary{
		TotalIncome:  core.Money{Cents: 100000},
		TotalExpense: core.Money{Cents: 50000},
		Balance:      core.Money{Cents: 50000},
	}
	latest := &core.Transaction{
		ID:          "t1",
		Amount:      core.Money{Cents: 30000},
		Category:    core.SavingsCategory,
		Description: "存入: 公仔",
		Date:        time.Now(),
		Kind:        core.Expense,
	}
	goals := []core.Goal{{
		ID:      "g1",
		Name:    "公仔",
		Target:  core.Money{Cents: 50000},
		Current: core.Money{Cents: 30000},
	}}
	return summary, latest, goals
}

// fakeGeneration answers like the generation endpoint with fixed text.
func fakeGeneration(t *testing.T, text string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAdviseWithoutKeyReturnsPlaceholderAndNoCall(t *testing.T) {
	var calls atomic.Int64
	srv := fakeGeneration(t, "ignored", &calls)
	defer srv.Close()

	c := NewClient(Config{APIKey: "", BaseURL: srv.URL})
	summary, latest, goals := sampleState()
	if got := c.Advise(context.Background(), summary, latest, goals); got != PlaceholderNoKey {
		t.Fatalf("advice = %q, want placeholder", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected zero network calls, got %d", calls.Load())
	}
}

func TestAdviseReturnsGeneratedText(t *testing.T) {
	srv := fakeGeneration(t, "嘿嘿，存得不錯嘛！", nil)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	summary, latest, goals := sampleState()
	if got := c.Advise(context.Background(), summary, latest, goals); got != "嘿嘿，存得不錯嘛！" {
		t.Fatalf("advice = %q", got)
	}
}

func TestAdviseMemoizesIdenticalState(t *testing.T) {
	var calls atomic.Int64
	srv := fakeGeneration(t, "ok", &calls)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	summary, latest, goals := sampleState()
	_ = c.Advise(context.Background(), summary, latest, goals)
	_ = c.Advise(context.Background(), summary, latest, goals)
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call for identical state, got %d", calls.Load())
	}

	// Changed state misses the cache.
	summary.Balance.Cents += 100
	_ = c.Advise(context.Background(), summary, latest, goals)
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls after state change, got %d", calls.Load())
	}
}

func TestAdviseErrorFallbacks(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
		summary, latest, goals := sampleState()
		if got := c.Advise(context.Background(), summary, latest, goals); got != FallbackError {
			t.Fatalf("advice = %q, want error fallback", got)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		c := NewClient(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		summary, latest, goals := sampleState()
		if got := c.Advise(context.Background(), summary, latest, goals); got != FallbackError {
			t.Fatalf("advice = %q, want error fallback", got)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		srv := fakeGeneration(t, "", nil)
		defer srv.Close()

		c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
		summary, latest, goals := sampleState()
		if got := c.Advise(context.Background(), summary, latest, goals); got != FallbackEmpty {
			t.Fatalf("advice = %q, want empty fallback", got)
		}
	})
}

func TestAdviseSendsPersonaAndContext(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "ok"}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	summary, latest, goals := sampleState()
	_ = c.Advise(context.Background(), summary, latest, goals)

	if captured.SystemInstruction == nil || !strings.Contains(captured.SystemInstruction.Parts[0].Text, "蠟筆小新") {
		t.Fatalf("system instruction missing persona")
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.MaxOutputTokens != maxOutputTokens {
		t.Fatalf("output length not bounded: %+v", captured.GenerationConfig)
	}
	prompt := captured.Contents[0].Parts[0].Text
	for _, want := range []string{"總餘額：500 元", "總支出：500 元", "支出 300元 (儲蓄 - 存入: 公仔)", "公仔 (進度: 60%)"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildContextWithoutTransactions(t *testing.T) {
	got := BuildContext(core.FinancialSummary{}, nil, nil)
	if !strings.Contains(got, "最近一筆交易：無") {
		t.Fatalf("context should report 無 for empty ledger:\n%s", got)
	}
}

func TestBuildContextOverfundedGoalUncapped(t *testing.T) {
	goals := []core.Goal{{ID: "g", Name: "公仔", Target: core.Money{Cents: 100}, Current: core.Money{Cents: 120}}}
	got := BuildContext(core.FinancialSummary{}, nil, goals)
	if !strings.Contains(got, "公仔 (進度: 120%)") {
		t.Fatalf("prompt percent should be uncapped:\n%s", got)
	}
}
