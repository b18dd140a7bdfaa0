package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"piggy/internal/ledger"
	"piggy/internal/store"
)

type stubAdvice struct {
	text     string
	notified atomic.Int64
}

func (a *stubAdvice) Current() string { return a.text }
func (a *stubAdvice) Notify()         { a.notified.Add(1) }

func newTestServer(t *testing.T) (*Server, *ledger.Service, *stubAdvice) {
	t.Helper()
	svc, err := ledger.New(context.Background(), store.NewMemory())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	advice := &stubAdvice{text: "嘿嘿，讓我看看你的錢包..."}
	s := NewServer("127.0.0.1:0", svc, advice)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, svc, advice
}

func postForm(s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rec := get(s, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(s, "/readyz"); rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("readyz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestIndexRendersSummaryAndForms(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"目前餘額", "$0.00", "記一筆", "存錢目標", "飲食", "薪水"} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %q", want)
		}
	}
}

func TestCreateTransaction(t *testing.T) {
	s, svc, advice := newTestServer(t)

	rec := postForm(s, "/transactions", url.Values{
		"kind":        {"income"},
		"amount":      {"1000"},
		"category":    {"薪水"},
		"description": {"月薪"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("HX-Trigger"); !strings.Contains(got, "ledger:changed") {
		t.Fatalf("HX-Trigger = %q", got)
	}
	if advice.notified.Load() != 1 {
		t.Fatalf("advice notified %d times, want 1", advice.notified.Load())
	}

	txs, _ := svc.Snapshot()
	if len(txs) != 1 || txs[0].Amount.Cents != 100000 || txs[0].Description != "月薪" {
		t.Fatalf("unexpected ledger state: %+v", txs)
	}
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	s, svc, advice := newTestServer(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"bad amount", url.Values{"kind": {"expense"}, "amount": {"abc"}, "category": {"飲食"}, "description": {"午餐"}}},
		{"zero amount", url.Values{"kind": {"expense"}, "amount": {"0"}, "category": {"飲食"}, "description": {"午餐"}}},
		{"negative amount", url.Values{"kind": {"expense"}, "amount": {"-5"}, "category": {"飲食"}, "description": {"午餐"}}},
		{"missing description", url.Values{"kind": {"expense"}, "amount": {"10"}, "category": {"飲食"}}},
		{"missing category", url.Values{"kind": {"expense"}, "amount": {"10"}, "description": {"午餐"}}},
		{"bad kind", url.Values{"kind": {"transfer"}, "amount": {"10"}, "category": {"飲食"}, "description": {"午餐"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(s, "/transactions", tt.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}

	if txs, _ := svc.Snapshot(); len(txs) != 0 {
		t.Fatalf("rejected input mutated the ledger: %+v", txs)
	}
	if advice.notified.Load() != 0 {
		t.Fatalf("rejected input notified the adviser")
	}
}

func TestCreateTransactionMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	if rec := get(s, "/transactions"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, svc, _ := newTestServer(t)

	_ = postForm(s, "/transactions", url.Values{
		"kind": {"expense"}, "amount": {"200"}, "category": {"飲食"}, "description": {"午餐"},
	})
	txs, _ := svc.Snapshot()
	if len(txs) != 1 {
		t.Fatalf("setup failed")
	}

	rec := postForm(s, "/transactions/delete", url.Values{"id": {txs[0].ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if txs, _ := svc.Snapshot(); len(txs) != 0 {
		t.Fatalf("transaction not removed")
	}

	// Absent ID is a quiet no-op.
	if rec := postForm(s, "/transactions/delete", url.Values{"id": {"nope"}}); rec.Code != http.StatusOK {
		t.Fatalf("no-op delete status = %d", rec.Code)
	}
	if rec := postForm(s, "/transactions/delete", url.Values{}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing id status = %d, want 422", rec.Code)
	}
}

func TestGoalLifecycleThroughHandlers(t *testing.T) {
	s, svc, _ := newTestServer(t)

	rec := postForm(s, "/goals", url.Values{
		"name": {"公仔"}, "target": {"500"}, "icon": {"🎁"}, "deadline": {"2026-12-31"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create goal status = %d, body %s", rec.Code, rec.Body.String())
	}
	_, goals := svc.Snapshot()
	if len(goals) != 1 || goals[0].Target.Cents != 50000 || goals[0].Current.Cents != 0 {
		t.Fatalf("unexpected goals: %+v", goals)
	}

	rec = postForm(s, "/goals/deposit", url.Values{"id": {goals[0].ID}, "amount": {"300"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body %s", rec.Code, rec.Body.String())
	}
	txs, goals := svc.Snapshot()
	if goals[0].Current.Cents != 30000 {
		t.Fatalf("current = %d, want 30000", goals[0].Current.Cents)
	}
	if len(txs) != 1 || txs[0].Category != "儲蓄" {
		t.Fatalf("deposit did not synthesize a savings expense: %+v", txs)
	}

	partial := get(s, "/ui/goals")
	if !strings.Contains(partial.Body.String(), "(60%)") {
		t.Fatalf("goals partial missing progress:\n%s", partial.Body.String())
	}

	rec = postForm(s, "/goals/delete", url.Values{"id": {goals[0].ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete goal status = %d", rec.Code)
	}
	if _, goals := svc.Snapshot(); len(goals) != 0 {
		t.Fatalf("goal not removed")
	}
}

func TestDepositUnknownGoalRejected(t *testing.T) {
	s, _, advice := newTestServer(t)
	rec := postForm(s, "/goals/deposit", url.Values{"id": {"nope"}, "amount": {"10"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if advice.notified.Load() != 0 {
		t.Fatalf("failed deposit notified the adviser")
	}
}

func TestPartialsRenderCurrentState(t *testing.T) {
	s, _, advice := newTestServer(t)
	advice.text = "嘿嘿，存得不錯嘛！"

	_ = postForm(s, "/transactions", url.Values{
		"kind": {"income"}, "amount": {"1000"}, "category": {"薪水"}, "description": {"月薪"},
	})
	_ = postForm(s, "/transactions", url.Values{
		"kind": {"expense"}, "amount": {"200"}, "category": {"飲食"}, "description": {"午餐"},
	})

	if body := get(s, "/ui/summary").Body.String(); !strings.Contains(body, "$800.00") {
		t.Fatalf("summary partial missing balance:\n%s", body)
	}
	history := get(s, "/ui/history").Body.String()
	if !strings.Contains(history, "午餐") || !strings.Contains(history, "-$200.00") {
		t.Fatalf("history partial missing entries:\n%s", history)
	}
	// Newest entry first.
	if strings.Index(history, "午餐") > strings.Index(history, "月薪") {
		t.Fatalf("history not newest-first:\n%s", history)
	}
	if body := get(s, "/ui/advice").Body.String(); !strings.Contains(body, "存得不錯嘛") {
		t.Fatalf("advice partial missing text:\n%s", body)
	}
}

func TestRateLimiterBlocksBursts(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatalf("request 61 should be blocked")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatalf("other clients should be unaffected")
	}
}
