package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"piggy/internal/core"
	"piggy/internal/ledger"
)

// ledgerChangedTrigger tells the HTMX client which panels to reload
// after a successful mutation.
const ledgerChangedTrigger = `{"ledger:changed": {}}`

type txView struct {
	ID          string
	Date        string
	Description string
	Category    string
	Amount      string
	IsIncome    bool
}

type goalView struct {
	ID       string
	Name     string
	Icon     string
	Current  string
	Target   string
	Percent  int
	Deadline string
	Funded   bool
}

type summaryView struct {
	Balance string
	Income  string
	Expense string
}

func newSummaryView(s core.FinancialSummary) summaryView {
	return summaryView{
		Balance: s.Balance.String(),
		Income:  s.TotalIncome.String(),
		Expense: s.TotalExpense.String(),
	}
}

func newTxViews(txs []core.Transaction) []txView {
	views := make([]txView, 0, len(txs))
	for _, t := range txs {
		views = append(views, txView{
			ID:          t.ID,
			Date:        t.Date.Format("2006/01/02"),
			Description: t.Description,
			Category:    t.Category,
			Amount:      t.Amount.String(),
			IsIncome:    t.Kind == core.Income,
		})
	}
	return views
}

func newGoalViews(goals []core.Goal) []goalView {
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		v := goalView{
			ID:      g.ID,
			Name:    g.Name,
			Icon:    g.Icon,
			Current: g.Current.String(),
			Target:  g.Target.String(),
			Percent: g.DisplayPercent(),
			Funded:  g.Current.Cents >= g.Target.Cents,
		}
		if !g.Deadline.IsZero() {
			v.Deadline = g.Deadline.Format("2006/01/02")
		}
		views = append(views, v)
	}
	return views
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	txs, goals := s.ledger.Snapshot()
	data := struct {
		Summary           summaryView
		Transactions      []txView
		Goals             []goalView
		Advice            string
		ExpenseCategories []string
		IncomeCategories  []string
	}{
		Summary:           newSummaryView(s.ledger.Summary()),
		Transactions:      newTxViews(txs),
		Goals:             newGoalViews(goals),
		Advice:            s.advice.Current(),
		ExpenseCategories: core.ExpenseCategories,
		IncomeCategories:  core.IncomeCategories,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, err)
		return
	}

	kind := core.Kind(strings.ToUpper(sanitizeInput(r.Form.Get("kind"))))
	category := sanitizeInput(r.Form.Get("category"))
	desc := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		unprocessable(w, "金額格式不正確")
		return
	}

	tx := core.Transaction{
		ID:          uuid.NewString(),
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: desc,
		Date:        time.Now(),
		Kind:        kind,
	}
	if err := tx.Validate(); err != nil {
		unprocessable(w, "資料不完整: "+err.Error())
		return
	}

	if err := s.ledger.AddTransaction(r.Context(), tx); err != nil {
		slog.ErrorContext(r.Context(), "Transaction create error", "error", err, "description", desc)
		internalError(w, "記帳失敗，請再試一次")
		return
	}

	s.advice.Notify()
	w.Header().Set("HX-Trigger", ledgerChangedTrigger)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">已記錄: ` +
		template.HTMLEscapeString(desc) + ` ` + template.HTMLEscapeString(tx.Amount.String()) + `</div>`))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, err)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		unprocessable(w, "缺少交易編號")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Transaction delete error", "error", err, "id", id)
		internalError(w, "刪除失敗，請再試一次")
		return
	}

	s.advice.Notify()
	w.Header().Set("HX-Trigger", ledgerChangedTrigger)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">已刪除交易</div>`))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, err)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	icon := sanitizeInput(r.Form.Get("icon"))
	targetStr := strings.TrimSpace(r.Form.Get("target"))

	cents, err := core.ParseDecimalToCents(targetStr)
	if err != nil {
		unprocessable(w, "目標金額格式不正確")
		return
	}

	goal := core.Goal{
		ID:     uuid.NewString(),
		Name:   name,
		Target: core.Money{Cents: cents},
		Icon:   icon,
	}
	if v := strings.TrimSpace(r.Form.Get("deadline")); v != "" {
		deadline, err := time.Parse("2006-01-02", v)
		if err != nil {
			unprocessable(w, "日期格式不正確")
			return
		}
		goal.Deadline = deadline
	}
	if err := goal.Validate(); err != nil {
		unprocessable(w, "資料不完整: "+err.Error())
		return
	}

	if err := s.ledger.AddGoal(r.Context(), goal); err != nil {
		slog.ErrorContext(r.Context(), "Goal create error", "error", err, "name", name)
		internalError(w, "目標建立失敗，請再試一次")
		return
	}

	s.advice.Notify()
	w.Header().Set("HX-Trigger", ledgerChangedTrigger)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">新目標: ` + template.HTMLEscapeString(name) + `</div>`))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, err)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		unprocessable(w, "缺少目標編號")
		return
	}

	if err := s.ledger.DeleteGoal(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Goal delete error", "error", err, "id", id)
		internalError(w, "刪除失敗，請再試一次")
		return
	}

	s.advice.Notify()
	w.Header().Set("HX-Trigger", ledgerChangedTrigger)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">已刪除目標</div>`))
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, err)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		unprocessable(w, "金額格式不正確")
		return
	}
	if id == "" {
		unprocessable(w, "缺少目標編號")
		return
	}

	if err := s.ledger.Deposit(r.Context(), id, core.Money{Cents: cents}); err != nil {
		if errors.Is(err, ledger.ErrGoalNotFound) {
			unprocessable(w, "找不到這個目標")
			return
		}
		slog.ErrorContext(r.Context(), "Goal deposit error", "error", err, "id", id)
		internalError(w, "存入失敗，請再試一次")
		return
	}

	s.advice.Notify()
	w.Header().Set("HX-Trigger", ledgerChangedTrigger)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">已存入 ` +
		template.HTMLEscapeString(core.Money{Cents: cents}.String()) + `</div>`))
}

// handleSummary renders the balance cards partial.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderPartial(w, r, "summary.html", newSummaryView(s.ledger.Summary()))
}

// handleGoals renders the goal list partial.
func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, goals := s.ledger.Snapshot()
	s.renderPartial(w, r, "goals.html", struct{ Goals []goalView }{newGoalViews(goals)})
}

// handleHistory renders the transaction list partial.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	txs, _ := s.ledger.Snapshot()
	s.renderPartial(w, r, "history.html", struct{ Transactions []txView }{newTxViews(txs)})
}

// handleAdvice renders the advice bubble partial.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderPartial(w, r, "advice.html", struct{ Advice string }{s.advice.Current()})
}

func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">載入中...</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", name)
		_, _ = w.Write([]byte(`<div class="placeholder">載入失敗</div>`))
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`<div class="error">表單格式不正確</div>`))
}

func unprocessable(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnprocessableEntity)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func internalError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}
