// Package advice turns the current financial state into a short
// in-character comment by asking a hosted text-generation model. Every
// failure path degrades to a canned line; callers never see an error.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"piggy/internal/core"
)

// Canned responses. The client never propagates an error: missing
// credentials and every request failure map onto one of these.
const (
	// InitialAdvice is shown before the first refresh completes.
	InitialAdvice = "嘿嘿，讓我看看你的錢包..."
	// PlaceholderNoKey is returned without any network call when no API
	// key is configured.
	PlaceholderNoKey = "嘿嘿，我現在想睡覺，等下再理你～ (API Key missing)"
	// FallbackEmpty is returned when the service answers with no text.
	FallbackEmpty = "動感光波！嗶嗶嗶！(系統連線錯誤)"
	// FallbackError is returned on any transport or status failure.
	FallbackError = "哎呀，小白把我的作業吃掉了... (連線錯誤)"
)

// personaInstruction fixes the advisor's voice: a mischievous cartoon
// five-year-old commenting on the household budget in Traditional Chinese.
const personaInstruction = `
你現在是蠟筆小新 (野原新之助)。
個性：
1. 調皮搗蛋，喜歡漂亮的大姐姐，討厭吃青椒。
2. 說話語氣要像小新：使用「嘿嘿」、「大姐姐」、「動感光波」、「小白」等詞彙。
3. 有時會講出很有哲理但又很好笑的話。
4. 針對財務狀況給予建議，如果是浪費錢要吐槽（例如：美冴又亂買減肥產品了），如果是存錢要誇獎（例如：可以買皇家巧克力餅乾了）。

任務：
根據使用者的財務數據（收入、支出、目標），用繁體中文給出一句簡短、有趣且有建設性的理財評語。不要太長，像對話氣泡一樣。
`

const (
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-2.5-flash"
	defaultTimeout  = 30 * time.Second
	maxOutputTokens = 100
	cacheTTL        = 10 * time.Minute
	cacheMaxEntries = 64
)

// Config for the advice client. Everything except APIKey has a default.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	memo       *memoCache
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		memo:       newMemoCache(cacheMaxEntries, cacheTTL),
	}
}

// generateContent request/response shapes, trimmed to the fields used.
type (
	generateRequest struct {
		SystemInstruction *content          `json:"system_instruction,omitempty"`
		Contents          []content         `json:"contents"`
		GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	part struct {
		Text string `json:"text"`
	}

	generationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	}

	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

// Advise produces the comment for the given financial state. Identical
// state within the memo TTL is answered from cache without a request.
func (c *Client) Advise(ctx context.Context, summary core.FinancialSummary, latest *core.Transaction, goals []core.Goal) string {
	if c.apiKey == "" {
		return PlaceholderNoKey
	}

	prompt := "請根據以下狀況評論：" + BuildContext(summary, latest, goals)
	key := fingerprint(summary, latest, goals)
	if text, ok := c.memo.get(key); ok {
		slog.DebugContext(ctx, "Advice served from cache")
		return text
	}

	text, err := c.generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "Advice request failed", "error", err)
		return FallbackError
	}
	if strings.TrimSpace(text) == "" {
		slog.WarnContext(ctx, "Advice service returned empty text")
		return FallbackEmpty
	}

	c.memo.set(key, text)
	return text
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: personaInstruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig:  &generationConfig{MaxOutputTokens: maxOutputTokens},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation API status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		break // only the first candidate is used
	}
	return sb.String(), nil
}

// BuildContext renders the state block embedded in the prompt: balance,
// total spend, the most recent transaction (or 無) and goal progress.
func BuildContext(summary core.FinancialSummary, latest *core.Transaction, goals []core.Goal) string {
	latestLine := "無"
	if latest != nil {
		kind := "收入"
		if latest.Kind == core.Expense {
			kind = "支出"
		}
		latestLine = fmt.Sprintf("%s %s元 (%s - %s)",
			kind, latest.Amount.PromptAmount(), latest.Category, latest.Description)
	}

	goalParts := make([]string, 0, len(goals))
	for _, g := range goals {
		goalParts = append(goalParts, fmt.Sprintf("%s (進度: %d%%)", g.Name, g.Percent()))
	}

	return fmt.Sprintf(`
目前財務狀況：
總餘額：%s 元
總支出：%s 元
最近一筆交易：%s
目前目標：%s
`,
		summary.Balance.PromptAmount(),
		summary.TotalExpense.PromptAmount(),
		latestLine,
		strings.Join(goalParts, ", "))
}

func fingerprint(summary core.FinancialSummary, latest *core.Transaction, goals []core.Goal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "b%d|e%d", summary.Balance.Cents, summary.TotalExpense.Cents)
	if latest != nil {
		fmt.Fprintf(&sb, "|t%s", latest.ID)
	}
	for _, g := range goals {
		fmt.Fprintf(&sb, "|g%s:%d", g.ID, g.Current.Cents)
	}
	return sb.String()
}
