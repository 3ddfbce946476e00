package tradelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"stocklog/internal/metrics"
	"stocklog/pkg/ledger"
)

// AI providers accepted by ReviewStock.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	aiRequestTimeout     = 3 * time.Minute
	aiMaxOutputTokens    = 4096
	reviewRecentTrades   = 60
)

const tradeReviewSystemPrompt = `你是一名A股交易复盘教练。用户会提供某只股票的持仓汇总、已完成的持仓周期统计、日内做T明细和近期交易记录。
请基于这些数据评价交易质量，重点关注：建仓与清仓节奏、做T的胜率与收益贡献、成本控制（手续费占比）、持仓周期长短是否合理。
必须输出 JSON 对象，不要输出 Markdown，不要输出额外文字。
JSON 字段必须包含：
- summary: string
- strengths: string[]
- weaknesses: string[]
- suggestions: string[]
要求：只根据给出的数据下结论，不要编造行情；禁止承诺收益。`

// ReviewRequest defines inputs for an AI trade review.
type ReviewRequest struct {
	StockID  string `json:"stock_id"`
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	// Language of the review text, "zh" (default) or "en".
	Language string `json:"language,omitempty"`
}

// ReviewResult is a stored AI trade review.
type ReviewResult struct {
	ID          int64    `json:"id,omitempty"`
	StockID     string   `json:"stock_id"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

type reviewModelResponse struct {
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

type reviewPromptInput struct {
	Code         string                `json:"code"`
	Name         string                `json:"name"`
	CurrentPrice float64               `json:"current_price"`
	Summary      ledger.StockSummary   `json:"summary"`
	BreakEven    float64               `json:"break_even_price"`
	FloatingPnL  float64               `json:"floating_pnl"`
	Cycles       []ledger.CycleStats   `json:"closed_cycles"`
	TTrades      []ledger.TTradeDetail `json:"t_trades"`
	RecentTrades []reviewTrade         `json:"recent_trades"`
}

type reviewTrade struct {
	Time     string   `json:"time"`
	Type     string   `json:"type"`
	Price    float64  `json:"price"`
	Quantity int64    `json:"quantity"`
	Fees     float64  `json:"fees"`
	TradePnL *float64 `json:"trade_pnl,omitempty"`
	Tag      string   `json:"tag,omitempty"`
}

type aiCompletionRequest struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
}

type aiCompletionResult struct {
	Model   string
	Content string
}

type aiCompletionFunc func(ctx context.Context, req aiCompletionRequest) (aiCompletionResult, error)

var aiOpenAICompletion aiCompletionFunc = requestOpenAICompletion
var aiAnthropicCompletion aiCompletionFunc = requestAnthropicCompletion
var aiGeminiCompletion aiCompletionFunc = requestGeminiCompletion

func normalizeReviewRequest(req ReviewRequest) (ReviewRequest, error) {
	req.StockID = strings.TrimSpace(req.StockID)
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.BaseURL = strings.TrimRight(strings.TrimSpace(req.BaseURL), "/")
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.Model = strings.TrimSpace(req.Model)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))

	if req.StockID == "" {
		return req, NewError(ErrCodeInvalidInput, "stock_id required")
	}
	if req.Provider == "" {
		req.Provider = ProviderOpenAI
	}
	switch req.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return req, NewError(ErrCodeUnsupported, "unsupported AI provider: "+req.Provider)
	}
	if req.APIKey == "" {
		return req, NewError(ErrCodeInvalidInput, "api_key required")
	}
	if req.Model == "" {
		return req, NewError(ErrCodeInvalidInput, "model required")
	}
	if req.Language != "en" {
		req.Language = "zh"
	}
	return req, nil
}

// ReviewStock asks an AI model to review a stock's trading record and stores
// the result.
func (c *Core) ReviewStock(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	req, err := normalizeReviewRequest(req)
	if err != nil {
		return nil, err
	}
	history, err := c.GetStockHistory(req.StockID, false)
	if err != nil {
		return nil, err
	}
	if len(history.History) == 0 {
		return nil, NewError(ErrCodeInvalidInput, "stock has no transactions to review")
	}

	userPrompt, err := buildReviewUserPrompt(history, req.Language)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "build review prompt", err)
	}

	completion := aiOpenAICompletion
	switch req.Provider {
	case ProviderAnthropic:
		completion = aiAnthropicCompletion
	case ProviderGemini:
		completion = aiGeminiCompletion
	}

	ctx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	c.logger.Debug("requesting AI review", "provider", req.Provider, "model", req.Model, "stock_id", req.StockID, "prompt_bytes", len(userPrompt))
	out, err := completion(ctx, aiCompletionRequest{
		BaseURL:      req.BaseURL,
		APIKey:       req.APIKey,
		Model:        req.Model,
		SystemPrompt: tradeReviewSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		metrics.RecordAIReview(req.Provider, "error")
		return nil, WrapError(ErrCodeUpstream, "AI review request failed", err)
	}

	parsed, err := parseReviewResponse(out.Content)
	if err != nil {
		metrics.RecordAIReview(req.Provider, "invalid")
		return nil, WrapError(ErrCodeUpstream, "AI review response", err)
	}
	metrics.RecordAIReview(req.Provider, "ok")

	model := strings.TrimSpace(out.Model)
	if model == "" {
		model = req.Model
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		summary = "模型未返回总结，请重试或更换模型。"
	}
	result := &ReviewResult{
		StockID:     req.StockID,
		Provider:    req.Provider,
		Model:       model,
		Summary:     summary,
		Strengths:   normalizeItems(parsed.Strengths),
		Weaknesses:  normalizeItems(parsed.Weaknesses),
		Suggestions: normalizeItems(parsed.Suggestions),
		CreatedAt:   c.now().In(ledger.MarketLocation()).Format(time.RFC3339),
	}
	if id, err := c.saveReview(result); err != nil {
		c.logger.Warn("failed to save AI review", "err", err)
	} else {
		result.ID = id
	}
	return result, nil
}

func buildReviewUserPrompt(h *StockHistory, language string) (string, error) {
	input := reviewPromptInput{
		Code:         h.Stock.Code,
		Name:         h.Stock.Name,
		CurrentPrice: h.Stock.CurrentPrice,
		Summary:      h.Summary,
		BreakEven:    ledger.Round2(h.BreakEvenPrice),
		FloatingPnL:  ledger.Round2(h.FloatingPnL),
		Cycles:       []ledger.CycleStats{},
		TTrades:      []ledger.TTradeDetail{},
	}
	for _, e := range h.History {
		if e.CycleStats != nil {
			input.Cycles = append(input.Cycles, *e.CycleStats)
		}
		if e.TTradeDetail != nil {
			input.TTrades = append(input.TTrades, *e.TTradeDetail)
		}
	}
	recent := h.History
	if len(recent) > reviewRecentTrades {
		recent = recent[len(recent)-reviewRecentTrades:]
	}
	for _, e := range recent {
		input.RecentTrades = append(input.RecentTrades, reviewTrade{
			Time:     e.Timestamp.In(ledger.MarketLocation()).Format("2006-01-02 15:04"),
			Type:     string(e.Type),
			Price:    e.Price,
			Quantity: e.Quantity,
			Fees:     e.Fees,
			TradePnL: e.TradePnL,
			Tag:      string(e.PositionTag),
		})
	}

	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}
	lang := "请使用中文输出。"
	if language == "en" {
		lang = "Write every JSON string value in English."
	}
	return fmt.Sprintf("交易数据如下：\n%s\n\n%s", payload, lang), nil
}

func parseReviewResponse(content string) (*reviewModelResponse, error) {
	cleaned := cleanupModelJSON(content)
	var parsed reviewModelResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	return &parsed, nil
}

// cleanupModelJSON strips Markdown fences and any prose around the outermost
// JSON object.
func cleanupModelJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		trimmed = trimmed[start : end+1]
	}
	return strings.TrimSpace(trimmed)
}

func normalizeItems(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func (c *Core) saveReview(r *ReviewResult) (int64, error) {
	strengths, _ := json.Marshal(r.Strengths)
	weaknesses, _ := json.Marshal(r.Weaknesses)
	suggestions, _ := json.Marshal(r.Suggestions)
	var id int64
	err := c.WithTx(context.Background(), func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO ai_reviews (stock_id, provider, model, summary, strengths, weaknesses, suggestions, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.StockID, r.Provider, r.Model, r.Summary, string(strengths), string(weaknesses), string(suggestions), r.CreatedAt)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = addOperationLog(tx, OperationLog{
			Operation: OpAIReview,
			StockID:   stringPtr(r.StockID),
			Details:   detailsf("%s %s", r.Provider, r.Model),
		})
		return err
	})
	return id, err
}

// GetReviews returns the stored reviews of a stock, newest first.
func (c *Core) GetReviews(stockID string, limit int) ([]ReviewResult, error) {
	if _, err := c.GetStock(stockID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.Query(`
		SELECT id, stock_id, provider, model, summary, strengths, weaknesses, suggestions, created_at
		FROM ai_reviews
		WHERE stock_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, stockID, limit)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query reviews", err)
	}
	defer rows.Close()

	reviews := []ReviewResult{}
	for rows.Next() {
		var r ReviewResult
		var strengths, weaknesses, suggestions string
		var createdAt sql.NullString
		if err := rows.Scan(&r.ID, &r.StockID, &r.Provider, &r.Model, &r.Summary, &strengths, &weaknesses, &suggestions, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan review", err)
		}
		for field, raw := range map[string]struct {
			text string
			dst  *[]string
		}{
			"strengths":   {strengths, &r.Strengths},
			"weaknesses":  {weaknesses, &r.Weaknesses},
			"suggestions": {suggestions, &r.Suggestions},
		} {
			if err := json.Unmarshal([]byte(raw.text), raw.dst); err != nil {
				c.logger.Warn("stored review field is not a JSON list", "review_id", r.ID, "stock_id", r.StockID, "field", field, "err", err)
			}
		}
		r.CreatedAt = createdAt.String
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func requestOpenAICompletion(ctx context.Context, req aiCompletionRequest) (aiCompletionResult, error) {
	opts := []openaioption.RequestOption{openaioption.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(req.BaseURL))
	}
	client := openai.NewClient(opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return aiCompletionResult{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return aiCompletionResult{}, fmt.Errorf("ai response has no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return aiCompletionResult{}, fmt.Errorf("ai response content is empty")
	}
	return aiCompletionResult{Model: resp.Model, Content: content}, nil
}

func requestAnthropicCompletion(ctx context.Context, req aiCompletionRequest) (aiCompletionResult, error) {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(req.APIKey)}
	if req.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(req.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: aiMaxOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return aiCompletionResult{}, fmt.Errorf("anthropic messages request failed: %w", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return aiCompletionResult{}, fmt.Errorf("ai response content is empty")
	}
	return aiCompletionResult{Model: string(msg.Model), Content: content}, nil
}

func requestGeminiCompletion(ctx context.Context, req aiCompletionRequest) (aiCompletionResult, error) {
	clientConfig, err := buildGeminiClientConfig(req.BaseURL, req.APIKey)
	if err != nil {
		return aiCompletionResult{}, err
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return aiCompletionResult{}, fmt.Errorf("create gemini client failed: %w", err)
	}
	response, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:      genai.Ptr(float32(0.2)),
		MaxOutputTokens:  aiMaxOutputTokens,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return aiCompletionResult{}, fmt.Errorf("gemini generate content failed: %w", err)
	}
	content := strings.TrimSpace(response.Text())
	if content == "" {
		return aiCompletionResult{}, fmt.Errorf("ai response content is empty")
	}
	model := strings.TrimSpace(response.ModelVersion)
	if model == "" {
		model = req.Model
	}
	return aiCompletionResult{Model: model, Content: content}, nil
}

func buildGeminiClientConfig(endpoint, apiKey string) (*genai.ClientConfig, error) {
	baseURL, apiVersion, err := parseGeminiBaseURLAndVersion(endpoint)
	if err != nil {
		return nil, err
	}
	return &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    baseURL,
			APIVersion: apiVersion,
		},
	}, nil
}

// parseGeminiBaseURLAndVersion splits an endpoint such as
// "https://host/prefix/v1beta" into "https://host/prefix/" and "v1beta".
func parseGeminiBaseURLAndVersion(endpoint string) (string, string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = defaultGeminiBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("invalid gemini endpoint scheme: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", fmt.Errorf("invalid gemini endpoint host")
	}

	var segments []string
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		segments = strings.Split(path, "/")
	}
	apiVersion := "v1beta"
	prefix := segments
	for idx, segment := range segments {
		if strings.HasPrefix(strings.ToLower(segment), "v1") {
			apiVersion = segment
			prefix = segments[:idx]
			break
		}
	}

	baseURL := fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host)
	if basePath := strings.Join(prefix, "/"); basePath != "" {
		baseURL += basePath + "/"
	}
	return baseURL, apiVersion, nil
}
