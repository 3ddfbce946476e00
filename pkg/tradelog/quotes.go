package tradelog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"stocklog/internal/metrics"
)

// Quote fetcher errors. Use errors.Is() to check for these conditions.
var (
	// ErrNoQuote indicates the source returned no usable price for the code.
	ErrNoQuote = errors.New("no quote data available")
	// ErrAllSourcesDown indicates every source is cooling down after failures.
	ErrAllSourcesDown = errors.New("all quote sources unavailable")
)

// Quote source names, also used as keys of Options.QuoteBaseURLs.
const (
	SourceTencent = "tencent"
	SourceSina    = "sina"
)

var defaultQuoteBaseURLs = map[string]string{
	SourceTencent: "http://qt.gtimg.cn",
	SourceSina:    "http://hq.sinajs.cn",
}

// maxQuoteResponseSize limits quote responses to 256KB.
const maxQuoteResponseSize = 256 << 10

type quoteFetcherOptions struct {
	Logger        *slog.Logger
	CacheTTL      time.Duration
	Timeout       time.Duration
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
	BaseURLs      map[string]string
	Now           func() time.Time
}

type quoteFetcher struct {
	logger        *slog.Logger
	client        *resty.Client
	baseURLs      map[string]string
	cacheTTL      time.Duration
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration
	now           func() time.Time

	cacheMu      sync.RWMutex
	cache        map[string]quoteCacheEntry
	circuitMu    sync.Mutex
	serviceState map[string]*serviceState
}

type quoteCacheEntry struct {
	quote QuoteResult
	ts    time.Time
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

func newQuoteFetcher(opts quoteFetcherOptions) *quoteFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	baseURLs := make(map[string]string, len(defaultQuoteBaseURLs))
	for k, v := range defaultQuoteBaseURLs {
		baseURLs[k] = v
	}
	for k, v := range opts.BaseURLs {
		baseURLs[k] = strings.TrimRight(v, "/")
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")

	return &quoteFetcher{
		logger:        logger,
		client:        client,
		baseURLs:      baseURLs,
		cacheTTL:      opts.CacheTTL,
		failThreshold: opts.FailThreshold,
		failWindow:    opts.FailWindow,
		cooldown:      opts.Cooldown,
		now:           now,
		cache:         map[string]quoteCacheEntry{},
		serviceState:  map[string]*serviceState{},
	}
}

type quoteAttempt struct {
	name string
	fn   func(ctx context.Context, market, code string) (*QuoteResult, error)
}

// fetch returns the latest quote for an A-share code, trying each source in
// turn and skipping sources that are cooling down.
func (qf *quoteFetcher) fetch(ctx context.Context, code string) (*QuoteResult, error) {
	code = normalizeStockCode(code)
	if cached, ok := qf.getCached(code); ok {
		metrics.RecordQuoteFetch(cached.Source, "cache")
		return &cached, nil
	}

	market, digits := splitMarket(code)
	attempts := []quoteAttempt{
		{SourceTencent, qf.fetchTencent},
		{SourceSina, qf.fetchSina},
	}

	var errs []error
	cooling := 0
	for _, attempt := range attempts {
		if !qf.serviceAvailable(attempt.name) {
			metrics.RecordQuoteFetch(attempt.name, "cooldown")
			cooling++
			continue
		}
		quote, err := attempt.fn(ctx, market, digits)
		if err == nil {
			quote.Code = code
			qf.recordServiceSuccess(attempt.name)
			qf.setCached(code, *quote)
			metrics.RecordQuoteFetch(attempt.name, "ok")
			qf.logger.Info("quote fetched", "code", code, "source", attempt.name, "price", quote.Price)
			return quote, nil
		}
		metrics.RecordQuoteFetch(attempt.name, "error")
		errs = append(errs, fmt.Errorf("%s: %w", attempt.name, err))
		if !errors.Is(err, ErrNoQuote) {
			qf.recordServiceFailure(attempt.name)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if cooling == len(attempts) {
		return nil, ErrAllSourcesDown
	}
	return nil, fmt.Errorf("quote %s: %w", code, errors.Join(errs...))
}

// splitMarket returns the lower-case exchange prefix and the six digits.
// Codes without a prefix are routed by their first digit.
func splitMarket(code string) (string, string) {
	for _, prefix := range []string{"SH", "SZ", "BJ"} {
		if strings.HasPrefix(code, prefix) {
			return strings.ToLower(prefix), code[2:]
		}
	}
	switch {
	case strings.HasPrefix(code, "6"), strings.HasPrefix(code, "9"), strings.HasPrefix(code, "5"):
		return "sh", code
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"):
		return "bj", code
	default:
		return "sz", code
	}
}

func (qf *quoteFetcher) get(ctx context.Context, url string, headers map[string]string) (string, error) {
	resp, err := qf.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("http status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) > maxQuoteResponseSize {
		body = body[:maxQuoteResponseSize]
	}
	return decodeGBK(body), nil
}

// decodeGBK converts a GBK response body to UTF-8, returning the raw bytes
// as a string when they do not decode.
func decodeGBK(body []byte) string {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// fetchTencent parses `v_sh600519="1~NAME~600519~PRICE~..."`.
func (qf *quoteFetcher) fetchTencent(ctx context.Context, market, code string) (*QuoteResult, error) {
	url := fmt.Sprintf("%s/q=%s%s", qf.baseURLs[SourceTencent], market, code)
	body, err := qf.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return parseTencentQuote(body)
}

func parseTencentQuote(body string) (*QuoteResult, error) {
	parts := strings.Split(body, "~")
	if len(parts) <= 3 {
		return nil, ErrNoQuote
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil || price <= 0 {
		return nil, ErrNoQuote
	}
	return &QuoteResult{Name: strings.TrimSpace(parts[1]), Price: price, Source: SourceTencent}, nil
}

// fetchSina parses `var hq_str_sh600519="NAME,OPEN,PREV,PRICE,...";`.
func (qf *quoteFetcher) fetchSina(ctx context.Context, market, code string) (*QuoteResult, error) {
	url := fmt.Sprintf("%s/list=%s%s", qf.baseURLs[SourceSina], market, code)
	body, err := qf.get(ctx, url, map[string]string{"Referer": "https://finance.sina.com.cn"})
	if err != nil {
		return nil, err
	}
	return parseSinaQuote(body)
}

func parseSinaQuote(body string) (*QuoteResult, error) {
	parts := strings.SplitN(body, "=\"", 2)
	if len(parts) < 2 {
		return nil, ErrNoQuote
	}
	data := strings.Split(parts[1], ",")
	if len(data) <= 3 {
		return nil, ErrNoQuote
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(data[3]), 64)
	if err != nil || price <= 0 {
		return nil, ErrNoQuote
	}
	return &QuoteResult{Name: strings.TrimSpace(data[0]), Price: price, Source: SourceSina}, nil
}

func (qf *quoteFetcher) getCached(code string) (QuoteResult, bool) {
	qf.cacheMu.RLock()
	defer qf.cacheMu.RUnlock()
	entry, ok := qf.cache[code]
	if !ok || qf.now().Sub(entry.ts) > qf.cacheTTL {
		return QuoteResult{}, false
	}
	quote := entry.quote
	quote.Cached = true
	return quote, true
}

func (qf *quoteFetcher) setCached(code string, quote QuoteResult) {
	qf.cacheMu.Lock()
	defer qf.cacheMu.Unlock()
	qf.cache[code] = quoteCacheEntry{quote: quote, ts: qf.now()}
}

func (qf *quoteFetcher) serviceAvailable(service string) bool {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	state, ok := qf.serviceState[service]
	if !ok {
		return true
	}
	return qf.now().After(state.cooldownUntil)
}

func (qf *quoteFetcher) recordServiceFailure(service string) {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	state := qf.serviceState[service]
	now := qf.now()
	if state == nil {
		state = &serviceState{firstFailAt: now}
		qf.serviceState[service] = state
	}
	if now.Sub(state.firstFailAt) > qf.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= qf.failThreshold {
		state.cooldownUntil = now.Add(qf.cooldown)
		qf.logger.Warn("quote source cooling down", "source", service, "until", state.cooldownUntil)
	}
}

func (qf *quoteFetcher) recordServiceSuccess(service string) {
	qf.circuitMu.Lock()
	defer qf.circuitMu.Unlock()
	delete(qf.serviceState, service)
}
