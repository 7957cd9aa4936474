package psi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// DefaultEndpoint is the PageSpeed Insights v5 API.
const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Default request timeouts.
const (
	DefaultTimeout      = 40 * time.Second
	DefaultProxyTimeout = 20 * time.Second
)

// Error messages surfaced to users.
const (
	ErrNoKey       = "PSI HTTP 429 — No key / rate-limited"
	ErrInvalidJSON = "Invalid PSI JSON"
	ErrProxyFailed = "Proxy failed"
)

// Strategy is the PSI device emulation.
type Strategy string

const (
	StrategyMobile  Strategy = "mobile"
	StrategyDesktop Strategy = "desktop"
	StrategyBoth    Strategy = "both"
)

// ParseStrategy normalizes s, defaulting to mobile.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyDesktop:
		return StrategyDesktop
	case StrategyBoth:
		return StrategyBoth
	default:
		return StrategyMobile
	}
}

// RunResult is the outcome of one PSI run for a URL and strategy.
type RunResult struct {
	OK           bool                         `json:"ok"`
	Error        string                       `json:"error"`
	Scores       scoring.CategoryScores       `json:"scores"`
	WebVitals    *int                         `json:"web_vitals"`
	LabMetrics   map[string]scoring.LabMetric `json:"lab_metrics,omitempty"`
	LabOverall   *int                         `json:"lab_overall"`
	VitalsSource scoring.VitalsSource         `json:"vitals_source"`
	FinalURL     string                       `json:"finalUrl,omitempty"`
	Warnings     []string                     `json:"warnings,omitempty"`
	Strategy     Strategy                     `json:"strategy"`
}

func failed(strategy Strategy, msg string) RunResult {
	return RunResult{Error: msg, VitalsSource: scoring.SourceNone, Strategy: strategy}
}

// Runs holds the mobile and desktop results of a combined run.
type Runs struct {
	Mobile  RunResult `json:"mobile"`
	Desktop RunResult `json:"desktop"`
}

// Primary returns the mobile run if it succeeded, else the desktop run if it
// succeeded, else the failed mobile run.
func (r Runs) Primary() RunResult {
	if r.Mobile.OK {
		return r.Mobile
	}
	if r.Desktop.OK {
		return r.Desktop
	}
	return r.Mobile
}

// Client queries PSI directly with an API key, or through a proxy that
// returns pre-computed scores.
type Client struct {
	HTTPClient   *http.Client
	Endpoint     string
	APIKey       string
	ProxyURL     string
	Timeout      time.Duration
	ProxyTimeout time.Duration
}

// NewClient creates a client. The key is cleaned before use.
func NewClient(apiKey, proxyURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		Endpoint:     DefaultEndpoint,
		APIKey:       CleanAPIKey(apiKey),
		ProxyURL:     strings.TrimSpace(proxyURL),
		Timeout:      DefaultTimeout,
		ProxyTimeout: DefaultProxyTimeout,
	}
}

// Configured reports whether the client has a key or a proxy to talk to.
func (c *Client) Configured() bool {
	return c != nil && (c.ProxyURL != "" || CleanAPIKey(c.APIKey) != "")
}

// RunBoth runs mobile then desktop.
func (c *Client) RunBoth(ctx context.Context, pageURL string) Runs {
	return Runs{
		Mobile:  c.Run(ctx, pageURL, StrategyMobile),
		Desktop: c.Run(ctx, pageURL, StrategyDesktop),
	}
}

// Run performs a single PSI run. It never returns an error; failures are
// reported through RunResult.OK and RunResult.Error.
func (c *Client) Run(ctx context.Context, pageURL string, strategy Strategy) RunResult {
	if strategy != StrategyDesktop {
		strategy = StrategyMobile
	}
	if c.ProxyURL != "" {
		return c.runProxy(ctx, pageURL, strategy)
	}
	return c.runDirect(ctx, pageURL, strategy)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, endpoint string, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// proxyResponse is what a scoring proxy returns.
type proxyResponse struct {
	Scores *struct {
		Performance   Number `json:"performance"`
		BestPractices Number `json:"best_practices"`
		SEO           Number `json:"seo"`
	} `json:"scores"`
	WebVitals    Number `json:"web_vitals"`
	VitalsSource string `json:"vitals_source"`
}

func (c *Client) runProxy(ctx context.Context, pageURL string, strategy Strategy) RunResult {
	u, err := url.Parse(c.ProxyURL)
	if err != nil {
		return failed(strategy, fmt.Sprintf("invalid proxy URL: %v", err))
	}
	q := u.Query()
	q.Set("url", pageURL)
	q.Set("strategy", string(strategy))
	u.RawQuery = q.Encode()

	timeout := c.ProxyTimeout
	if timeout <= 0 {
		timeout = DefaultProxyTimeout
	}
	code, body, err := c.get(ctx, u.String(), timeout)
	if err != nil && code == 0 {
		return failed(strategy, err.Error())
	}
	if code < 200 || code >= 300 {
		return failed(strategy, ErrProxyFailed)
	}

	var pr proxyResponse
	if err := json.Unmarshal(body, &pr); err != nil || pr.Scores == nil {
		return failed(strategy, ErrProxyFailed)
	}

	res := RunResult{
		OK: true,
		Scores: scoring.CategoryScores{
			Performance:   truncScore(pr.Scores.Performance.Value()),
			BestPractices: truncScore(pr.Scores.BestPractices.Value()),
			SEO:           truncScore(pr.Scores.SEO.Value()),
		},
		VitalsSource: scoring.SourceNone,
		FinalURL:     pageURL,
		Strategy:     strategy,
	}
	if v := pr.WebVitals.Value(); v != nil {
		res.WebVitals = scoring.Int(scoring.Clamp(int(*v)))
		switch scoring.VitalsSource(pr.VitalsSource) {
		case scoring.SourceField, scoring.SourceLab:
			res.VitalsSource = scoring.VitalsSource(pr.VitalsSource)
		default:
			res.VitalsSource = scoring.SourceField
		}
	}
	return res
}

// truncScore converts a proxy score, treating a missing one as 0.
func truncScore(v *float64) *int {
	if v == nil {
		return scoring.Int(0)
	}
	return scoring.Int(scoring.Clamp(int(*v)))
}

func (c *Client) runDirect(ctx context.Context, pageURL string, strategy Strategy) RunResult {
	key := CleanAPIKey(c.APIKey)
	if key == "" {
		return failed(strategy, ErrNoKey)
	}
	normURL := NormalizeURL(pageURL)

	params := url.Values{}
	params.Set("url", normURL)
	params.Set("strategy", string(strategy))
	params.Set("key", key)
	for _, cat := range []string{"performance", "best-practices", "seo"} {
		params.Add("category", cat)
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	code, body, err := c.get(ctx, endpoint+"?"+params.Encode(), timeout)
	if err != nil && code == 0 {
		return failed(strategy, err.Error())
	}
	if code < 200 || code >= 300 {
		msg := fmt.Sprintf("PSI HTTP %d", code)
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg += " — " + apiErr.Error.Message
		}
		return failed(strategy, msg)
	}
	if err != nil {
		return failed(strategy, err.Error())
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return failed(strategy, ErrInvalidJSON)
	}
	return Assemble(&resp, normURL, strategy)
}

// Assemble builds a successful RunResult from a decoded PSI response.
func Assemble(resp *Response, normURL string, strategy Strategy) RunResult {
	res := RunResult{
		OK: true,
		Scores: scoring.CategoryScores{
			Performance:   categoryScore(resp.category("performance")),
			BestPractices: categoryScore(resp.category("best-practices")),
			SEO:           categoryScore(resp.category("seo")),
		},
		VitalsSource: scoring.SourceNone,
		Warnings:     resp.Warnings(),
		Strategy:     strategy,
	}

	if resp.LoadingExperience != nil && resp.LoadingExperience.OverallCategory != "" {
		res.VitalsSource = scoring.SourceField
		if v, ok := overallCategoryScores[strings.ToUpper(resp.LoadingExperience.OverallCategory)]; ok {
			res.WebVitals = scoring.Int(v)
		}
	}

	lab := ExtractLabMetrics(resp)
	res.LabMetrics = lab.Metrics
	res.LabOverall = lab.Overall

	if res.WebVitals == nil {
		wv := ComputeWebVitals(resp)
		res.WebVitals = wv.Overall
		res.VitalsSource = wv.Source
	}

	switch {
	case resp.LighthouseResult != nil && resp.LighthouseResult.FinalURL != "":
		res.FinalURL = resp.LighthouseResult.FinalURL
	case resp.FinalURL != "":
		res.FinalURL = resp.FinalURL
	default:
		res.FinalURL = normURL
	}
	return res
}

// categoryScore converts a 0-1 category score to 0-100, treating a missing one as 0.
func categoryScore(v *float64) *int {
	if v == nil {
		return scoring.Int(0)
	}
	return scoring.Int(scoring.Clamp(int(math.Round(*v * 100))))
}

var zeroWidth = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)

// CleanAPIKey strips whitespace and zero-width characters pasted along with a key.
func CleanAPIKey(key string) string {
	key = zeroWidth.ReplaceAllString(key, "")
	return strings.Join(strings.Fields(key), "")
}

// NormalizeURL adds an https scheme when missing and a trailing slash when the
// URL has a path.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + strings.TrimLeft(s, "/")
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if u.Path != "" && u.RawQuery == "" && u.Fragment == "" && !strings.HasSuffix(s, "/") {
		s += "/"
	}
	return s
}
