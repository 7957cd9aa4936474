package checks

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Default timeouts for live probes.
const (
	DefaultGetTimeout  = 15 * time.Second
	DefaultHeadTimeout = 12 * time.Second
	maxRedirects       = 5
	maxBodyBytes       = 8 << 20
)

// Response is the outcome of one fetch. Transport failures set Error and
// leave OK false; the available headers are kept either way.
type Response struct {
	OK         bool
	HTML       string
	Header     http.Header
	StatusCode int
	Error      string
	Proto      string
}

// Fetcher performs the HTTP requests the live checks depend on.
type Fetcher interface {
	Get(ctx context.Context, url string) Response
	Head(ctx context.Context, url string) Response
}

// HTTPFetcher is the net/http implementation of Fetcher.
type HTTPFetcher struct {
	Client      *http.Client
	UserAgent   string
	GetTimeout  time.Duration
	HeadTimeout time.Duration
}

// NewHTTPFetcher creates a fetcher that follows up to five redirects.
// Zero timeouts fall back to the defaults.
func NewHTTPFetcher(userAgent string, getTimeout, headTimeout time.Duration) *HTTPFetcher {
	if getTimeout <= 0 {
		getTimeout = DefaultGetTimeout
	}
	if headTimeout <= 0 {
		headTimeout = DefaultHeadTimeout
	}
	return &HTTPFetcher{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		UserAgent:   userAgent,
		GetTimeout:  getTimeout,
		HeadTimeout: headTimeout,
	}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) Response {
	return f.do(ctx, http.MethodGet, url, f.GetTimeout)
}

func (f *HTTPFetcher) Head(ctx context.Context, url string) Response {
	return f.do(ctx, http.MethodHead, url, f.HeadTimeout)
}

func (f *HTTPFetcher) do(ctx context.Context, method, url string, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Response{Header: http.Header{}, Error: fmt.Sprintf("building request: %v", err)}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	// Set explicitly so net/http leaves Content-Encoding on the response.
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{Header: http.Header{}, Error: err.Error()}
	}
	defer resp.Body.Close()

	out := Response{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 400,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
		Proto:      resp.Proto,
	}
	if !out.OK {
		out.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	if method == http.MethodHead {
		return out
	}

	body, err := decodeBody(resp.Header.Get("Content-Encoding"), io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		out.OK = false
		out.Error = fmt.Sprintf("reading body: %v", err)
		return out
	}
	out.HTML = string(body)
	return out
}

// decodeBody reverses the Content-Encoding the server applied.
func decodeBody(encoding string, r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return raw, nil
	}

	var dec io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		dec = zr
	case "deflate":
		// Servers send both zlib-wrapped and raw deflate under this name.
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			dec = flate.NewReader(bytes.NewReader(raw))
		} else {
			defer zr.Close()
			dec = zr
		}
	case "br":
		dec = brotli.NewReader(bytes.NewReader(raw))
	default:
		return raw, nil
	}

	out, err := io.ReadAll(dec)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return out, nil
}
