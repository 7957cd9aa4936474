package checks

import (
	"context"
	"math"
	"time"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// TTFB bands in milliseconds.
var ttfbBands = []band{
	{800, 20},
	{600, 40},
	{400, 60},
	{300, 80},
	{200, 90},
}

// TTFBCheck times a full GET of the page.
type TTFBCheck struct {
	Fetcher Fetcher
	Clock   func() time.Time // defaults to time.Now
}

func (c *TTFBCheck) Slug() string { return scoring.CheckTTFB }

func (c *TTFBCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	now := c.Clock
	if now == nil {
		now = time.Now
	}

	start := now()
	resp := c.Fetcher.Get(ctx, target)
	ms := int(math.Round(float64(now().Sub(start)) / float64(time.Millisecond)))

	meta := &scoring.TTFBMeta{TTFBMs: ms}
	if resp.StatusCode == 0 && resp.Error != "" {
		meta.Error = resp.Error
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	return scoring.CheckResult{Score: scoreBands(float64(ms), ttfbBands), Meta: meta}
}

const (
	protocolScore   = 70
	protocolUnknown = "h2/h3-unknown"
)

// ProtocolCheck reports what the server reveals about HTTP/2 and HTTP/3.
// The score is always 70; the meta is a weak hint only.
type ProtocolCheck struct {
	Fetcher Fetcher
}

func (c *ProtocolCheck) Slug() string { return scoring.CheckProtocol }

func (c *ProtocolCheck) Run(ctx context.Context, target string) scoring.CheckResult {
	meta := &scoring.ProtocolMeta{ALPN: protocolUnknown}
	resp := c.Fetcher.Head(ctx, target)
	switch {
	case resp.StatusCode == 0 && resp.Error != "":
		meta.Error = resp.Error
	case resp.Header.Get("Server-Timing") != "":
		meta.ALPN = resp.Header.Get("Server-Timing")
	case resp.Proto != "":
		meta.ALPN = resp.Proto
	}
	return scoring.CheckResult{Score: protocolScore, Meta: meta}
}
