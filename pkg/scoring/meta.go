package scoring

import (
	"fmt"
	"math"
)

// CheckMeta is the evidence behind a check score. Each check slug has exactly
// one concrete meta type; see NewMeta.
type CheckMeta interface {
	// Hint is a short human-readable summary of the evidence.
	Hint() string
	// ErrorMessage returns the failure that forced a fallback score, if any.
	ErrorMessage() string
}

// Failure carries the error recorded when a check fell back.
type Failure struct {
	Error string `json:"error,omitempty"`
}

func (f Failure) ErrorMessage() string { return f.Error }

type CacheMeta struct {
	Cached bool   `json:"cached"`
	Plugin string `json:"plugin,omitempty"`
	Failure
}

func (m *CacheMeta) Hint() string {
	if !m.Cached {
		return "Cache detected: no"
	}
	if m.Plugin != "" {
		return "Cache detected: yes — " + m.Plugin
	}
	return "Cache detected: yes"
}

type CompressionMeta struct {
	Encoding string `json:"encoding"`
	Failure
}

func (m *CompressionMeta) Hint() string { return "Encoding: " + m.Encoding }

type ClientCacheMeta struct {
	CacheControl string `json:"cache_control"`
	Asset        string `json:"asset,omitempty"`
	Failure
}

func (m *ClientCacheMeta) Hint() string { return "Cache-Control: " + m.CacheControl }

type AssetCountsMeta struct {
	CSS int `json:"css"`
	JS  int `json:"js"`
	Failure
}

func (m *AssetCountsMeta) Hint() string { return fmt.Sprintf("CSS: %d, JS: %d", m.CSS, m.JS) }

type RenderBlockingMeta struct {
	BlockingCSS int `json:"blocking_css"`
	BlockingJS  int `json:"blocking_js"`
	Failure
}

func (m *RenderBlockingMeta) Hint() string {
	return fmt.Sprintf("Blocking CSS: %d, Blocking JS: %d", m.BlockingCSS, m.BlockingJS)
}

type ImagesMeta struct {
	Total       int `json:"total"`
	MissingDims int `json:"missing_dims"`
	NextGen     int `json:"nextgen"`
	Failure
}

func (m *ImagesMeta) Hint() string {
	return fmt.Sprintf("Images: %d, Missing dims: %d, Next-gen: %d", m.Total, m.MissingDims, m.NextGen)
}

type TTFBMeta struct {
	TTFBMs int `json:"ttfb_ms"`
	Failure
}

func (m *TTFBMeta) Hint() string { return fmt.Sprintf("Measured TTFB: %dms", m.TTFBMs) }

type ProtocolMeta struct {
	ALPN string `json:"alpn"`
	Failure
}

func (m *ProtocolMeta) Hint() string { return "ALPN: " + m.ALPN }

type AutoloadMeta struct {
	Bytes int64 `json:"bytes"`
	Failure
}

func (m *AutoloadMeta) Hint() string {
	return fmt.Sprintf("Autoload size: %d KB", int64(math.Round(float64(m.Bytes)/1024)))
}

type PostmetaMeta struct {
	AvgMeta float64 `json:"avg_meta"`
	Failure
}

func (m *PostmetaMeta) Hint() string {
	return "Avg meta per post (last 20): " + trimDecimal(fmt.Sprintf("%.1f", m.AvgMeta))
}

type TransientsMeta struct {
	Expired int `json:"expired"`
	Failure
}

func (m *TransientsMeta) Hint() string { return fmt.Sprintf("Expired transients: %d", m.Expired) }

type UpdatesMeta struct {
	Count int `json:"count"`
	Failure
}

func (m *UpdatesMeta) Hint() string { return fmt.Sprintf("Updates available: %d", m.Count) }

// GenericMeta is used for slugs without a registered type; only the error survives decoding.
type GenericMeta struct {
	Failure
}

func (m *GenericMeta) Hint() string { return "" }

// NewMeta returns an empty meta value of the concrete type used by slug.
func NewMeta(slug string) CheckMeta {
	switch slug {
	case CheckCachePresent:
		return &CacheMeta{}
	case CheckCompression:
		return &CompressionMeta{}
	case CheckClientCache:
		return &ClientCacheMeta{}
	case CheckAssetsCounts:
		return &AssetCountsMeta{}
	case CheckRenderBlocking:
		return &RenderBlockingMeta{}
	case CheckImages:
		return &ImagesMeta{}
	case CheckTTFB:
		return &TTFBMeta{}
	case CheckProtocol:
		return &ProtocolMeta{}
	case CheckAutoloadSize:
		return &AutoloadMeta{}
	case CheckPostmetaBloat:
		return &PostmetaMeta{}
	case CheckTransients:
		return &TransientsMeta{}
	case CheckUpdatesCore, CheckUpdatesPlugins, CheckUpdatesThemes:
		return &UpdatesMeta{}
	default:
		return &GenericMeta{}
	}
}
