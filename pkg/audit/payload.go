// Package audit orchestrates a full site audit: internal checks, PageSpeed
// Insights, estimation fallbacks, score composition and persistence of the
// current payload.
package audit

import (
	"github.com/siteaudit/siteaudit/pkg/psi"
	"github.com/siteaudit/siteaudit/pkg/scoring"
	"github.com/siteaudit/siteaudit/pkg/seo"
)

// TimestampLayout is the format of Payload.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// WarningNoPSI is attached to payloads built without a PSI key or proxy.
const WarningNoPSI = "Lab metrics (FCP/LCP/TBT/CLS/SI) require a PageSpeed API key or proxy."

// Request describes one audit run.
type Request struct {
	URL   string `json:"url"`
	Force bool   `json:"force,omitempty"` // bypass the result cache
	SEO   bool   `json:"seo,omitempty"`   // also run the SEO basics scan
}

// Payload is the persisted snapshot of one audit run. Exactly one payload is
// current per site.
type Payload struct {
	ID           string                       `json:"id"`
	Timestamp    string                       `json:"timestamp"`
	URL          string                       `json:"url"`
	FinalURL     string                       `json:"finalUrl"`
	PSIOK        bool                         `json:"psi_ok"`
	PSIError     string                       `json:"psi_error"`
	PSIScores    scoring.CategoryScores       `json:"psi_scores"`
	WebVitals    *int                         `json:"web_vitals"`
	LabMetrics   map[string]scoring.LabMetric `json:"lab_metrics"`
	LabOverall   *int                         `json:"lab_overall"`
	VitalsSource scoring.VitalsSource         `json:"vitals_source"`
	Internal     *scoring.InternalAuditResult `json:"internal"`
	Overall      int                          `json:"overall"`
	Grade        string                       `json:"grade"`

	// EstimatedVitals are shown when PSI is unavailable. They never count
	// toward Overall.
	EstimatedVitals *scoring.LabResult                     `json:"estimated_vitals,omitempty"`
	Runs            *psi.Runs                              `json:"runs,omitempty"`
	SEO             *seo.Result                            `json:"seo,omitempty"`
	Recommendations map[string]scoring.RecommendationEntry `json:"recommendations,omitempty"`
	Warnings        []string                               `json:"warnings,omitempty"`
}
