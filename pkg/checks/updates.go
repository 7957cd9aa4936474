package checks

import (
	"context"

	"github.com/siteaudit/siteaudit/pkg/scoring"
)

// UpdateKind selects which pending updates an UpdatesCheck counts.
type UpdateKind string

const (
	UpdateCore    UpdateKind = "core"
	UpdatePlugins UpdateKind = "plugins"
	UpdateThemes  UpdateKind = "themes"
)

var updateBands = map[UpdateKind][]band{
	UpdateCore:    {{0, 60}},
	UpdatePlugins: {{15, 20}, {8, 40}, {3, 60}, {0, 80}},
	UpdateThemes:  {{10, 20}, {5, 40}, {2, 60}, {0, 80}},
}

// UpdatesCheck penalizes pending core, plugin or theme updates.
type UpdatesCheck struct {
	Site SiteStats
	Kind UpdateKind
}

func (c *UpdatesCheck) Slug() string {
	switch c.Kind {
	case UpdatePlugins:
		return scoring.CheckUpdatesPlugins
	case UpdateThemes:
		return scoring.CheckUpdatesThemes
	default:
		return scoring.CheckUpdatesCore
	}
}

func (c *UpdatesCheck) Run(ctx context.Context, _ string) scoring.CheckResult {
	meta := &scoring.UpdatesMeta{}
	if c.Site == nil {
		meta.Error = errNoSiteDatabase
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}
	u, err := c.Site.PendingUpdates(ctx)
	if err != nil {
		meta.Error = err.Error()
		return scoring.CheckResult{Score: fallbackScore, Meta: meta}
	}

	kind := c.Kind
	switch kind {
	case UpdatePlugins:
		meta.Count = u.Plugins
	case UpdateThemes:
		meta.Count = u.Themes
	default:
		kind = UpdateCore
		meta.Count = u.Core
	}
	return scoring.CheckResult{Score: scoreBands(float64(meta.Count), updateBands[kind]), Meta: meta}
}
