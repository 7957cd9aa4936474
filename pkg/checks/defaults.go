package checks

import "time"

// Options wires the collaborators shared by the default checks.
type Options struct {
	Fetcher       Fetcher
	Site          SiteStats // nil when no site database is configured
	StylesheetURL string
	CacheConstant bool
	Clock         func() time.Time
}

// DefaultChecks returns the fourteen standard checks in section order.
func DefaultChecks(o Options) []Check {
	return []Check{
		&CachePresentCheck{Fetcher: o.Fetcher, Site: o.Site, CacheConstant: o.CacheConstant},
		&CompressionCheck{Fetcher: o.Fetcher},
		&ClientCacheCheck{Fetcher: o.Fetcher, StylesheetURL: o.StylesheetURL},
		&AssetCountsCheck{Fetcher: o.Fetcher},
		&RenderBlockingCheck{Fetcher: o.Fetcher},
		&ImagesCheck{Fetcher: o.Fetcher},
		&TTFBCheck{Fetcher: o.Fetcher, Clock: o.Clock},
		&ProtocolCheck{Fetcher: o.Fetcher},
		&AutoloadSizeCheck{Site: o.Site},
		&PostmetaBloatCheck{Site: o.Site},
		&TransientsCheck{Site: o.Site, Clock: o.Clock},
		&UpdatesCheck{Site: o.Site, Kind: UpdateCore},
		&UpdatesCheck{Site: o.Site, Kind: UpdatePlugins},
		&UpdatesCheck{Site: o.Site, Kind: UpdateThemes},
	}
}
