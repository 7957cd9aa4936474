package wpdb

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WordPress stores update state and plugin lists as PHP-serialized values.
// Only the few shapes read here are understood.

var (
	responseArray  = regexp.MustCompile(`s:8:"response";a:(\d+):`)
	upgradeOffer   = regexp.MustCompile(`s:8:"response";s:7:"upgrade";`)
	indexedStrings = regexp.MustCompile(`i:\d+;s:\d+:"([^"]*)";`)
)

// ResponseCount returns the size of the "response" array of an
// update_plugins or update_themes transient.
func ResponseCount(serialized string) int {
	m := responseArray.FindStringSubmatch(serialized)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// CoreUpgrades counts the offers of an update_core transient whose response
// is "upgrade".
func CoreUpgrades(serialized string) int {
	return len(upgradeOffer.FindAllStringIndex(serialized, -1))
}

// SerializedStrings returns the string values of a serialized indexed array
// such as active_plugins.
func SerializedStrings(serialized string) []string {
	matches := indexedStrings.FindAllStringSubmatch(serialized, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// CountExpired counts transient timeouts (unix seconds) earlier than now.
// Unparseable values are skipped.
func CountExpired(timeouts []string, now time.Time) int {
	cutoff := now.Unix()
	n := 0
	for _, v := range timeouts {
		ts, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		if ts < cutoff {
			n++
		}
	}
	return n
}
