// Package wpdb reads site statistics straight from a WordPress database.
// It implements checks.SiteStats for MySQL/MariaDB and Postgres schemas.
package wpdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

// Supported database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Stats implements checks.SiteStats against one WordPress install.
type Stats struct {
	db     *sql.DB
	driver string
	prefix string
}

// New wraps an open database. prefix is the WordPress table prefix, e.g. "wp_".
func New(db *sql.DB, driver, prefix string) (*Stats, error) {
	if prefix == "" {
		prefix = "wp_"
	}
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	switch driver {
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &Stats{db: db, driver: driver, prefix: prefix}, nil
}

// Open connects to the database at dsn. mysql:// URLs and native MySQL DSNs
// use the MySQL driver, postgres:// URLs use lib/pq.
func Open(dsn, prefix string) (*Stats, error) {
	driver, native, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, fmt.Errorf("open site database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	s, err := New(db, driver, prefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ParseDSN maps a database URL onto a driver name and its native DSN.
func ParseDSN(dsn string) (driver, native string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", errors.New("empty database URL")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "mysql://"):
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse database URL: %w", err)
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = u.Host + ":3306"
		}
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		cfg.ParseTime = true
		if tz := u.Query().Get("loc"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return "", "", fmt.Errorf("parse database URL: %w", err)
			}
			cfg.Loc = loc
		}
		return DriverMySQL, cfg.FormatDSN(), nil
	default:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return "", "", fmt.Errorf("unrecognized database URL: %w", err)
		}
		return DriverMySQL, dsn, nil
	}
}

// Close closes the underlying database.
func (s *Stats) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Stats) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Stats) table(name string) string {
	return s.prefix + name
}

// bind rewrites ? placeholders for Postgres.
func (s *Stats) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// option returns a raw option value, or "" when the option does not exist.
func (s *Stats) option(ctx context.Context, name string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.bind(`SELECT option_value FROM `+s.table("options")+` WHERE option_name = ?`),
		name,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read option %s: %w", name, err)
	}
	return v.String, nil
}

// Option returns the raw value of a WordPress option, or "" when it is unset.
func (s *Stats) Option(ctx context.Context, name string) (string, error) {
	return s.option(ctx, name)
}

// ServerVersion reports the database server version.
func (s *Stats) ServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := s.db.QueryRowContext(ctx, `SELECT VERSION()`).Scan(&v); err != nil {
		return "", fmt.Errorf("read server version: %w", err)
	}
	return v, nil
}

func (s *Stats) AutoloadedOptionBytes(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(OCTET_LENGTH(option_value)), 0) FROM `+s.table("options")+
			` WHERE autoload IN ('yes', 'on', 'auto-on', 'auto')`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sum autoloaded options: %w", err)
	}
	return n.Int64, nil
}

func (s *Stats) RecentPostMetaCounts(ctx context.Context, limit int) ([]int, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, s.bind(
		`SELECT p.ID, COUNT(m.meta_id)
		 FROM `+s.table("posts")+` p
		 LEFT JOIN `+s.table("postmeta")+` m ON m.post_id = p.ID
		 WHERE p.post_status = 'publish' AND p.post_type = 'post'
		 GROUP BY p.ID, p.post_date_gmt
		 ORDER BY p.post_date_gmt DESC
		 LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("count post meta: %w", err)
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan post meta count: %w", err)
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

func (s *Stats) ExpiredTransients(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		s.bind(`SELECT option_value FROM `+s.table("options")+` WHERE option_name LIKE ?`),
		`\_transient\_timeout\_%`,
	)
	if err != nil {
		return 0, fmt.Errorf("list transient timeouts: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("scan transient timeout: %w", err)
		}
		values = append(values, v.String)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return CountExpired(values, now), nil
}

func (s *Stats) PendingUpdates(ctx context.Context) (checks.Updates, error) {
	var u checks.Updates
	core, err := s.option(ctx, "_site_transient_update_core")
	if err != nil {
		return u, err
	}
	plugins, err := s.option(ctx, "_site_transient_update_plugins")
	if err != nil {
		return u, err
	}
	themes, err := s.option(ctx, "_site_transient_update_themes")
	if err != nil {
		return u, err
	}
	u.Core = CoreUpgrades(core)
	u.Plugins = ResponseCount(plugins)
	u.Themes = ResponseCount(themes)
	return u, nil
}

func (s *Stats) ActivePlugins(ctx context.Context) ([]string, error) {
	v, err := s.option(ctx, "active_plugins")
	if err != nil {
		return nil, err
	}
	return SerializedStrings(v), nil
}

var (
	_ checks.SiteStats  = (*Stats)(nil)
	_ siteinfo.Database = (*Stats)(nil)
)
