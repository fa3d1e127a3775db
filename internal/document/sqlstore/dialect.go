package sqlstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	documentsTable = "_flash_documents"
	seriesTable    = "_flash_series"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS _flash_documents (
		doctype VARCHAR(140) NOT NULL,
		name VARCHAR(140) NOT NULL,
		docstatus INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (doctype, name)
	)`,
	`CREATE TABLE IF NOT EXISTS _flash_series (
		name VARCHAR(140) NOT NULL PRIMARY KEY,
		current_value BIGINT NOT NULL DEFAULT 0
	)`,
}

type dialect struct {
	provider    string
	driver      string
	placeholder squirrel.PlaceholderFormat
	dsn         func(string) (string, error)
}

func dialectFor(provider, driver string) (dialect, error) {
	switch provider {
	case "sqlite", "sqlite3":
		return dialect{
			provider:    "sqlite",
			driver:      "sqlite3",
			placeholder: squirrel.Question,
			dsn:         sqliteDSN,
		}, nil
	case "postgresql", "postgres":
		d := dialect{
			provider:    "postgresql",
			driver:      "pgx",
			placeholder: squirrel.Dollar,
			dsn:         passthroughDSN,
		}
		if driver == "pq" {
			d.driver = "postgres"
		}
		return d, nil
	case "mysql":
		return dialect{
			provider:    "mysql",
			driver:      "mysql",
			placeholder: squirrel.Question,
			dsn:         mysqlDSN,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database provider: %s", provider)
	}
}

func passthroughDSN(u string) (string, error) {
	return u, nil
}

func sqliteDSN(u string) (string, error) {
	path := strings.TrimPrefix(u, "sqlite://")
	if path == "" {
		return "", fmt.Errorf("empty sqlite path")
	}
	if !strings.Contains(path, "?") {
		path += "?_busy_timeout=5000"
	}
	return path, nil
}

// mysqlDSN accepts both the driver's native DSN and a mysql:// URL.
func mysqlDSN(u string) (string, error) {
	if !strings.HasPrefix(u, "mysql://") {
		return u, nil
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = parsed.Host
	cfg.DBName = strings.TrimPrefix(parsed.Path, "/")
	cfg.ParseTime = true
	if parsed.User != nil {
		cfg.User = parsed.User.Username()
		cfg.Passwd, _ = parsed.User.Password()
	}
	return cfg.FormatDSN(), nil
}
