package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hlop3z/hisdb/internal/alerr"
	"github.com/hlop3z/hisdb/internal/dialect"
)

// DetectDialect infers the dialect name from a connection URL.
//
// Detection rules:
//   - postgres:// or postgresql:// -> postgres
//   - mysql:// or a go-sql-driver DSN containing "@tcp(" -> mysql
//   - sqlite:// or file: or path ending with .db/.sqlite/.sqlite3 -> sqlite
func DetectDialect(rawURL string) string {
	u := strings.ToLower(rawURL)

	switch {
	case strings.HasPrefix(u, "postgres://"),
		strings.HasPrefix(u, "postgresql://"):
		return "postgres"

	case strings.HasPrefix(u, "mysql://"),
		strings.Contains(u, "@tcp("),
		strings.Contains(u, "@unix("):
		return "mysql"

	case strings.HasPrefix(u, "sqlite://"),
		strings.HasPrefix(u, "sqlite3://"),
		strings.HasPrefix(u, "file:"),
		u == ":memory:":
		return "sqlite"

	case strings.HasSuffix(u, ".db"),
		strings.HasSuffix(u, ".sqlite"),
		strings.HasSuffix(u, ".sqlite3"):
		return "sqlite"
	}

	return ""
}

// Open connects to the database at rawURL. dialectName overrides detection
// when non-empty. The connection is verified before Open returns.
func Open(ctx context.Context, rawURL, dialectName string) (*SQL, error) {
	if rawURL == "" {
		return nil, alerr.New(alerr.ErrConfig, "database URL is required").
			WithHelp("set --database-url, DATABASE_URL or database_url in hisdb.yaml")
	}
	if dialectName == "" {
		dialectName = DetectDialect(rawURL)
	}
	d, err := dialect.MustGet(dialectName)
	if err != nil {
		return nil, err
	}

	driver, dsn, err := driverDSN(d.Name(), rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, connectionError(err, d.Name(), rawURL)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connectionError(err, d.Name(), rawURL)
	}

	return New(db, d), nil
}

// driverDSN maps a connection URL to a database/sql driver name and DSN.
func driverDSN(dialectName, rawURL string) (string, string, error) {
	switch dialectName {
	case "postgres":
		return "postgres", rawURL, nil

	case "mysql":
		dsn, err := mysqlDSN(rawURL)
		if err != nil {
			return "", "", err
		}
		return "mysql", dsn, nil

	case "sqlite":
		return "sqlite", sqliteDSN(rawURL), nil
	}
	return "", "", alerr.New(alerr.ErrUnsupportedDialect, "unsupported dialect").With("dialect", dialectName)
}

// sqliteBusyTimeout is how long a SQLite connection waits on another
// writer before failing with SQLITE_BUSY.
const sqliteBusyTimeout = 5 * time.Second

// sqliteDSN strips the URL scheme and sets busy_timeout unless the DSN
// already carries one.
func sqliteDSN(rawURL string) string {
	dsn := strings.TrimPrefix(rawURL, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite3://")
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, sqliteBusyTimeout.Milliseconds())
}

// mysqlDSN accepts either a mysql:// URL or a native go-sql-driver DSN and
// returns a native DSN with parseTime enabled and UTC as the location.
func mysqlDSN(rawURL string) (string, error) {
	native := rawURL
	if strings.HasPrefix(strings.ToLower(rawURL), "mysql://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", alerr.Wrap(alerr.ErrConfig, err, "invalid mysql URL")
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		native = cfg.FormatDSN()
		if q := u.RawQuery; q != "" {
			sep := "?"
			if strings.Contains(native, "?") {
				sep = "&"
			}
			native += sep + q
		}
	}

	cfg, err := mysql.ParseDSN(native)
	if err != nil {
		return "", alerr.Wrap(alerr.ErrConfig, err, "invalid mysql DSN")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func connectionError(err error, dialectName, rawURL string) *alerr.Error {
	return alerr.Wrap(alerr.ErrSQLConnection, err, "failed to connect to database").
		With("dialect", dialectName).
		With("url", RedactURL(rawURL))
}

// RedactURL hides the password component of a connection URL.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		if i := strings.Index(rawURL, "@"); i > 0 && !strings.Contains(rawURL, "://") {
			if j := strings.Index(rawURL[:i], ":"); j >= 0 {
				return rawURL[:j+1] + "****" + rawURL[i:]
			}
		}
		return rawURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Error detail
// -----------------------------------------------------------------------------

// WrapError wraps a statement failure as ErrStore and attaches the driver's
// own error code when the driver exposes one.
func WrapError(err error, stmt string) *alerr.Error {
	e := alerr.WrapStore(err, stmt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		e.With("store_code", string(pqErr.Code))
		if pqErr.Detail != "" {
			e.With("store_detail", pqErr.Detail)
		}
		return e
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		e.With("store_code", int(myErr.Number))
	}
	return e
}
