// Package redaction hides credentials in connection strings before they are
// printed or logged.
package redaction

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const replacement = "[REDACTED]"

// keywordPatterns match password pairs in keyword/value DSNs
// (pgx "password=x", SQL Server "Password=x;").
var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('[^']*'|"[^"]*"|[^\s;]+)`),
	regexp.MustCompile(`(?i)(\bpwd\s*=\s*)('[^']*'|"[^"]*"|[^\s;]+)`),
}

// DSN returns dsn with its password replaced by [REDACTED]. driver selects
// the DSN grammar; "searchd" and "mysql" use the go-sql-driver/mysql format.
// File-based drivers are returned unchanged.
func DSN(driver, dsn string) string {
	if dsn == "" {
		return ""
	}
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return dsn
	case "mysql", "searchd":
		return mysqlDSN(dsn)
	}
	if strings.Contains(dsn, "://") {
		return urlDSN(dsn)
	}
	return Keywords(dsn)
}

// Keywords replaces password values in keyword/value text.
func Keywords(text string) string {
	for _, re := range keywordPatterns {
		text = re.ReplaceAllString(text, "${1}"+replacement)
	}
	return text
}

func mysqlDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return replacement
	}
	if cfg.Passwd != "" {
		cfg.Passwd = replacement
	}
	return cfg.FormatDSN()
}

func urlDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return replacement
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), replacement)
		}
	}
	q := u.Query()
	for key := range q {
		if strings.EqualFold(key, "password") {
			q.Set(key, replacement)
		}
	}
	u.RawQuery = q.Encode()
	// url escapes the brackets of the placeholder.
	return strings.ReplaceAll(strings.ReplaceAll(u.String(), "%5B", "["), "%5D", "]")
}
