package database

import (
	"fmt"
	"net/url"

	"github.com/spotwatch/spotwatch/internal/config"
)

// BuildConnString renders a postgres:// URL for pgx from config. Building
// through url.URL keeps passwords with reserved characters intact.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}
