package postgres

import (
	"fmt"
	"net/url"

	"github.com/bobmcallan/treasury/internal/common"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg common.PostgresConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
