package configs

import "time"

// Redis configures the click-dedupe guard. An empty Addr disables the
// guard entirely; the service then relies solely on the database's
// idempotence check.
type Redis struct {
	// Addr is a host:port pair, e.g. "localhost:6379".
	Addr string `env:"ADDRESS" envDefault:""`
	// ClickTTL is how long a seen impression id is remembered. One day is
	// enough since cap accounting is per calendar day.
	ClickTTL time.Duration `env:"CLICK_TTL" envDefault:"24h"`
}
