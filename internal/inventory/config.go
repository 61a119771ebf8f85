package inventory

import "time"

// Config configures a Client. URL and Token are required; everything
// else has a usable default.
type Config struct {
	URL          string        `mapstructure:"url"`
	Token        string        `mapstructure:"token"`
	VerifySSL    bool          `mapstructure:"verify_ssl"`
	SwitchesRole string        `mapstructure:"switches_role"`
	CableStatus  string        `mapstructure:"cable_status"`
	DryRun       bool          `mapstructure:"dry_run"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimitRPS float64       `mapstructure:"rate_limit_rps"`
}

// DefaultConfig returns the struct-literal defaults. The CABLE_STATUS
// default here is intentionally "planned" to match the original
// dataclass; cmd/cablesage always overwrites it with internal/config's
// CABLE_STATUS value, which defaults to "connected" when unset, per the
// effective-default decision recorded in SPEC_FULL.md.
func DefaultConfig() Config {
	return Config{
		VerifySSL:    true,
		CableStatus:  "planned",
		Timeout:      30 * time.Second,
		RateLimitRPS: 10,
	}
}
