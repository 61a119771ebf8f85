// Package config loads cablesage's runtime configuration from the
// process environment via viper, matching the original service's
// reliance on environment-only configuration (no config file format).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved, validated configuration for one
// cablesage process.
type Config struct {
	NetboxURL       string
	NetboxToken     string
	NetboxVerifySSL bool
	SwitchesRole    string

	IPMIInterfaceNames []string

	SNMPCommunity string
	SNMPVersion   string
	SNMPTimeout   time.Duration
	SNMPRetries   int

	UplinkPorts    []string
	UplinkPatterns []string

	StabilityRuns int
	StateDBPath   string
	PollInterval  time.Duration
	DryRun        bool
	CableStatus   string
	MLAGGroups    [][2]string
}

// Load reads configuration from the process environment (already
// populated by --env-file, if any, before this is called) and
// validates required fields. Every key from the environment table is
// bound explicitly so AutomaticEnv alone can't silently miss one.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	bind(v,
		"netbox_url", "netbox_token", "netbox_verify_ssl", "switches_role",
		"ipmi_interface_names",
		"snmp_community", "snmp_version", "snmp_timeout", "snmp_retries",
		"uplink_ports", "uplink_patterns",
		"stability_runs", "state_db_path", "poll_interval", "dry_run",
		"cable_status", "mlag_groups",
	)

	v.SetDefault("netbox_verify_ssl", true)
	v.SetDefault("snmp_community", "public")
	v.SetDefault("snmp_version", "2c")
	v.SetDefault("snmp_timeout", 5)
	v.SetDefault("snmp_retries", 2)
	v.SetDefault("stability_runs", 2)
	v.SetDefault("state_db_path", "cablesage.db")
	// Effective default is 0 (one-shot), matching the original's
	// int(os.getenv("POLL_INTERVAL", "0")): an unset POLL_INTERVAL must
	// leave the one-shot exit-code-2 contract (spec §6, §7) reachable
	// without requiring an operator to set POLL_INTERVAL=0 explicitly.
	v.SetDefault("poll_interval", 0)
	v.SetDefault("dry_run", false)
	// Effective default is "connected", not the original Python
	// service's "planned" struct default: an unset CABLE_STATUS should
	// let cables go live immediately, matching how this service has
	// actually been operated.
	v.SetDefault("cable_status", "connected")

	cfg := Config{
		NetboxURL:          v.GetString("netbox_url"),
		NetboxToken:        v.GetString("netbox_token"),
		NetboxVerifySSL:    v.GetBool("netbox_verify_ssl"),
		SwitchesRole:       v.GetString("switches_role"),
		IPMIInterfaceNames: splitList(v.GetString("ipmi_interface_names")),
		SNMPCommunity:      v.GetString("snmp_community"),
		SNMPVersion:        v.GetString("snmp_version"),
		SNMPTimeout:        time.Duration(v.GetInt("snmp_timeout")) * time.Second,
		SNMPRetries:        v.GetInt("snmp_retries"),
		UplinkPorts:        splitList(v.GetString("uplink_ports")),
		UplinkPatterns:     splitList(v.GetString("uplink_patterns")),
		StabilityRuns:      v.GetInt("stability_runs"),
		StateDBPath:        v.GetString("state_db_path"),
		PollInterval:       time.Duration(v.GetInt("poll_interval")) * time.Second,
		DryRun:             v.GetBool("dry_run"),
		CableStatus:        v.GetString("cable_status"),
	}

	groups, err := parseMLAGGroups(v.GetString("mlag_groups"))
	if err != nil {
		return Config{}, fmt.Errorf("config: MLAG_GROUPS: %w", err)
	}
	cfg.MLAGGroups = groups

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bind(v *viper.Viper, keys ...string) {
	for _, k := range keys {
		// BindEnv errors only on a missing key argument, never at
		// runtime, so it's safe to ignore here.
		_ = v.BindEnv(k, strings.ToUpper(k))
	}
}

func (c Config) validate() error {
	var missing []string
	if c.NetboxURL == "" {
		missing = append(missing, "NETBOX_URL")
	}
	if c.NetboxToken == "" {
		missing = append(missing, "NETBOX_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	if c.CableStatus != "planned" && c.CableStatus != "connected" {
		return fmt.Errorf("config: CABLE_STATUS must be %q or %q, got %q", "planned", "connected", c.CableStatus)
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseMLAGGroups parses "sw1:sw2,sw3:sw4" into [][2]string pairs.
func parseMLAGGroups(raw string) ([][2]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var groups [][2]string
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed pair %q, want switch1:switch2", pair)
		}
		groups = append(groups, [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
	}
	return groups, nil
}
