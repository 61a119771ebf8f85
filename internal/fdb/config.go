package fdb

import "time"

// Credential carries the SNMP transport parameters for a single
// switch poll. Version is either "2c" or "3"; v3 auth/priv fields are
// only consulted when Version is "3".
type Credential struct {
	Version   string
	Community string
	Timeout   time.Duration
	Retries   int

	// SNMPv3 fields, consulted only when Version == "3".
	Username     string
	AuthProtocol string
	AuthPassword string
	PrivProtocol string
	PrivPassword string
}

// Config configures CollectAll's fan-out across switches.
type Config struct {
	Credential  Credential
	MaxParallel int
}

// DefaultConfig returns sane defaults: SNMPv2c, a 5s timeout, 2
// retries, and up to 4 switches polled concurrently.
func DefaultConfig() Config {
	return Config{
		Credential: Credential{
			Version:   "2c",
			Community: "public",
			Timeout:   5 * time.Second,
			Retries:   2,
		},
		MaxParallel: 4,
	}
}
