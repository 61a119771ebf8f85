// Package macaddr normalizes MAC address strings from heterogeneous
// formats into the canonical lowercase, colon-separated form used
// everywhere else in this repo, and converts between that form and the
// decimal-octet OID suffixes SNMP walks key FDB entries by.
package macaddr

import (
	"fmt"
	"strings"
)

// Canonical regex shape: six lowercase hex octets, colon-separated.
// Not compiled as a regexp since the validation is driven by the
// parsing logic below, but Normalize's output always matches
// ^[0-9a-f]{2}(:[0-9a-f]{2}){5}$.

// Empty is the sentinel canonical form for "absent", used only where a
// MAC is genuinely optional (e.g. an unresolved peer port).
const Empty = ""

// Normalize reduces a MAC string in any of the accepted input formats
// (colon, dash, Cisco dot, or bare hex, case-insensitive, surrounding
// whitespace stripped) to canonical form. An empty input (after
// trimming) returns Empty with no error. Any input that does not
// reduce to exactly 12 hex digits is a validation error.
func Normalize(mac string) (string, error) {
	trimmed := strings.TrimSpace(mac)
	if trimmed == "" {
		return Empty, nil
	}

	var hex strings.Builder
	for _, r := range trimmed {
		switch {
		case r == ':' || r == '-' || r == '.':
			continue
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			hex.WriteRune(r)
		default:
			return "", fmt.Errorf("macaddr: invalid character %q in %q", r, mac)
		}
	}

	digits := strings.ToLower(hex.String())
	if len(digits) != 12 {
		return "", fmt.Errorf("macaddr: %q does not reduce to 12 hex digits", mac)
	}

	var out strings.Builder
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			out.WriteByte(':')
		}
		out.WriteString(digits[i : i+2])
	}
	return out.String(), nil
}

// ToOIDSuffix converts a canonical MAC into its six decimal-octet OID
// suffix, e.g. "aa:bb:cc:dd:ee:ff" -> "170.187.204.221.238.255".
func ToOIDSuffix(mac string) (string, error) {
	canonical, err := Normalize(mac)
	if err != nil {
		return "", err
	}
	if canonical == Empty {
		return "", fmt.Errorf("macaddr: cannot convert empty MAC to OID suffix")
	}

	octets := strings.Split(canonical, ":")
	parts := make([]string, len(octets))
	for i, o := range octets {
		var v int
		if _, err := fmt.Sscanf(o, "%02x", &v); err != nil {
			return "", fmt.Errorf("macaddr: invalid octet %q in %q: %w", o, mac, err)
		}
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, "."), nil
}

// FromOIDSuffix is the inverse of ToOIDSuffix: it parses a six-component
// dotted-decimal OID suffix back into canonical MAC form.
func FromOIDSuffix(suffix string) (string, error) {
	parts := strings.Split(suffix, ".")
	if len(parts) != 6 {
		return "", fmt.Errorf("macaddr: OID suffix %q does not have 6 octets", suffix)
	}

	octets := make([]string, 6)
	for i, p := range parts {
		var v int
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil {
			return "", fmt.Errorf("macaddr: invalid octet %q in suffix %q: %w", p, suffix, err)
		}
		if v < 0 || v > 255 {
			return "", fmt.Errorf("macaddr: octet %d out of range in suffix %q", v, suffix)
		}
		octets[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(octets, ":"), nil
}
