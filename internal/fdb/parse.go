package fdb

import (
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// oidSuffix strips the leading dot and base OID prefix from a PDU's
// full name, returning the remaining dotted components.
func oidSuffix(name, base string) ([]string, bool) {
	trimmed := strings.TrimPrefix(name, ".")
	prefix := strings.TrimPrefix(base, ".") + "."
	if !strings.HasPrefix(trimmed, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(trimmed, prefix)
	if rest == "" {
		return nil, false
	}
	return strings.Split(rest, "."), true
}

// lastOIDComponent is a convenience for single-index walks (e.g.
// ifName) where the entire suffix is the index.
func lastOIDComponent(name, base string) (int, bool) {
	parts, ok := oidSuffix(name, base)
	if !ok || len(parts) != 1 {
		return 0, false
	}
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	return v, true
}

// pduString extracts a string from PDU types gosnmp commonly returns
// for OCTET STRING values (ifName, ifDescr, ifAlias).
func pduString(pdu gosnmp.SnmpPDU) (string, bool) {
	switch v := pdu.Value.(type) {
	case []byte:
		return string(v), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// pduInt extracts an integer from PDU types gosnmp commonly returns
// for INTEGER / Gauge32 / Counter32 values (ifIndex, bridge port
// numbers).
func pduInt(pdu gosnmp.SnmpPDU) (int, bool) {
	switch v := pdu.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	default:
		return 0, false
	}
}
