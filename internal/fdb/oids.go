package fdb

// MIB OIDs the collector walks, matching the layouts the original
// implementation relies on.
const (
	// hwMacFwdPort (Huawei). Suffix: 6 MAC octets, 1 VLAN octet, 1
	// trailing 0. Value is an ifIndex.
	oidHWMacFwdPort = "1.3.6.1.4.1.2011.5.25.42.2.1.3.1.4"

	// dot1qTpFdbPort (Q-Bridge MIB). Suffix: 1 VLAN component, 6 MAC
	// octets. Value is a bridge port number.
	oidDot1qTpFdbPort = "1.3.6.1.2.1.17.7.1.2.2.1.2"

	// dot1dTpFdbPort (Bridge MIB). Suffix: 6 MAC octets, no VLAN. Value
	// is a bridge port number.
	oidDot1dTpFdbPort = "1.3.6.1.2.1.17.4.3.1.2"

	// ifName (IF-MIB). ifIndex -> port name.
	oidIfName = "1.3.6.1.2.1.31.1.1.1.1"
)
