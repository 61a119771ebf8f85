package fdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/cablesage/cablesage/internal/macaddr"
	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// walker is the subset of *gosnmp.GoSNMP this package depends on,
// narrowed to keep collection logic testable without a live SNMP
// agent.
type walker interface {
	Connect() error
	Close() error
	BulkWalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
}

// newGoSNMP builds a *gosnmp.GoSNMP for target using cred, selecting
// community-based v2c or USM-based v3 the way the teacher's recon
// collector does.
func newGoSNMP(target string, cred Credential) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:  target,
		Port:    161,
		Timeout: cred.Timeout,
		Retries: cred.Retries,
	}

	switch cred.Version {
	case "3":
		g.Version = gosnmp.Version3
		g.SecurityModel = gosnmp.UserSecurityModel
		authProto, err := mapAuthProtocol(cred.AuthProtocol)
		if err != nil {
			return nil, err
		}
		privProto, err := mapPrivProtocol(cred.PrivProtocol)
		if err != nil {
			return nil, err
		}
		msgFlags := gosnmp.NoAuthNoPriv
		if cred.AuthPassword != "" {
			msgFlags = gosnmp.AuthNoPriv
		}
		if cred.PrivPassword != "" {
			msgFlags = gosnmp.AuthPriv
		}
		g.MsgFlags = msgFlags
		g.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cred.Username,
			AuthenticationProtocol:   authProto,
			AuthenticationPassphrase: cred.AuthPassword,
			PrivacyProtocol:          privProto,
			PrivacyPassphrase:        cred.PrivPassword,
		}
	default:
		g.Version = gosnmp.Version2c
		g.Community = cred.Community
	}

	return g, nil
}

func mapAuthProtocol(name string) (gosnmp.SnmpV3AuthProtocol, error) {
	switch strings.ToUpper(name) {
	case "", "NOAUTH":
		return gosnmp.NoAuth, nil
	case "MD5":
		return gosnmp.MD5, nil
	case "SHA":
		return gosnmp.SHA, nil
	case "SHA256":
		return gosnmp.SHA256, nil
	default:
		return 0, fmt.Errorf("fdb: unknown snmp v3 auth protocol %q", name)
	}
}

func mapPrivProtocol(name string) (gosnmp.SnmpV3PrivProtocol, error) {
	switch strings.ToUpper(name) {
	case "", "NOPRIV":
		return gosnmp.NoPriv, nil
	case "DES":
		return gosnmp.DES, nil
	case "AES":
		return gosnmp.AES, nil
	case "AES256":
		return gosnmp.AES256, nil
	default:
		return 0, fmt.Errorf("fdb: unknown snmp v3 priv protocol %q", name)
	}
}

// Collector walks switches for FDB entries.
type Collector struct {
	cfg    Config
	logger *zap.Logger
	// dial is overridden in tests to avoid real network connections.
	dial func(target string, cred Credential) (walker, error)
}

// New constructs a Collector.
func New(cfg Config, logger *zap.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		logger: logger,
		dial: func(target string, cred Credential) (walker, error) {
			return newGoSNMP(target, cred)
		},
	}
}

// CollectAll fans out Collect across switches with bounded parallelism
// (Config.MaxParallel), preserving per-switch sequential SNMP walks.
// Individual switch failures never abort the whole collection; they
// are logged and that switch simply contributes no entries.
func (c *Collector) CollectAll(ctx context.Context, switches []inventory.Switch) []Entry {
	limit := c.cfg.MaxParallel
	if limit <= 0 {
		limit = 4
	}

	var (
		g       errgroup.Group
		results = make([][]Entry, len(switches))
	)
	g.SetLimit(limit)

	for i, sw := range switches {
		i, sw := i, sw
		if sw.MgmtIP == "" {
			c.logger.Debug("fdb: skipping switch with no management ip", zap.String("switch", sw.Name))
			continue
		}
		g.Go(func() error {
			results[i] = c.Collect(ctx, sw)
			return nil
		})
	}
	_ = g.Wait()

	var out []Entry
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// Collect walks a single switch for FDB entries, trying the Huawei,
// Q-Bridge, and Bridge MIBs in order and returning the first
// non-empty result. SNMP errors and timeouts never propagate to the
// caller: they are logged and yield an empty result for this switch.
func (c *Collector) Collect(ctx context.Context, sw inventory.Switch) []Entry {
	if sw.MgmtIP == "" {
		return nil
	}

	conn, err := c.dial(sw.MgmtIP, c.cfg.Credential)
	if err != nil {
		c.logger.Error("fdb: failed to build snmp client", zap.String("switch", sw.Name), zap.Error(err))
		return nil
	}
	if err := conn.Connect(); err != nil {
		c.logger.Error("fdb: snmp connect failed", zap.String("switch", sw.Name), zap.String("ip", sw.MgmtIP), zap.Error(err))
		return nil
	}
	defer conn.Close()

	ifNames, err := c.collectIfNames(conn)
	if err != nil {
		c.logger.Warn("fdb: failed to walk ifName, port names will use placeholders", zap.String("switch", sw.Name), zap.Error(err))
		ifNames = map[int]string{}
	}

	now := time.Now().UTC()

	entries, err := c.collectHuawei(conn, sw, ifNames, now)
	if err != nil {
		c.logger.Debug("fdb: huawei mib walk failed", zap.String("switch", sw.Name), zap.Error(err))
	}
	if len(entries) > 0 {
		return entries
	}

	entries, err = c.collectQBridge(conn, sw, ifNames, now)
	if err != nil {
		c.logger.Debug("fdb: q-bridge mib walk failed", zap.String("switch", sw.Name), zap.Error(err))
	}
	if len(entries) > 0 {
		return entries
	}

	entries, err = c.collectBridge(conn, sw, ifNames, now)
	if err != nil {
		c.logger.Debug("fdb: bridge mib walk failed", zap.String("switch", sw.Name), zap.Error(err))
	}
	return entries
}

func (c *Collector) collectIfNames(conn walker) (map[int]string, error) {
	pdus, err := conn.BulkWalkAll(oidIfName)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(pdus))
	for _, pdu := range pdus {
		idx, ok := lastOIDComponent(pdu.Name, oidIfName)
		if !ok {
			continue
		}
		if s, ok := pduString(pdu); ok {
			out[idx] = s
		}
	}
	return out, nil
}

func portName(ifNames map[int]string, ifIndex int) string {
	if name, ok := ifNames[ifIndex]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("port%d", ifIndex)
}

// collectHuawei parses hwMacFwdPort: suffix = 6 MAC octets + 1 VLAN
// octet + trailing 0; value = ifIndex.
func (c *Collector) collectHuawei(conn walker, sw inventory.Switch, ifNames map[int]string, now time.Time) ([]Entry, error) {
	pdus, err := conn.BulkWalkAll(oidHWMacFwdPort)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, pdu := range pdus {
		suffix, ok := oidSuffix(pdu.Name, oidHWMacFwdPort)
		if !ok || len(suffix) < 8 {
			continue
		}
		mac, err := macaddr.FromOIDSuffix(strings.Join(suffix[:6], "."))
		if err != nil {
			continue
		}
		vlan, err := strconv.Atoi(suffix[6])
		if err != nil {
			continue
		}
		ifIndex, ok := pduInt(pdu)
		if !ok {
			continue
		}
		out = append(out, Entry{
			MAC:        mac,
			SwitchName: sw.Name,
			SwitchIP:   sw.MgmtIP,
			PortName:   portName(ifNames, ifIndex),
			PortIndex:  ifIndex,
			VLAN:       &vlan,
			ObservedAt: now,
		})
	}
	return out, nil
}

// collectQBridge parses dot1qTpFdbPort: suffix = 1 VLAN component + 6
// MAC octets; value = bridge port number (used directly as ifIndex).
func (c *Collector) collectQBridge(conn walker, sw inventory.Switch, ifNames map[int]string, now time.Time) ([]Entry, error) {
	pdus, err := conn.BulkWalkAll(oidDot1qTpFdbPort)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, pdu := range pdus {
		suffix, ok := oidSuffix(pdu.Name, oidDot1qTpFdbPort)
		if !ok || len(suffix) < 7 {
			continue
		}
		vlan, err := strconv.Atoi(suffix[0])
		if err != nil {
			continue
		}
		mac, err := macaddr.FromOIDSuffix(strings.Join(suffix[1:7], "."))
		if err != nil {
			continue
		}
		ifIndex, ok := pduInt(pdu)
		if !ok {
			continue
		}
		out = append(out, Entry{
			MAC:        mac,
			SwitchName: sw.Name,
			SwitchIP:   sw.MgmtIP,
			PortName:   portName(ifNames, ifIndex),
			PortIndex:  ifIndex,
			VLAN:       &vlan,
			ObservedAt: now,
		})
	}
	return out, nil
}

// collectBridge parses dot1dTpFdbPort: suffix = 6 MAC octets, no VLAN;
// value = bridge port number. Only one entry per MAC is kept, matching
// the original implementation's dedup behavior.
func (c *Collector) collectBridge(conn walker, sw inventory.Switch, ifNames map[int]string, now time.Time) ([]Entry, error) {
	pdus, err := conn.BulkWalkAll(oidDot1dTpFdbPort)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Entry
	for _, pdu := range pdus {
		suffix, ok := oidSuffix(pdu.Name, oidDot1dTpFdbPort)
		if !ok || len(suffix) < 6 {
			continue
		}
		mac, err := macaddr.FromOIDSuffix(strings.Join(suffix[:6], "."))
		if err != nil {
			continue
		}
		if _, dup := seen[mac]; dup {
			continue
		}
		seen[mac] = struct{}{}

		ifIndex, ok := pduInt(pdu)
		if !ok {
			continue
		}
		out = append(out, Entry{
			MAC:        mac,
			SwitchName: sw.Name,
			SwitchIP:   sw.MgmtIP,
			PortName:   portName(ifNames, ifIndex),
			PortIndex:  ifIndex,
			ObservedAt: now,
		})
	}
	return out, nil
}
