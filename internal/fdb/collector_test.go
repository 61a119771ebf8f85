package fdb

import (
	"context"
	"testing"

	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
)

type fakeWalker struct {
	responses map[string][]gosnmp.SnmpPDU
	errors    map[string]error
}

func (f *fakeWalker) Connect() error { return nil }
func (f *fakeWalker) Close() error   { return nil }
func (f *fakeWalker) BulkWalkAll(oid string) ([]gosnmp.SnmpPDU, error) {
	if err, ok := f.errors[oid]; ok {
		return nil, err
	}
	return f.responses[oid], nil
}

func newTestCollector(t *testing.T, fw *fakeWalker) *Collector {
	t.Helper()
	c := New(DefaultConfig(), zap.NewNop())
	c.dial = func(target string, cred Credential) (walker, error) {
		return fw, nil
	}
	return c
}

func TestCollectHuaweiFallback(t *testing.T) {
	fw := &fakeWalker{
		responses: map[string][]gosnmp.SnmpPDU{
			oidIfName:       {{Name: "." + oidIfName + ".5", Value: []byte("Ethernet5")}},
			oidHWMacFwdPort: {{Name: "." + oidHWMacFwdPort + ".170.187.204.221.238.255.10.0", Value: 5}},
		},
	}
	c := newTestCollector(t, fw)
	sw := inventory.Switch{Name: "sw1", MgmtIP: "10.0.0.1"}

	entries := c.Collect(context.Background(), sw)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("MAC = %q", e.MAC)
	}
	if e.PortName != "Ethernet5" {
		t.Errorf("PortName = %q, want Ethernet5", e.PortName)
	}
	if e.VLAN == nil || *e.VLAN != 10 {
		t.Errorf("VLAN = %v, want 10", e.VLAN)
	}
}

func TestCollectFallsBackToQBridgeWhenHuaweiEmpty(t *testing.T) {
	fw := &fakeWalker{
		responses: map[string][]gosnmp.SnmpPDU{
			oidIfName:         {{Name: "." + oidIfName + ".7", Value: []byte("Ethernet7")}},
			oidHWMacFwdPort:   {},
			oidDot1qTpFdbPort: {{Name: "." + oidDot1qTpFdbPort + ".20.170.187.204.221.238.255", Value: 7}},
		},
	}
	c := newTestCollector(t, fw)
	sw := inventory.Switch{Name: "sw1", MgmtIP: "10.0.0.1"}

	entries := c.Collect(context.Background(), sw)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].VLAN == nil || *entries[0].VLAN != 20 {
		t.Errorf("VLAN = %v, want 20", entries[0].VLAN)
	}
	if entries[0].PortName != "Ethernet7" {
		t.Errorf("PortName = %q, want Ethernet7", entries[0].PortName)
	}
}

func TestCollectFallsBackToBridgeAndDedups(t *testing.T) {
	fw := &fakeWalker{
		responses: map[string][]gosnmp.SnmpPDU{
			oidIfName:         {},
			oidHWMacFwdPort:   {},
			oidDot1qTpFdbPort: {},
			oidDot1dTpFdbPort: {
				{Name: "." + oidDot1dTpFdbPort + ".170.187.204.221.238.255", Value: 9},
				{Name: "." + oidDot1dTpFdbPort + ".170.187.204.221.238.255", Value: 9},
			},
		},
	}
	c := newTestCollector(t, fw)
	sw := inventory.Switch{Name: "sw1", MgmtIP: "10.0.0.1"}

	entries := c.Collect(context.Background(), sw)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (deduped)", len(entries))
	}
	if entries[0].PortName != "port9" {
		t.Errorf("PortName = %q, want fallback placeholder port9", entries[0].PortName)
	}
	if entries[0].VLAN != nil {
		t.Errorf("VLAN = %v, want nil (bridge mib has no vlan)", entries[0].VLAN)
	}
}

func TestCollectSkipsSwitchWithNoMgmtIP(t *testing.T) {
	c := newTestCollector(t, &fakeWalker{})
	entries := c.Collect(context.Background(), inventory.Switch{Name: "sw1"})
	if entries != nil {
		t.Errorf("expected nil entries for switch with no mgmt ip, got %v", entries)
	}
}

func TestCollectAllMergesAcrossSwitches(t *testing.T) {
	fw := &fakeWalker{
		responses: map[string][]gosnmp.SnmpPDU{
			oidIfName:       {},
			oidHWMacFwdPort: {{Name: "." + oidHWMacFwdPort + ".170.187.204.221.238.255.10.0", Value: 5}},
		},
	}
	c := newTestCollector(t, fw)
	switches := []inventory.Switch{
		{Name: "sw1", MgmtIP: "10.0.0.1"},
		{Name: "sw2", MgmtIP: "10.0.0.2"},
		{Name: "sw3"}, // no mgmt ip, skipped
	}

	entries := c.CollectAll(context.Background(), switches)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (one per switch with mgmt ip)", len(entries))
	}
}
