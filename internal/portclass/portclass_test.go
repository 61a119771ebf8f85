package portclass

import "testing"

func newDefault(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClassifyExplicitUplinkPort(t *testing.T) {
	c, err := New([]string{"Ethernet1"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Classify("Ethernet1", "", false, false)
	if got.PortType != PortTypeUplink || got.IsAllowed {
		t.Errorf("got %+v, want UPLINK/not allowed", got)
	}
}

func TestClassifyDescriptionPattern(t *testing.T) {
	c := newDefault(t)
	got := c.Classify("Ethernet5", "uplink to core", false, false)
	if got.PortType != PortTypeUplink || got.IsAllowed {
		t.Errorf("got %+v, want UPLINK/not allowed", got)
	}
}

func TestClassifyPortNamePattern(t *testing.T) {
	c := newDefault(t)
	got := c.Classify("Po1", "", false, false)
	if got.PortType != PortTypeUplink || got.IsAllowed {
		t.Errorf("got %+v, want UPLINK/not allowed", got)
	}
}

func TestClassifyLAGMember(t *testing.T) {
	c := newDefault(t)
	got := c.Classify("Ethernet5", "", true, false)
	if got.PortType != PortTypeLAGMember || got.IsAllowed {
		t.Errorf("got %+v, want LAG_MEMBER/not allowed", got)
	}
}

func TestClassifyLLDPNeighborIsSwitch(t *testing.T) {
	c := newDefault(t)
	got := c.Classify("Ethernet5", "", false, true)
	if got.PortType != PortTypeUplink || got.IsAllowed {
		t.Errorf("got %+v, want UPLINK/not allowed", got)
	}
}

func TestClassifyAccess(t *testing.T) {
	c := newDefault(t)
	got := c.Classify("Ethernet5", "server rack 3", false, false)
	if got.PortType != PortTypeAccess || !got.IsAllowed {
		t.Errorf("got %+v, want ACCESS/allowed", got)
	}
}

func TestClassifyOrderFirstMatchWins(t *testing.T) {
	// Explicit uplink port should win over what would otherwise be
	// classified ACCESS, even if it's also a LAG member.
	c, err := New([]string{"Ethernet5"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := c.Classify("Ethernet5", "", true, false)
	if got.PortType != PortTypeUplink {
		t.Errorf("got %+v, want UPLINK (rule 1 should win over rule 4)", got)
	}
}
