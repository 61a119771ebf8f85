// Package portclass decides whether a switch port is an eligible access
// port a cable may be created against, using an ordered rule pipeline:
// explicit uplink names, description/name pattern matches, LAG
// membership, and LLDP hints, in that fixed order.
package portclass

import (
	"fmt"
	"regexp"
	"strings"
)

// PortType is a closed tagged variant for the classifier's verdict.
type PortType string

const (
	PortTypeAccess    PortType = "ACCESS"
	PortTypeUplink    PortType = "UPLINK"
	PortTypeLAGMember PortType = "LAG_MEMBER"
)

// DefaultUplinkPatterns are the built-in, user-overridable regex
// fragments matched case-insensitively against port names and
// descriptions.
var DefaultUplinkPatterns = []string{
	"uplink",
	"to[-_]?spine",
	"trunk",
	"peer",
	"mlag",
	"lag",
	`^po\d+`,
	`port[-_]?channel`,
}

// Classification is the result of classifying a single port.
type Classification struct {
	PortType  PortType
	Reason    string
	IsAllowed bool
}

// Classifier holds the compiled configuration for port classification.
// It is safe for concurrent use: all state is read-only after New.
type Classifier struct {
	uplinkPorts map[string]struct{}
	uplinkRegex *regexp.Regexp
}

// New compiles a Classifier from an explicit set of uplink port names
// and a list of regex fragments, alternated into a single
// case-insensitive matcher. Passing a nil or empty patterns slice
// falls back to DefaultUplinkPatterns.
func New(uplinkPorts []string, patterns []string) (*Classifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultUplinkPatterns
	}

	alternation := "(?i)(" + strings.Join(patterns, "|") + ")"
	re, err := regexp.Compile(alternation)
	if err != nil {
		return nil, fmt.Errorf("portclass: compiling uplink pattern alternation: %w", err)
	}

	set := make(map[string]struct{}, len(uplinkPorts))
	for _, p := range uplinkPorts {
		set[p] = struct{}{}
	}

	return &Classifier{uplinkPorts: set, uplinkRegex: re}, nil
}

// Classify applies the six-rule decision pipeline in fixed order, the
// first match winning. description, when empty, never matches rule 2.
func (c *Classifier) Classify(portName, description string, isLAGMember, lldpNeighborIsSwitch bool) Classification {
	if _, ok := c.uplinkPorts[portName]; ok {
		return Classification{PortType: PortTypeUplink, Reason: "configured uplink port", IsAllowed: false}
	}

	if description != "" {
		if m := c.uplinkRegex.FindString(description); m != "" {
			return Classification{
				PortType:  PortTypeUplink,
				Reason:    fmt.Sprintf("description matches uplink pattern %q", m),
				IsAllowed: false,
			}
		}
	}

	if m := c.uplinkRegex.FindString(portName); m != "" {
		return Classification{
			PortType:  PortTypeUplink,
			Reason:    fmt.Sprintf("port name matches uplink pattern %q", m),
			IsAllowed: false,
		}
	}

	if isLAGMember {
		return Classification{PortType: PortTypeLAGMember, Reason: "LAG member", IsAllowed: false}
	}

	if lldpNeighborIsSwitch {
		return Classification{PortType: PortTypeUplink, Reason: "LLDP neighbor is a switch", IsAllowed: false}
	}

	return Classification{PortType: PortTypeAccess, Reason: "no uplink indicators", IsAllowed: true}
}
