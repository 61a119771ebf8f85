// Package correlate is the core correlation and stability engine: it
// joins OOB interfaces against FDB sightings and known switches,
// disambiguates conflicting sightings (including MLAG peers),
// classifies destination ports, and enforces the N-of-N observation
// stability rule through the state store, emitting one Decision per
// OOB interface.
package correlate

import (
	"github.com/cablesage/cablesage/internal/portclass"
	"github.com/cablesage/cablesage/internal/statestore"
)

// Decision is the ephemeral, per-run outcome for a single OOB
// interface. It is a pure value object: correlation's only side
// effects are the explicit state-store calls documented on Correlate.
type Decision struct {
	Status statestore.MACStatus

	OOBInterfaceID string
	DeviceName     string
	InterfaceName  string
	MAC            string

	SwitchName string
	SwitchID   string
	PortName   string
	PortID     string
	VLAN       *int

	Classification portclass.Classification

	StabilityCount int
	Threshold      int
	IsStable       bool

	ExpectedMAC string
	ActualMAC   string

	// Locations lists each unique "switch:port" sighted, sorted, when
	// Status is AMBIGUOUS.
	Locations []string

	Reason string
}
