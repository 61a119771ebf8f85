package correlate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cablesage/cablesage/internal/fdb"
	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/cablesage/cablesage/internal/macaddr"
	"github.com/cablesage/cablesage/internal/portclass"
	"github.com/cablesage/cablesage/internal/statestore"
	"go.uber.org/zap"
)

// ObservationStore is the subset of statestore.Store the correlator
// writes through. Tests substitute an in-memory implementation with
// the same contracts; the correlator never touches the database
// directly.
type ObservationStore interface {
	UpdateObservation(ctx context.Context, mac, switchName, port string, vlan *int, threshold int, now time.Time) (count int, isStable bool, err error)
	MarkNotFound(ctx context.Context, mac string, now time.Time) error
	UpdateStatus(ctx context.Context, mac string, status statestore.MACStatus, cableID string, now time.Time) error
}

// PortLookup resolves a named switch port to its inventory identity.
// inventory.Client satisfies this.
type PortLookup interface {
	GetSwitchPort(ctx context.Context, switchID, portName string) (*inventory.SwitchPort, error)
}

// Correlator holds the configuration built once at construction: the
// port classifier and the symmetric MLAG peer map. Per spec design
// note, the MLAG map is never recomputed per MAC.
type Correlator struct {
	store      ObservationStore
	classifier *portclass.Classifier
	peerOf     map[string]string
	primaryOf  map[string]string
	threshold  int
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs a Correlator. mlagGroups is a list of [2]string pairs
// "switch1, switch2"; threshold is STABILITY_RUNS.
func New(store ObservationStore, classifier *portclass.Classifier, mlagGroups [][2]string, threshold int, logger *zap.Logger) *Correlator {
	peerOf, primaryOf := buildMLAGMaps(mlagGroups)
	return &Correlator{
		store:      store,
		classifier: classifier,
		peerOf:     peerOf,
		primaryOf:  primaryOf,
		threshold:  threshold,
		logger:     logger,
		now:        time.Now,
	}
}

func buildMLAGMaps(pairs [][2]string) (peerOf, primaryOf map[string]string) {
	peerOf = make(map[string]string, len(pairs)*2)
	primaryOf = make(map[string]string, len(pairs))
	for _, p := range pairs {
		a, b := p[0], p[1]
		peerOf[a] = b
		peerOf[b] = a
		primaryOf[unorderedKey(a, b)] = a
	}
	return peerOf, primaryOf
}

func unorderedKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func endpointKey(switchName, port string) string {
	return switchName + "\x00" + port
}

// Correlate joins oobs against fdbEntries and switches, returning one
// Decision per OOB interface. portLookup resolves switch ports once a
// sighting has been disambiguated and classified as eligible.
//
// Side effects (the only ones correlation performs): MarkNotFound when
// a MAC has no FDB sighting, UpdateObservation to advance the
// stability counter for a disambiguated sighting, and UpdateStatus to
// persist SKIP_NON_ACCESS when a port is classified ineligible or
// already has a cable on the switch side.
func (c *Correlator) Correlate(ctx context.Context, oobs []inventory.OOBInterface, fdbEntries []fdb.Entry, switches []inventory.Switch, portLookup PortLookup) ([]Decision, error) {
	switchByName := make(map[string]inventory.Switch, len(switches))
	for _, sw := range switches {
		switchByName[sw.Name] = sw
	}

	macToFDB := make(map[string][]fdb.Entry)
	portToMAC := make(map[string]string)
	for _, e := range fdbEntries {
		macToFDB[e.MAC] = append(macToFDB[e.MAC], e)
		portToMAC[endpointKey(e.SwitchName, e.PortName)] = e.MAC // last write wins
	}

	now := c.now()
	decisions := make([]Decision, 0, len(oobs))

	for _, oob := range oobs {
		mac, err := macaddr.Normalize(oob.MAC)
		if err != nil {
			return nil, fmt.Errorf("correlate: normalizing mac for oob interface %s: %w", oob.InterfaceID, err)
		}

		dec := Decision{
			OOBInterfaceID: oob.InterfaceID,
			DeviceName:     oob.DeviceName,
			InterfaceName:  oob.Name,
			MAC:            mac,
		}

		if oob.HasCable {
			decisions = append(decisions, c.decideAlreadyCabled(dec, oob, portToMAC))
			continue
		}

		sightings := macToFDB[mac]
		if len(sightings) == 0 {
			if err := c.store.MarkNotFound(ctx, mac, now); err != nil {
				c.logger.Error("correlate: mark_not_found failed", zap.String("mac", mac), zap.Error(err))
			}
			dec.Status = statestore.StatusNotFound
			decisions = append(decisions, dec)
			continue
		}

		chosen, ambiguousLocations, ok := c.resolveAmbiguity(sightings)
		if !ok {
			dec.Status = statestore.StatusAmbiguous
			dec.Locations = ambiguousLocations
			decisions = append(decisions, dec)
			continue
		}

		dec.SwitchName = chosen.SwitchName
		dec.PortName = chosen.PortName
		dec.VLAN = chosen.VLAN

		sw, ok := switchByName[chosen.SwitchName]
		if !ok {
			dec.Status = statestore.StatusError
			dec.Reason = "switch unknown to inventory"
			decisions = append(decisions, dec)
			continue
		}
		dec.SwitchID = sw.ID

		classification := c.classifier.Classify(chosen.PortName, "", false, false)
		dec.Classification = classification
		if !classification.IsAllowed {
			if err := c.store.UpdateStatus(ctx, mac, statestore.StatusSkipNonAccess, "", now); err != nil {
				c.logger.Error("correlate: update_status(SKIP_NON_ACCESS) failed", zap.String("mac", mac), zap.Error(err))
			}
			dec.Status = statestore.StatusSkipNonAccess
			dec.Reason = classification.Reason
			decisions = append(decisions, dec)
			continue
		}

		port, err := portLookup.GetSwitchPort(ctx, sw.ID, chosen.PortName)
		if err != nil {
			return nil, fmt.Errorf("correlate: resolving switch port %s:%s: %w", sw.Name, chosen.PortName, err)
		}
		if port == nil {
			dec.Status = statestore.StatusError
			dec.Reason = "switch port not found in inventory"
			decisions = append(decisions, dec)
			continue
		}
		dec.PortID = port.ID

		if port.HasCable {
			if err := c.store.UpdateStatus(ctx, mac, statestore.StatusSkipNonAccess, "", now); err != nil {
				c.logger.Error("correlate: update_status(SKIP_NON_ACCESS) failed", zap.String("mac", mac), zap.Error(err))
			}
			dec.Status = statestore.StatusSkipNonAccess
			dec.Reason = "switch port already cabled"
			decisions = append(decisions, dec)
			continue
		}

		count, stable, err := c.store.UpdateObservation(ctx, mac, chosen.SwitchName, chosen.PortName, chosen.VLAN, c.threshold, now)
		if err != nil {
			return nil, fmt.Errorf("correlate: update_observation(%s): %w", mac, err)
		}
		dec.StabilityCount = count
		dec.Threshold = c.threshold
		dec.IsStable = stable
		dec.Status = statestore.StatusPending
		if !stable {
			dec.Reason = fmt.Sprintf("waiting for stability (%d/%d)", count, c.threshold)
		} else {
			dec.Reason = "ready for cable creation"
		}
		decisions = append(decisions, dec)
	}

	return decisions, nil
}

// decideAlreadyCabled handles step 1: an OOB interface that the
// inventory already reports as cabled.
//
// Open question, decided: when the peer port is known but shows no
// MAC (e.g. the remote device is offline), this is treated
// conservatively as EXISTS rather than MISMATCH, matching the original
// implementation. A future UNVERIFIED status could distinguish this
// case but must not silently reclassify it as a mismatch.
func (c *Correlator) decideAlreadyCabled(dec Decision, oob inventory.OOBInterface, portToMAC map[string]string) Decision {
	if oob.PeerSwitch != "" && oob.PeerPort != "" {
		if actualMAC, ok := portToMAC[endpointKey(oob.PeerSwitch, oob.PeerPort)]; ok && actualMAC != dec.MAC {
			dec.Status = statestore.StatusMismatch
			dec.SwitchName = oob.PeerSwitch
			dec.PortName = oob.PeerPort
			dec.ExpectedMAC = dec.MAC
			dec.ActualMAC = actualMAC
			return dec
		}
	}
	dec.Status = statestore.StatusExists
	return dec
}

// resolveAmbiguity computes the set of unique (switch, port) endpoints
// among sightings and applies the tie-break rules. ok is false when
// the result is genuinely ambiguous, in which case locations lists
// every unique "switch:port" sighted, sorted for determinism.
func (c *Correlator) resolveAmbiguity(sightings []fdb.Entry) (chosen fdb.Entry, locations []string, ok bool) {
	uniqueByKey := make(map[string]fdb.Entry)
	for _, e := range sightings {
		uniqueByKey[endpointKey(e.SwitchName, e.PortName)] = e
	}

	if len(uniqueByKey) == 1 {
		for _, e := range uniqueByKey {
			return e, nil, true
		}
	}

	if len(uniqueByKey) == 2 {
		var entries []fdb.Entry
		for _, e := range uniqueByKey {
			entries = append(entries, e)
		}
		a, b := entries[0], entries[1]
		if a.PortName == b.PortName && c.peerOf[a.SwitchName] == b.SwitchName {
			primary := c.primaryOf[unorderedKey(a.SwitchName, b.SwitchName)]
			if primary == a.SwitchName {
				return a, nil, true
			}
			return b, nil, true
		}
	}

	locs := make([]string, 0, len(uniqueByKey))
	for k := range uniqueByKey {
		e := uniqueByKey[k]
		locs = append(locs, e.SwitchName+":"+e.PortName)
	}
	sort.Strings(locs)
	return fdb.Entry{}, locs, false
}
