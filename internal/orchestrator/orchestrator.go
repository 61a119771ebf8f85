package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cablesage/cablesage/internal/correlate"
	"github.com/cablesage/cablesage/internal/fdb"
	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/cablesage/cablesage/internal/statestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryClient is the subset of inventory.Client the orchestrator
// drives directly. It also satisfies correlate.PortLookup.
type InventoryClient interface {
	ListOOBInterfaces(ctx context.Context) ([]inventory.OOBInterface, error)
	ListSwitches(ctx context.Context, siteSlugs []string) ([]inventory.Switch, error)
	GetSwitchPort(ctx context.Context, switchID, portName string) (*inventory.SwitchPort, error)
	CreateCable(ctx context.Context, aID, bID string, vlan *int, label string, now time.Time) (*inventory.CableRecord, error)
}

// FDBCollector is the subset of fdb.Collector the orchestrator drives.
type FDBCollector interface {
	CollectAll(ctx context.Context, switches []inventory.Switch) []fdb.Entry
}

// Correlator is the subset of correlate.Correlator the orchestrator
// drives.
type Correlator interface {
	Correlate(ctx context.Context, oobs []inventory.OOBInterface, fdbEntries []fdb.Entry, switches []inventory.Switch, portLookup correlate.PortLookup) ([]correlate.Decision, error)
}

// Store is the subset of statestore.Store the orchestrator drives
// directly (the correlator drives the rest through its own narrower
// interface).
type Store interface {
	RecordRun(ctx context.Context, summary statestore.RunSummary) error
	UpdateStatus(ctx context.Context, mac string, status statestore.MACStatus, cableID string, now time.Time) error
	ListCreatedCables(ctx context.Context) ([]statestore.MACState, error)
}

// Orchestrator wires an inventory client, FDB collector, correlator,
// and state store into the run_once / run_daemon sequence.
type Orchestrator struct {
	inv        InventoryClient
	collector  FDBCollector
	correlator Correlator
	store      Store
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs an Orchestrator.
func New(inv InventoryClient, collector FDBCollector, correlator Correlator, store Store, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		inv:        inv,
		collector:  collector,
		correlator: correlator,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// RunOnce executes a single pass: list OOB interfaces, derive the site
// set, list switches, collect FDBs, correlate, act on eligible
// decisions, and record a run summary.
func (o *Orchestrator) RunOnce(ctx context.Context) (RunSummary, error) {
	now := o.now()
	summary := RunSummary{RunID: uuid.NewString(), RunAt: now}

	oobs, err := o.inv.ListOOBInterfaces(ctx)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: run_once: listing oob interfaces: %w", err)
	}
	summary.TotalMACs = len(oobs)

	sites := uniqueSites(oobs)

	switches, err := o.inv.ListSwitches(ctx, sites)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: run_once: listing switches: %w", err)
	}

	entries := o.collector.CollectAll(ctx, switches)

	decisions, err := o.correlator.Correlate(ctx, oobs, entries, switches, o.inv)
	if err != nil {
		return summary, fmt.Errorf("orchestrator: run_once: correlating: %w", err)
	}

	for _, dec := range decisions {
		o.processDecision(ctx, dec, now, &summary)
	}

	if err := o.store.RecordRun(ctx, statestore.RunSummary{
		RunID:        summary.RunID,
		RunAt:        summary.RunAt,
		TotalMACs:    summary.TotalMACs,
		CntCreated:   summary.Created,
		CntExists:    summary.Exists,
		CntSkipped:   summary.Skipped,
		CntAmbiguous: summary.Ambiguous,
		CntNotFound:  summary.NotFound,
		CntErrors:    summary.Errors,
	}); err != nil {
		o.logger.Error("orchestrator: record_run failed", zap.Error(err))
	}

	if cables, err := o.store.ListCreatedCables(ctx); err != nil {
		o.logger.Warn("orchestrator: list_created_cables audit query failed", zap.Error(err))
	} else {
		o.logger.Info("orchestrator: cumulative created cables", zap.Int("count", len(cables)))
	}

	o.logger.Info("orchestrator: run complete", zap.String("summary", summary.String()))
	return summary, nil
}

func (o *Orchestrator) processDecision(ctx context.Context, dec correlate.Decision, now time.Time, summary *RunSummary) {
	log := o.logger.With(
		zap.String("mac", dec.MAC),
		zap.String("device", dec.DeviceName),
		zap.String("interface", dec.InterfaceName),
		zap.String("status", string(dec.Status)),
		zap.String("switch", dec.SwitchName),
		zap.String("port", dec.PortName),
	)

	switch dec.Status {
	case statestore.StatusExists:
		summary.Exists++
		log.Debug("already cabled")
	case statestore.StatusSkipNonAccess:
		summary.Skipped++
		log.Debug("skipped", zap.String("reason", dec.Reason))
	case statestore.StatusAmbiguous:
		summary.Ambiguous++
		log.Warn("ambiguous sighting", zap.Strings("locations", dec.Locations))
	case statestore.StatusNotFound:
		summary.NotFound++
		log.Debug("not found in any fdb")
	case statestore.StatusError:
		summary.Errors++
		log.Error("correlation error", zap.String("reason", dec.Reason))
	case statestore.StatusMismatch:
		summary.Mismatch++
		log.Error("mac mismatch on existing cable",
			zap.String("expected_mac", dec.ExpectedMAC), zap.String("actual_mac", dec.ActualMAC))
	case statestore.StatusPending:
		summary.Pending++
		if dec.IsStable && dec.PortID != "" {
			o.createCable(ctx, dec, now, summary, log)
		} else {
			log.Debug("pending stability", zap.String("reason", dec.Reason))
		}
	}
}

func (o *Orchestrator) createCable(ctx context.Context, dec correlate.Decision, now time.Time, summary *RunSummary, log *zap.Logger) {
	cable, err := o.inv.CreateCable(ctx, dec.OOBInterfaceID, dec.PortID, dec.VLAN, "", now)
	if err != nil {
		summary.Errors++
		log.Error("cable creation failed", zap.Error(err))
		if updErr := o.store.UpdateStatus(ctx, dec.MAC, statestore.StatusError, "", now); updErr != nil {
			log.Error("update_status(ERROR) failed", zap.Error(updErr))
		}
		return
	}
	if cable == nil {
		// Dry-run: the inventory client only logged its intent and created
		// nothing, so this does not count as a completed creation. Mirrors
		// the original implementation, which treats a dry-run "creation" as
		// falling through to the error/not-created branch (service.py's
		// _create_cable returns None in dry-run, and the caller counts that
		// into errors rather than created) so a dry-run pass still surfaces
		// its pending creates via the documented exit-code-2 contract.
		summary.Pending--
		summary.Errors++
		if updErr := o.store.UpdateStatus(ctx, dec.MAC, statestore.StatusError, "", now); updErr != nil {
			log.Error("update_status(ERROR) failed", zap.Error(updErr))
		}
		return
	}

	summary.Pending--
	summary.Created++
	if err := o.store.UpdateStatus(ctx, dec.MAC, statestore.StatusCreated, cable.ID, now); err != nil {
		log.Error("update_status(CREATED) failed", zap.Error(err))
	}
	log.Info("cable created", zap.String("cable_id", cable.ID))
}

// RunDaemon repeats RunOnce on the configured interval, logging and
// continuing past any per-run error so the loop survives transient
// failures. It returns when ctx is cancelled.
func (o *Orchestrator) RunDaemon(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	o.logger.Info("orchestrator: daemon started", zap.Duration("poll_interval", pollInterval))

	for {
		if _, err := o.RunOnce(ctx); err != nil {
			o.logger.Error("orchestrator: run failed, continuing", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator: daemon stopped")
			return
		case <-ticker.C:
		}
	}
}

func uniqueSites(oobs []inventory.OOBInterface) []string {
	seen := make(map[string]struct{})
	var sites []string
	for _, o := range oobs {
		if o.SiteSlug == "" {
			continue
		}
		if _, ok := seen[o.SiteSlug]; ok {
			continue
		}
		seen[o.SiteSlug] = struct{}{}
		sites = append(sites, o.SiteSlug)
	}
	return sites
}
