package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cablesage/cablesage/internal/correlate"
	"github.com/cablesage/cablesage/internal/fdb"
	"github.com/cablesage/cablesage/internal/inventory"
	"github.com/cablesage/cablesage/internal/statestore"
	"go.uber.org/zap"
)

type fakeInventory struct {
	oobs          []inventory.OOBInterface
	switches      []inventory.Switch
	createErr     error
	createdRecord *inventory.CableRecord
	createCableFn func() (*inventory.CableRecord, error)
}

func (f *fakeInventory) ListOOBInterfaces(context.Context) ([]inventory.OOBInterface, error) {
	return f.oobs, nil
}
func (f *fakeInventory) ListSwitches(context.Context, []string) ([]inventory.Switch, error) {
	return f.switches, nil
}
func (f *fakeInventory) GetSwitchPort(context.Context, string, string) (*inventory.SwitchPort, error) {
	return nil, nil
}
func (f *fakeInventory) CreateCable(context.Context, string, string, *int, string, time.Time) (*inventory.CableRecord, error) {
	if f.createCableFn != nil {
		return f.createCableFn()
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createdRecord, nil
}

type fakeCollector struct{}

func (fakeCollector) CollectAll(context.Context, []inventory.Switch) []fdb.Entry { return nil }

type fakeCorrelator struct {
	decisions []correlate.Decision
}

func (f *fakeCorrelator) Correlate(context.Context, []inventory.OOBInterface, []fdb.Entry, []inventory.Switch, correlate.PortLookup) ([]correlate.Decision, error) {
	return f.decisions, nil
}

type fakeStore struct {
	recorded      []statestore.RunSummary
	updatedStatus []statestore.MACStatus
}

func (f *fakeStore) RecordRun(_ context.Context, s statestore.RunSummary) error {
	f.recorded = append(f.recorded, s)
	return nil
}
func (f *fakeStore) UpdateStatus(_ context.Context, _ string, status statestore.MACStatus, _ string, _ time.Time) error {
	f.updatedStatus = append(f.updatedStatus, status)
	return nil
}
func (f *fakeStore) ListCreatedCables(context.Context) ([]statestore.MACState, error) { return nil, nil }

func TestRunOnceCreatesCableForStablePending(t *testing.T) {
	inv := &fakeInventory{
		oobs:          []inventory.OOBInterface{{InterfaceID: "1", MAC: "aa:bb:cc:dd:ee:01"}},
		createdRecord: &inventory.CableRecord{ID: "cable-1"},
	}
	corr := &fakeCorrelator{decisions: []correlate.Decision{
		{MAC: "aa:bb:cc:dd:ee:01", Status: statestore.StatusPending, IsStable: true, PortID: "200"},
	}}
	store := &fakeStore{}
	o := New(inv, fakeCollector{}, corr, store, zap.NewNop())

	summary, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Created != 1 || summary.Pending != 0 {
		t.Errorf("got %+v, want Created=1 Pending=0", summary)
	}
	if len(store.updatedStatus) != 1 || store.updatedStatus[0] != statestore.StatusCreated {
		t.Errorf("expected UpdateStatus(CREATED) to be called, got %v", store.updatedStatus)
	}
	if len(store.recorded) != 1 {
		t.Errorf("expected RecordRun to be called once")
	}
}

func TestRunOnceDryRunCountsAsError(t *testing.T) {
	inv := &fakeInventory{
		oobs:          []inventory.OOBInterface{{InterfaceID: "1", MAC: "aa:bb:cc:dd:ee:01"}},
		createdRecord: nil, // dry-run sentinel: CreateCable returns (nil, nil)
	}
	corr := &fakeCorrelator{decisions: []correlate.Decision{
		{MAC: "aa:bb:cc:dd:ee:01", Status: statestore.StatusPending, IsStable: true, PortID: "200"},
	}}
	store := &fakeStore{}
	o := New(inv, fakeCollector{}, corr, store, zap.NewNop())

	summary, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Created != 0 || summary.Errors != 1 {
		t.Errorf("dry-run should count as Errors, not Created, got %+v", summary)
	}
	if len(store.updatedStatus) != 1 || store.updatedStatus[0] != statestore.StatusError {
		t.Errorf("dry-run should persist ERROR status, got %v", store.updatedStatus)
	}
}

func TestRunOnceCableCreationFailureBumpsErrors(t *testing.T) {
	inv := &fakeInventory{
		oobs:      []inventory.OOBInterface{{InterfaceID: "1", MAC: "aa:bb:cc:dd:ee:01"}},
		createErr: errors.New("netbox unavailable"),
	}
	corr := &fakeCorrelator{decisions: []correlate.Decision{
		{MAC: "aa:bb:cc:dd:ee:01", Status: statestore.StatusPending, IsStable: true, PortID: "200"},
	}}
	store := &fakeStore{}
	o := New(inv, fakeCollector{}, corr, store, zap.NewNop())

	summary, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Errors != 1 || summary.Created != 0 {
		t.Errorf("got %+v, want Errors=1 Created=0", summary)
	}
	if len(store.updatedStatus) != 1 || store.updatedStatus[0] != statestore.StatusError {
		t.Errorf("expected UpdateStatus(ERROR) to be called, got %v", store.updatedStatus)
	}
}

func TestRunOncePendingNotStableDoesNotCreateCable(t *testing.T) {
	inv := &fakeInventory{oobs: []inventory.OOBInterface{{InterfaceID: "1", MAC: "aa:bb:cc:dd:ee:01"}}}
	corr := &fakeCorrelator{decisions: []correlate.Decision{
		{MAC: "aa:bb:cc:dd:ee:01", Status: statestore.StatusPending, IsStable: false},
	}}
	store := &fakeStore{}
	o := New(inv, fakeCollector{}, corr, store, zap.NewNop())

	summary, err := o.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Created != 0 || summary.Pending != 1 {
		t.Errorf("got %+v, want Created=0 Pending=1", summary)
	}
}

func TestRunDaemonStopsOnContextCancel(t *testing.T) {
	inv := &fakeInventory{}
	corr := &fakeCorrelator{}
	store := &fakeStore{}
	o := New(inv, fakeCollector{}, corr, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.RunDaemon(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunDaemon did not stop after context cancellation")
	}
}
