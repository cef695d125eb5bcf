package service

import (
	"sync"
	"time"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

// Console is one operator's live view over one record collection. All of its
// mutable state — the cached snapshot, view parameters, selection, pending
// undo, and in-flight markers — is guarded by mu and mutated only through the
// engine services in this package.
type Console struct {
	mu sync.Mutex

	kind       models.Kind
	desc       models.KindDescriptor
	operatorID string

	params  models.ViewParameters
	records []models.Record

	selection     map[string]struct{}
	pendingAction models.ActionKind
	pendingUndo   *models.PendingUndo

	// inflight holds record ids with an individual transition pending;
	// bulkSelection is non-nil exactly while a bulk action is in flight.
	inflight      map[string]struct{}
	bulkSelection map[string]struct{}

	// generation invalidates responses that outlive the console state they
	// were requested for (unmount, remount, reload).
	generation  uint64
	lastTouched time.Time
}

// Kind returns the entity kind the console manages.
func (c *Console) Kind() models.Kind { return c.kind }

// Descriptor returns the engine descriptor of the console's kind.
func (c *Console) Descriptor() models.KindDescriptor { return c.desc }

// Params returns the current view parameters.
func (c *Console) Params() models.ViewParameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SelectionSize returns the number of selected record ids.
func (c *Console) SelectionSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selection)
}

// SnapshotRecords returns a copy of the cached working set.
func (c *Console) SnapshotRecords() []models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Record, len(c.records))
	copy(out, c.records)
	return out
}

// touch must be called with mu held.
func (c *Console) touch(now time.Time) {
	c.lastTouched = now
}

// findRecord returns a pointer into the cached snapshot. Caller holds mu.
func (c *Console) findRecord(id string) *models.Record {
	for i := range c.records {
		if c.records[i].ID == id {
			return &c.records[i]
		}
	}
	return nil
}

// selectionIDs snapshots the current selection. Caller holds mu.
func (c *Console) selectionIDs() []string {
	ids := make([]string, 0, len(c.selection))
	for id := range c.selection {
		ids = append(ids, id)
	}
	return ids
}

// pruneSelection drops selected ids whose backing record no longer exists in
// the freshly loaded snapshot. Filters never prune — cross-page selections
// survive them — only deletion does, and a full unfiltered reload is the one
// place deletions become observable. Caller holds mu.
func (c *Console) pruneSelection() {
	if len(c.selection) == 0 {
		return
	}
	present := make(map[string]struct{}, len(c.records))
	for i := range c.records {
		present[c.records[i].ID] = struct{}{}
	}
	for id := range c.selection {
		if _, ok := present[id]; !ok {
			delete(c.selection, id)
		}
	}
}
