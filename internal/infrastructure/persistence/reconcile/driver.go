package reconcile

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// Snapshot is a detached copy of a batch item plus the outcome it ended up
// with. Detaching matters: the live object may have been mutated and then
// rolled back, so result reporting never aliases reconciliation state.
type Snapshot struct {
	Table  string        `json:"table"`
	Entity models.Entity `json:"entity"`
	Reason string        `json:"reason,omitempty"`
}

// Result aggregates one batch run.
type Result struct {
	Imported []Snapshot `json:"imported"`
	Failed   []Snapshot `json:"failed"`
	Skipped  []Snapshot `json:"skipped"`
}

// AddSkipped records an entity that was excluded before reconciliation,
// typically because its content hash was imported previously.
func (r *Result) AddSkipped(e models.Entity, reason string) {
	r.Skipped = append(r.Skipped, Snapshot{Table: e.TableName(), Entity: Detach(e), Reason: reason})
}

// Driver iterates a batch of entities inside the caller's transaction,
// wrapping each item in its own savepoint so one item's failure never
// affects the others. The caller commits the outer transaction once the
// whole batch has been processed.
type Driver struct {
	reconciler *Reconciler
	log        *zap.Logger
	clock      func() time.Time
}

// NewDriver creates a batch driver.
func NewDriver(reconciler *Reconciler, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		reconciler: reconciler,
		log:        log,
		clock:      time.Now,
	}
}

// Run processes the entities in order. Each item gets a single "now" shared
// by the entity and every row its reconciliation touches, a nested
// transaction (savepoint), and a bucket: imported on success, failed with
// the error attached otherwise.
func (d *Driver) Run(tx *gorm.DB, entities []models.Entity) *Result {
	result := &Result{}
	for i, e := range entities {
		now := d.clock()
		err := tx.Transaction(func(sub *gorm.DB) error {
			return d.reconciler.Reconcile(sub, e, now)
		})
		if err != nil {
			d.log.Warn("batch item failed",
				zap.Int("index", i),
				zap.String("table", e.TableName()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, Snapshot{
				Table:  e.TableName(),
				Entity: Detach(e),
				Reason: err.Error(),
			})
			continue
		}
		result.Imported = append(result.Imported, Snapshot{
			Table:  e.TableName(),
			Entity: Detach(e),
		})
	}
	d.log.Info("batch complete",
		zap.Int("imported", len(result.Imported)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result
}
