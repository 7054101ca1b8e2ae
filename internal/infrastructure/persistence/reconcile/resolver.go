package reconcile

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// Resolver classifies an incoming entity as update or insert and assigns or
// reuses its identifier as a side effect. It issues at most one read query
// per call and performs no writes.
type Resolver struct {
	rules *RuleSet
	log   *zap.Logger
}

// NewResolver creates a resolver over the given rule set.
func NewResolver(rules *RuleSet, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{rules: rules, log: log}
}

// Resolve decides insert-vs-update for the entity within tx.
//
// An entity that already carries an identifier must exist in storage;
// otherwise the caller supplied a dangling reference and the entity fails
// rather than being silently inserted. Without an identifier, the table's
// match rule (if any) is evaluated as an AND of column equalities: exactly
// one stored match adopts that row's identifier (update), zero matches get a
// fresh identifier (insert). More than one match is ambiguous and also takes
// the insert path with a fresh identifier, never a silent update.
func (r *Resolver) Resolve(tx *gorm.DB, e models.Entity) (bool, error) {
	table := e.TableName()
	if !SupportedTable(table) {
		return false, NewUnsupportedTable(table)
	}

	if id := e.EntityID(); id != uuid.Nil {
		var count int64
		if err := tx.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, NewPersistenceError(table, id, err)
		}
		if count == 0 {
			return false, NewDanglingIdentifier(table, id)
		}
		return true, nil
	}

	rule, ok := r.rules.ForTable(table)
	if !ok {
		e.SetEntityID(uuid.New())
		return false, nil
	}

	values, err := columnValues(e)
	if err != nil {
		return false, err
	}

	query := tx.Table(table)
	for _, col := range rule.Columns {
		v, ok := values[col]
		if !ok {
			return false, NewInvalidEntity(table, fmt.Sprintf("match rule references unknown column %q", col))
		}
		query = query.Where(fmt.Sprintf("%q = ?", col), v)
	}

	var ids []uuid.UUID
	if err := query.Limit(2).Pluck("id", &ids).Error; err != nil {
		return false, NewPersistenceError(table, uuid.Nil, err)
	}

	switch len(ids) {
	case 1:
		e.SetEntityID(ids[0])
		return true, nil
	case 0:
		e.SetEntityID(uuid.New())
		return false, nil
	default:
		// Ambiguous matches are never updated silently.
		r.log.Warn("match rule is ambiguous, treating entity as new",
			zap.String("code", CodeAmbiguousMatch),
			zap.String("table", table),
			zap.Strings("columns", rule.Columns),
		)
		e.SetEntityID(uuid.New())
		return false, nil
	}
}
