package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
)

// ContentHash returns a deterministic, order-independent hash over the
// entity's user-supplied content: the manifested scalar columns minus
// foreign keys. Identifiers and timestamps never participate, so the same
// logical record hashes identically across imports regardless of when or
// under which identifier it was stored.
func ContentHash(e models.Entity) (string, error) {
	values, err := columnValues(e)
	if err != nil {
		return "", err
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		if foreignKeyColumns[col] {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	b.WriteString(e.TableName())
	for _, col := range cols {
		b.WriteByte('\n')
		b.WriteString(col)
		b.WriteByte('=')
		b.WriteString(canonicalValue(values[col]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalValue renders a manifest value in a stable textual form. Nil
// pointers render empty so an absent optional field hashes the same as an
// omitted one.
func canonicalValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *float64:
		if t == nil {
			return ""
		}
		return fmt.Sprintf("%g", *t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
