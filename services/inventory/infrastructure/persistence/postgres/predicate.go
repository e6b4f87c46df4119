package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
)

// effectiveStatusExpr applies the lazy-expiry rule in SQL: an Available or
// Quarantined row past its expiry date counts as expired, whether or not a
// read has transitioned it yet. The %d placeholder is the arg index of today.
const effectiveStatusExpr = `CASE WHEN u.status IN ('available','quarantined') AND u.expiry_date < $%d
	THEN 'expired' ELSE u.status END`

// buildPredicate is the single predicate-building path for every filtered
// read (list, export, summary, expiring-soon). It returns a WHERE clause and
// its positional args.
//
// Status semantics: an empty status filter hides deleted units; an explicit
// status matches the unit's effective status as of today, so deleted units
// are only visible when asked for by name.
func buildPredicate(f repositories.Filter, today time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	if f.Status == "" {
		conds = append(conds, `u.status <> 'deleted'`)
	} else {
		n := arg(models.DateOnly(today))
		conds = append(conds, fmt.Sprintf("("+effectiveStatusExpr+") = $%d", n, arg(string(f.Status))))
	}
	if f.BloodType != "" {
		conds = append(conds, fmt.Sprintf("u.blood_type = $%d", arg(string(f.BloodType))))
	}
	if !f.CollectedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("u.collection_date >= $%d", arg(models.DateOnly(f.CollectedFrom))))
	}
	if !f.CollectedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("u.collection_date <= $%d", arg(models.DateOnly(f.CollectedTo))))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		n := arg("%" + escapeLike(s) + "%")
		conds = append(conds, fmt.Sprintf(
			"(u.unit_id ILIKE $%d OR d.full_name ILIKE $%d OR d.reference_code ILIKE $%d)", n, n, n))
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE metacharacters so user search terms match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
