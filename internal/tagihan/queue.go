package tagihan

import (
	"context"
	"fmt"
	"time"
)

// QueueKind selects one of the role worklists. Every queue is a deterministic
// predicate over current document columns plus wall-clock time; there is no
// materialized queue table.
type QueueKind string

const (
	// QueueRegistrar lists documents awaiting registration.
	QueueRegistrar QueueKind = "registrar"
	// QueueVerifier lists the shared verification pool, hiding documents
	// actively locked by someone else.
	QueueVerifier QueueKind = "verifier"
	// QueueVerifierHistory unions the pool with the acting verifier's recent
	// completions and still-open revision windows.
	QueueVerifierHistory QueueKind = "verifier_history"
	// QueueCorrectorHistory is the corrector's analogue of QueueVerifierHistory.
	QueueCorrectorHistory QueueKind = "corrector_history"
	// QueueOwner lists a spending unit's own documents regardless of state.
	QueueOwner QueueKind = "owner"
)

// QueueQuery carries the projector inputs. Now is passed explicitly so the
// predicates stay pure functions of state plus time.
type QueueQuery struct {
	Kind      QueueKind
	UserID    int64
	UserName  string
	UnitName  string
	Status    *TagihanStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Now       time.Time
	Limit     int
	Offset    int
}

func (r *repository) ListQueue(ctx context.Context, q QueueQuery) ([]Tagihan, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-LockTimeout)

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch q.Kind {
	case QueueRegistrar:
		conditions = append(conditions, fmt.Sprintf("status = %s", arg(StatusAwaitingRegistration)))
	case QueueVerifier:
		conditions = append(conditions, fmt.Sprintf(
			"status = %s AND verification_number IS NULL AND (locked_by IS NULL OR locked_by = %s OR locked_at < %s)",
			arg(StatusAwaitingVerification), arg(q.UserID), arg(cutoff)))
	case QueueVerifierHistory:
		conditions = append(conditions, fmt.Sprintf(
			`((status = %s AND verification_number IS NULL AND (locked_by IS NULL OR locked_by = %s OR locked_at < %s))
OR (verifier_name = %s AND (verification_time::date = %s::date OR revision_deadline > %s)))`,
			arg(StatusAwaitingVerification), arg(q.UserID), arg(cutoff),
			arg(q.UserName), arg(now), arg(now)))
	case QueueCorrectorHistory:
		conditions = append(conditions, fmt.Sprintf(
			`((status = %s AND verification_number IS NULL AND (locked_by IS NULL OR locked_by = %s OR locked_at < %s))
OR (corrector_id = %s AND correction_time::date = %s::date))`,
			arg(StatusAwaitingVerification), arg(q.UserID), arg(cutoff),
			arg(q.UserID), arg(now)))
	case QueueOwner:
		conditions = append(conditions, fmt.Sprintf("owning_unit_name = %s", arg(q.UnitName)))
	default:
		return nil, fmt.Errorf("unknown queue kind %q", q.Kind)
	}

	if q.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = %s", arg(*q.Status)))
	}
	if q.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("submission_time >= %s", arg(*q.DateFrom)))
	}
	if q.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("submission_time <= %s", arg(*q.DateTo)))
	}

	where := conditions[0]
	for i := 1; i < len(conditions); i++ {
		where += " AND " + conditions[i]
	}

	query := fmt.Sprintf(`SELECT %s FROM tagihan WHERE %s
ORDER BY submission_time ASC, id ASC LIMIT %s OFFSET %s`,
		tagihanColumns, where, arg(q.Limit), arg(q.Offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Tagihan
	for rows.Next() {
		t, err := scanTagihan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *t)
	}
	return docs, rows.Err()
}

// VisibleInVerifierQueue is the in-memory form of the verifier pool predicate,
// shared with tests and the event consumers.
func VisibleInVerifierQueue(t *Tagihan, userID int64, now time.Time) bool {
	if t.Status != StatusAwaitingVerification || t.VerificationNumber != nil {
		return false
	}
	if t.LockedBy == nil {
		return true
	}
	return *t.LockedBy == userID || t.LockExpired(now)
}
