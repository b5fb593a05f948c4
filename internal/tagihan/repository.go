package tagihan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sipaten-app/sipaten/internal/platform/db"
)

// ConstraintSPMScope is the unique index guarding the
// (sequence, unit, schedule, year) tuple. A violation is the backstop for
// generator races the duplicate guard pre-check cannot see.
const ConstraintSPMScope = "uq_tagihan_spm_scope"

// Repository encapsulates DB operations for tagihan documents. Transition
// methods are single conditional updates: they report ErrStaleState when the
// document exists but the precondition row match failed.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Tagihan, error)
	ListQueue(ctx context.Context, q QueueQuery) ([]Tagihan, error)
	AcquireLock(ctx context.Context, id uuid.UUID, userID int64, now time.Time) error
	ReleaseLock(ctx context.Context, id uuid.UUID, userID int64) error
}

// TxRepository exposes the mutations and number scans that run inside one
// transaction per engine call.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Tagihan, error)
	Insert(ctx context.Context, t *Tagihan) error
	UpdateContent(ctx context.Context, t *Tagihan, expected TagihanStatus) error
	Delete(ctx context.Context, id uuid.UUID, ownerID int64) error
	ExistsSequence(ctx context.Context, seq int, unit, schedule string, year int, exclude uuid.UUID) (bool, error)
	MaxSPMSequence(ctx context.Context, unit, schedule string, year int) (int, error)
	LastNumberWithPrefix(ctx context.Context, column, prefix string) (string, error)
	MaxCorrectionSequence(ctx context.Context, year int, month time.Month) (int, error)
	Register(ctx context.Context, id uuid.UUID, number string, at time.Time, registrarName string) error
	SendBackForRevision(ctx context.Context, id uuid.UUID, note string) error
	Resubmit(ctx context.Context, id uuid.UUID, from TagihanStatus) error
	Verify(ctx context.Context, id uuid.UUID, p VerifyRecord) error
	Correct(ctx context.Context, id uuid.UUID, p CorrectRecord) error
	RegisterDisbursement(ctx context.Context, id uuid.UUID, p DisbursementRecord) error
}

// VerifyRecord carries the columns written by a verify transition.
type VerifyRecord struct {
	ActorID          int64
	VerifierName     string
	Number           string
	At               time.Time
	Checklist        []ChecklistItem
	Pass             bool
	RevisionNote     string
	EditableByOwner  bool
	RevisionDeadline *time.Time
}

// CorrectRecord carries the columns written by a correct transition.
type CorrectRecord struct {
	ActorID  int64
	Number   string
	Sequence int
	At       time.Time
	Note     string
}

// DisbursementRecord carries the SP2D columns written on completion.
type DisbursementRecord struct {
	Number             string
	Date               time.Time
	Sequence           int
	BankName           string
	BankSubmissionDate *time.Time
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const tagihanColumns = `id, owning_unit_name, submitting_user_id, description, gross_amount,
document_type, claim_type, funding_source, status, submission_time,
spm_number, sequence_number, schedule_code, document_date,
registration_number, registration_time, registrar_name,
verification_checklist, verification_number, verifier_name, verification_time,
correction_number, correction_sequence, corrector_id, correction_time, correction_note,
locked_by, locked_at, revision_note, editable_by_owner, revision_deadline,
sp2d_number, sp2d_date, sp2d_sequence, bank_name, bank_submission_date,
created_at, updated_at`

func scanTagihan(row pgx.Row) (*Tagihan, error) {
	var t Tagihan
	var checklist []byte
	err := row.Scan(
		&t.ID, &t.OwningUnitName, &t.SubmittingUserID, &t.Description, &t.GrossAmount,
		&t.DocumentType, &t.ClaimType, &t.FundingSource, &t.Status, &t.SubmissionTime,
		&t.SPMNumber, &t.SequenceNumber, &t.ScheduleCode, &t.DocumentDate,
		&t.RegistrationNumber, &t.RegistrationTime, &t.RegistrarName,
		&checklist, &t.VerificationNumber, &t.VerifierName, &t.VerificationTime,
		&t.CorrectionNumber, &t.CorrectionSequence, &t.CorrectorID, &t.CorrectionTime, &t.CorrectionNote,
		&t.LockedBy, &t.LockedAt, &t.RevisionNote, &t.EditableByOwner, &t.RevisionDeadline,
		&t.SP2DNumber, &t.SP2DDate, &t.SP2DSequence, &t.BankName, &t.BankSubmissionDate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &t.VerificationChecklist); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Tagihan, error) {
	return scanTagihan(r.db.QueryRow(ctx, `SELECT `+tagihanColumns+` FROM tagihan WHERE id = $1`, id))
}

func (r *repository) Insert(ctx context.Context, t *Tagihan) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tagihan (
id, owning_unit_name, submitting_user_id, description, gross_amount,
document_type, claim_type, funding_source, status, submission_time,
spm_number, spm_year, sequence_number, schedule_code, document_date,
editable_by_owner, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())`,
		t.ID, t.OwningUnitName, t.SubmittingUserID, t.Description, t.GrossAmount,
		t.DocumentType, t.ClaimType, t.FundingSource, t.Status, t.SubmissionTime,
		t.SPMNumber, t.DocumentDate.Year(), t.SequenceNumber, t.ScheduleCode, t.DocumentDate,
		t.EditableByOwner)
	return mapConstraint(err)
}

// UpdateContent rewrites the owner-editable fields. The status guard keeps the
// write a no-op when the document moved on between fetch and update.
func (r *repository) UpdateContent(ctx context.Context, t *Tagihan, expected TagihanStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
description=$3, gross_amount=$4, document_type=$5, claim_type=$6, funding_source=$7,
spm_number=$8, spm_year=$9, sequence_number=$10, schedule_code=$11, document_date=$12,
updated_at=NOW()
WHERE id=$1 AND status=$2`,
		t.ID, expected, t.Description, t.GrossAmount, t.DocumentType, t.ClaimType, t.FundingSource,
		t.SPMNumber, t.DocumentDate.Year(), t.SequenceNumber, t.ScheduleCode, t.DocumentDate)
	if err != nil {
		return mapConstraint(err)
	}
	return r.checkAffected(ctx, tag, t.ID)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, ownerID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM tagihan WHERE id=$1 AND submitting_user_id=$2 AND status=$3`,
		id, ownerID, StatusAwaitingRegistration)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

func (r *repository) ExistsSequence(ctx context.Context, seq int, unit, schedule string, year int, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM tagihan
WHERE sequence_number=$1 AND owning_unit_name=$2 AND schedule_code=$3 AND spm_year=$4 AND id <> $5)`,
		seq, unit, schedule, year, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) MaxSPMSequence(ctx context.Context, unit, schedule string, year int) (int, error) {
	var max int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM tagihan
WHERE owning_unit_name=$1 AND schedule_code=$2 AND spm_year=$3`, unit, schedule, year).Scan(&max)
	return max, err
}

// LastNumberWithPrefix returns the highest issued number in column starting
// with prefix, or "" when the window is empty. Zero-padded suffixes make the
// lexicographic max the numeric max.
func (r *repository) LastNumberWithPrefix(ctx context.Context, column, prefix string) (string, error) {
	var query string
	switch column {
	case "registration_number":
		query = `SELECT COALESCE(MAX(registration_number), '') FROM tagihan WHERE registration_number LIKE $1 || '%'`
	case "verification_number":
		query = `SELECT COALESCE(MAX(verification_number), '') FROM tagihan WHERE verification_number LIKE $1 || '%'`
	default:
		return "", errors.New("unsupported number column " + column)
	}
	var last string
	err := r.db.QueryRow(ctx, query, prefix).Scan(&last)
	return last, err
}

func (r *repository) MaxCorrectionSequence(ctx context.Context, year int, month time.Month) (int, error) {
	var max int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(correction_sequence), 0) FROM tagihan
WHERE EXTRACT(YEAR FROM correction_time) = $1 AND EXTRACT(MONTH FROM correction_time) = $2`,
		year, int(month)).Scan(&max)
	return max, err
}

func (r *repository) Register(ctx context.Context, id uuid.UUID, number string, at time.Time, registrarName string) error {
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
status=$3, registration_number=$4, registration_time=$5, registrar_name=$6, updated_at=NOW()
WHERE id=$1 AND status=$2`,
		id, StatusAwaitingRegistration, StatusAwaitingVerification, number, at, registrarName)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

// SendBackForRevision clears the registration metadata together with the
// status change.
func (r *repository) SendBackForRevision(ctx context.Context, id uuid.UUID, note string) error {
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
status=$3, revision_note=$4,
registration_number=NULL, registration_time=NULL, registrar_name=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2`,
		id, StatusAwaitingRegistration, StatusUnderReview, note)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

func (r *repository) Resubmit(ctx context.Context, id uuid.UUID, from TagihanStatus) error {
	var tag pgconn.CommandTag
	var err error
	if from == StatusReturned {
		// The deadline is optional. When the verifier left it unset the
		// window stays open until the owner resubmits.
		tag, err = r.db.Exec(ctx, `UPDATE tagihan SET
status=$3, editable_by_owner=FALSE, revision_deadline=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2 AND editable_by_owner AND (revision_deadline IS NULL OR revision_deadline > NOW())`,
			id, from, StatusAwaitingVerification)
	} else {
		tag, err = r.db.Exec(ctx, `UPDATE tagihan SET status=$3, revision_note=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2`,
			id, from, StatusAwaitingVerification)
	}
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

// Verify writes the verification metadata and releases the actor's lock in the
// same statement. The locked_by guard makes a stolen lock surface as
// ErrStaleState instead of a silent overwrite.
func (r *repository) Verify(ctx context.Context, id uuid.UUID, p VerifyRecord) error {
	checklist, err := json.Marshal(p.Checklist)
	if err != nil {
		return err
	}
	next := StatusForwarded
	if !p.Pass {
		next = StatusReturned
	}
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
status=$4, verification_checklist=$5, verification_number=$6, verifier_name=$7, verification_time=$8,
revision_note=NULLIF($9, ''), editable_by_owner=$10, revision_deadline=$11,
locked_by=NULL, locked_at=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2 AND locked_by=$3`,
		id, StatusAwaitingVerification, p.ActorID,
		next, checklist, p.Number, p.VerifierName, p.At,
		p.RevisionNote, p.EditableByOwner, p.RevisionDeadline)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

func (r *repository) Correct(ctx context.Context, id uuid.UUID, p CorrectRecord) error {
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
status=$4, correction_number=$5, correction_sequence=$6, corrector_id=$3, correction_time=$7, correction_note=$8,
locked_by=NULL, locked_at=NULL, updated_at=NOW()
WHERE id=$1 AND status=$2 AND locked_by=$3`,
		id, StatusAwaitingVerification, p.ActorID,
		StatusReturned, p.Number, p.Sequence, p.At, p.Note)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

func (r *repository) RegisterDisbursement(ctx context.Context, id uuid.UUID, p DisbursementRecord) error {
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET
status=$3, sp2d_number=$4, sp2d_date=$5, sp2d_sequence=$6, bank_name=$7, bank_submission_date=$8, updated_at=NOW()
WHERE id=$1 AND status=$2`,
		id, StatusForwarded, StatusCompleted,
		p.Number, p.Date, p.Sequence, p.BankName, p.BankSubmissionDate)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, tag, id)
}

// AcquireLock is the compare-and-swap acquisition: it succeeds against an
// unlocked document, a re-entrant holder, or a lock past the stale window.
func (r *repository) AcquireLock(ctx context.Context, id uuid.UUID, userID int64, now time.Time) error {
	cutoff := now.Add(-LockTimeout)
	tag, err := r.db.Exec(ctx, `UPDATE tagihan SET locked_by=$3, locked_at=$4, updated_at=NOW()
WHERE id=$1 AND status=$2 AND (locked_by IS NULL OR locked_by=$3 OR locked_at < $5)`,
		id, StatusAwaitingVerification, userID, now, cutoff)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyLocked
	}
	return nil
}

// ReleaseLock is the explicit cancellation path; only the holder may clear the
// lock fields.
func (r *repository) ReleaseLock(ctx context.Context, id uuid.UUID, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE tagihan SET locked_by=NULL, locked_at=NULL, updated_at=NOW()
WHERE id=$1 AND locked_by=$2`, id, userID)
	return err
}

// checkAffected distinguishes a vanished document from a failed precondition
// after a zero-row conditional update.
func (r *repository) checkAffected(ctx context.Context, tag pgconn.CommandTag, id uuid.UUID) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrStaleState
}

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == ConstraintSPMScope {
		return ErrDuplicateSequence
	}
	return err
}
