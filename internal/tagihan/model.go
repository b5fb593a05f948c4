package tagihan

import (
	"time"

	"github.com/google/uuid"
)

// TagihanStatus enumerates the lifecycle states of a billing document.
type TagihanStatus string

const (
	// StatusAwaitingRegistration: submitted by the SKPD, not yet registered.
	StatusAwaitingRegistration TagihanStatus = "AWAITING_REGISTRATION"
	// StatusUnderReview: sent back by the registrar before verification.
	StatusUnderReview TagihanStatus = "UNDER_REVIEW"
	// StatusAwaitingVerification: registered, sitting in the shared verifier pool.
	StatusAwaitingVerification TagihanStatus = "AWAITING_VERIFICATION"
	// StatusForwarded: verification passed, eligible for SP2D registration.
	StatusForwarded TagihanStatus = "FORWARDED"
	// StatusReturned: verification failed or corrected, back with the owner.
	StatusReturned TagihanStatus = "RETURNED"
	// StatusCompleted: SP2D registered. Terminal.
	StatusCompleted TagihanStatus = "COMPLETED"
)

// LockTimeout is the stale-lock window for abandoned verification sessions.
// It is evaluated lazily against locked_at at acquisition time; there is no
// background sweeper.
const LockTimeout = 30 * time.Minute

// ChecklistItem is one entry of the verifier's ordered checklist.
type ChecklistItem struct {
	Criterion string `json:"criterion"`
	Satisfied bool   `json:"satisfied"`
	Note      string `json:"note,omitempty"`
}

// Tagihan is the central billing document entity.
type Tagihan struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	OwningUnitName   string        `json:"owning_unit_name" db:"owning_unit_name"`
	SubmittingUserID int64         `json:"submitting_user_id" db:"submitting_user_id"`
	Description      string        `json:"description" db:"description"`
	GrossAmount      float64       `json:"gross_amount" db:"gross_amount"`
	DocumentType     string        `json:"document_type" db:"document_type"`
	ClaimType        string        `json:"claim_type" db:"claim_type"`
	FundingSource    string        `json:"funding_source" db:"funding_source"`
	Status           TagihanStatus `json:"status" db:"status"`
	SubmissionTime   time.Time     `json:"submission_time" db:"submission_time"`

	SPMNumber      string    `json:"spm_number" db:"spm_number"`
	SequenceNumber int       `json:"sequence_number" db:"sequence_number"`
	ScheduleCode   string    `json:"schedule_code" db:"schedule_code"`
	DocumentDate   time.Time `json:"document_date" db:"document_date"`

	RegistrationNumber *string    `json:"registration_number,omitempty" db:"registration_number"`
	RegistrationTime   *time.Time `json:"registration_time,omitempty" db:"registration_time"`
	RegistrarName      *string    `json:"registrar_name,omitempty" db:"registrar_name"`

	VerificationChecklist []ChecklistItem `json:"verification_checklist,omitempty" db:"verification_checklist"`
	VerificationNumber    *string         `json:"verification_number,omitempty" db:"verification_number"`
	VerifierName          *string         `json:"verifier_name,omitempty" db:"verifier_name"`
	VerificationTime      *time.Time      `json:"verification_time,omitempty" db:"verification_time"`

	CorrectionNumber *string    `json:"correction_number,omitempty" db:"correction_number"`
	// CorrectionSequence holds the raw monthly counter; the formatted
	// CorrectionNumber is derived output only and never parsed back.
	CorrectionSequence *int       `json:"correction_sequence,omitempty" db:"correction_sequence"`
	CorrectorID        *int64     `json:"corrector_id,omitempty" db:"corrector_id"`
	CorrectionTime     *time.Time `json:"correction_time,omitempty" db:"correction_time"`
	CorrectionNote     *string    `json:"correction_note,omitempty" db:"correction_note"`

	LockedBy *int64     `json:"locked_by,omitempty" db:"locked_by"`
	LockedAt *time.Time `json:"locked_at,omitempty" db:"locked_at"`

	RevisionNote     *string    `json:"revision_note,omitempty" db:"revision_note"`
	EditableByOwner  bool       `json:"editable_by_owner" db:"editable_by_owner"`
	RevisionDeadline *time.Time `json:"revision_deadline,omitempty" db:"revision_deadline"`

	SP2DNumber         *string    `json:"sp2d_number,omitempty" db:"sp2d_number"`
	SP2DDate           *time.Time `json:"sp2d_date,omitempty" db:"sp2d_date"`
	SP2DSequence       *int       `json:"sp2d_sequence,omitempty" db:"sp2d_sequence"`
	BankName           *string    `json:"bank_name,omitempty" db:"bank_name"`
	BankSubmissionDate *time.Time `json:"bank_submission_date,omitempty" db:"bank_submission_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LockHeldBy reports whether userID holds a non-expired lock on the document.
func (t *Tagihan) LockHeldBy(userID int64, now time.Time) bool {
	if t.LockedBy == nil || t.LockedAt == nil {
		return false
	}
	return *t.LockedBy == userID && now.Sub(*t.LockedAt) <= LockTimeout
}

// LockExpired reports whether an existing lock has passed the stale window.
func (t *Tagihan) LockExpired(now time.Time) bool {
	return t.LockedAt != nil && now.Sub(*t.LockedAt) > LockTimeout
}

// EditableBy reports whether the owner may still edit the document: always in
// the pre-registration states, and in RETURNED only while the revision window
// is open.
func (t *Tagihan) EditableBy(userID int64, now time.Time) bool {
	if t.SubmittingUserID != userID {
		return false
	}
	switch t.Status {
	case StatusAwaitingRegistration, StatusUnderReview:
		return true
	case StatusReturned:
		if !t.EditableByOwner {
			return false
		}
		return t.RevisionDeadline == nil || now.Before(*t.RevisionDeadline)
	default:
		return false
	}
}

// DomainEvent is emitted after every successful status transition. Delivery is
// best effort; a failed publish never rolls the transition back.
type DomainEvent struct {
	ID         uuid.UUID     `json:"id"`
	DocumentID uuid.UUID     `json:"document_id"`
	NewStatus  TagihanStatus `json:"new_status"`
	ActorID    int64         `json:"actor_id"`
	ActorName  string        `json:"actor_name"`
	At         time.Time     `json:"at"`
}
