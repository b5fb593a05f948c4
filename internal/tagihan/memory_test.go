package tagihan

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sipaten-app/sipaten/internal/refdata"
)

// memoryRepo mirrors the conditional-update semantics of the pgx repository:
// transition methods succeed only when the precondition row match would have
// succeeded, and report ErrStaleState or ErrNotFound the same way.
type memoryRepo struct {
	docs map[uuid.UUID]*Tagihan
	now  func() time.Time
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(now func() time.Time) *memoryRepo {
	if now == nil {
		now = time.Now
	}
	return &memoryRepo{docs: make(map[uuid.UUID]*Tagihan), now: now}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Tagihan, error) {
	t, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memoryRepo) ListQueue(_ context.Context, q QueueQuery) ([]Tagihan, error) {
	now := q.Now
	if now.IsZero() {
		now = r.now()
	}
	var docs []Tagihan
	for _, t := range r.docs {
		var in bool
		switch q.Kind {
		case QueueRegistrar:
			in = t.Status == StatusAwaitingRegistration
		case QueueVerifier:
			in = VisibleInVerifierQueue(t, q.UserID, now)
		case QueueVerifierHistory:
			in = VisibleInVerifierQueue(t, q.UserID, now) ||
				(t.VerifierName != nil && *t.VerifierName == q.UserName &&
					((t.VerificationTime != nil && sameDate(*t.VerificationTime, now)) ||
						(t.RevisionDeadline != nil && t.RevisionDeadline.After(now))))
		case QueueCorrectorHistory:
			in = VisibleInVerifierQueue(t, q.UserID, now) ||
				(t.CorrectorID != nil && *t.CorrectorID == q.UserID &&
					t.CorrectionTime != nil && sameDate(*t.CorrectionTime, now))
		case QueueOwner:
			in = t.OwningUnitName == q.UnitName
		}
		if in && (q.Status == nil || t.Status == *q.Status) {
			docs = append(docs, *t)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].SubmissionTime.Before(docs[j].SubmissionTime)
	})
	return docs, nil
}

func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func (r *memoryRepo) AcquireLock(_ context.Context, id uuid.UUID, userID int64, now time.Time) error {
	t, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusAwaitingVerification {
		return ErrAlreadyLocked
	}
	if t.LockedBy != nil && *t.LockedBy != userID && !t.LockExpired(now) {
		return ErrAlreadyLocked
	}
	uid, at := userID, now
	t.LockedBy, t.LockedAt = &uid, &at
	return nil
}

func (r *memoryRepo) ReleaseLock(_ context.Context, id uuid.UUID, userID int64) error {
	t, ok := r.docs[id]
	if !ok {
		return nil
	}
	if t.LockedBy != nil && *t.LockedBy == userID {
		t.LockedBy, t.LockedAt = nil, nil
	}
	return nil
}

func (tx *memoryTx) Get(ctx context.Context, id uuid.UUID) (*Tagihan, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *memoryTx) Insert(_ context.Context, t *Tagihan) error {
	cp := *t
	now := tx.repo.now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	tx.repo.docs[t.ID] = &cp
	return nil
}

func (tx *memoryTx) UpdateContent(_ context.Context, t *Tagihan, expected TagihanStatus) error {
	existing, ok := tx.repo.docs[t.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Status != expected {
		return ErrStaleState
	}
	existing.Description = t.Description
	existing.GrossAmount = t.GrossAmount
	existing.DocumentType = t.DocumentType
	existing.ClaimType = t.ClaimType
	existing.FundingSource = t.FundingSource
	existing.SPMNumber = t.SPMNumber
	existing.SequenceNumber = t.SequenceNumber
	existing.ScheduleCode = t.ScheduleCode
	existing.DocumentDate = t.DocumentDate
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, id uuid.UUID, ownerID int64) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.SubmittingUserID != ownerID || t.Status != StatusAwaitingRegistration {
		return ErrStaleState
	}
	delete(tx.repo.docs, id)
	return nil
}

func (tx *memoryTx) ExistsSequence(_ context.Context, seq int, unit, schedule string, year int, exclude uuid.UUID) (bool, error) {
	for id, t := range tx.repo.docs {
		if id == exclude {
			continue
		}
		if t.SequenceNumber == seq && t.OwningUnitName == unit && t.ScheduleCode == schedule && t.DocumentDate.Year() == year {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) MaxSPMSequence(_ context.Context, unit, schedule string, year int) (int, error) {
	max := 0
	for _, t := range tx.repo.docs {
		if t.OwningUnitName == unit && t.ScheduleCode == schedule && t.DocumentDate.Year() == year && t.SequenceNumber > max {
			max = t.SequenceNumber
		}
	}
	return max, nil
}

func (tx *memoryTx) LastNumberWithPrefix(_ context.Context, column, prefix string) (string, error) {
	last := ""
	for _, t := range tx.repo.docs {
		var n *string
		switch column {
		case "registration_number":
			n = t.RegistrationNumber
		case "verification_number":
			n = t.VerificationNumber
		}
		if n != nil && strings.HasPrefix(*n, prefix) && *n > last {
			last = *n
		}
	}
	return last, nil
}

func (tx *memoryTx) MaxCorrectionSequence(_ context.Context, year int, month time.Month) (int, error) {
	max := 0
	for _, t := range tx.repo.docs {
		if t.CorrectionSequence == nil || t.CorrectionTime == nil {
			continue
		}
		if t.CorrectionTime.Year() == year && t.CorrectionTime.Month() == month && *t.CorrectionSequence > max {
			max = *t.CorrectionSequence
		}
	}
	return max, nil
}

func (tx *memoryTx) Register(_ context.Context, id uuid.UUID, number string, at time.Time, registrarName string) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusAwaitingRegistration {
		return ErrStaleState
	}
	t.Status = StatusAwaitingVerification
	t.RegistrationNumber = &number
	t.RegistrationTime = &at
	t.RegistrarName = &registrarName
	return nil
}

func (tx *memoryTx) SendBackForRevision(_ context.Context, id uuid.UUID, note string) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusAwaitingRegistration {
		return ErrStaleState
	}
	t.Status = StatusUnderReview
	t.RevisionNote = &note
	t.RegistrationNumber, t.RegistrationTime, t.RegistrarName = nil, nil, nil
	return nil
}

func (tx *memoryTx) Resubmit(_ context.Context, id uuid.UUID, from TagihanStatus) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != from {
		return ErrStaleState
	}
	if from == StatusReturned {
		if !t.EditableByOwner || (t.RevisionDeadline != nil && !t.RevisionDeadline.After(tx.repo.now())) {
			return ErrStaleState
		}
		t.Status = StatusAwaitingVerification
		t.EditableByOwner = false
		t.RevisionDeadline = nil
		return nil
	}
	t.Status = StatusAwaitingVerification
	t.RevisionNote = nil
	return nil
}

func (tx *memoryTx) Verify(_ context.Context, id uuid.UUID, p VerifyRecord) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusAwaitingVerification || t.LockedBy == nil || *t.LockedBy != p.ActorID {
		return ErrStaleState
	}
	if p.Pass {
		t.Status = StatusForwarded
	} else {
		t.Status = StatusReturned
	}
	t.VerificationChecklist = p.Checklist
	t.VerificationNumber = &p.Number
	t.VerifierName = &p.VerifierName
	at := p.At
	t.VerificationTime = &at
	if p.RevisionNote != "" {
		note := p.RevisionNote
		t.RevisionNote = &note
	}
	t.EditableByOwner = p.EditableByOwner
	t.RevisionDeadline = p.RevisionDeadline
	t.LockedBy, t.LockedAt = nil, nil
	return nil
}

func (tx *memoryTx) Correct(_ context.Context, id uuid.UUID, p CorrectRecord) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusAwaitingVerification || t.LockedBy == nil || *t.LockedBy != p.ActorID {
		return ErrStaleState
	}
	t.Status = StatusReturned
	t.CorrectionNumber = &p.Number
	seq := p.Sequence
	t.CorrectionSequence = &seq
	actor := p.ActorID
	t.CorrectorID = &actor
	at := p.At
	t.CorrectionTime = &at
	note := p.Note
	t.CorrectionNote = &note
	t.LockedBy, t.LockedAt = nil, nil
	return nil
}

func (tx *memoryTx) RegisterDisbursement(_ context.Context, id uuid.UUID, p DisbursementRecord) error {
	t, ok := tx.repo.docs[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusForwarded {
		return ErrStaleState
	}
	t.Status = StatusCompleted
	t.SP2DNumber = &p.Number
	date := p.Date
	t.SP2DDate = &date
	seq := p.Sequence
	t.SP2DSequence = &seq
	bank := p.BankName
	t.BankName = &bank
	t.BankSubmissionDate = p.BankSubmissionDate
	return nil
}

// stubRefdata resolves fixed numbering codes; unknown names report
// refdata.ErrNotFound like the pgx repository does.
type stubRefdata struct {
	units     map[string]refdata.Unit
	schedules map[string]refdata.Schedule
}

func newStubRefdata() *stubRefdata {
	return &stubRefdata{
		units: map[string]refdata.Unit{
			"Dinas Pendidikan": {Name: "Dinas Pendidikan", UnitCode: "1.01", RegionCode: "03"},
		},
		schedules: map[string]refdata.Schedule{
			"GU": {Code: "GU", Description: "Ganti Uang", Active: true},
			"LS": {Code: "LS", Description: "Langsung", Active: true},
		},
	}
}

func (s *stubRefdata) Lookup(_ context.Context, owningUnit string) (refdata.Unit, error) {
	u, ok := s.units[owningUnit]
	if !ok {
		return refdata.Unit{}, refdata.ErrNotFound
	}
	return u, nil
}

func (s *stubRefdata) Schedule(_ context.Context, code string) (refdata.Schedule, error) {
	sch, ok := s.schedules[code]
	if !ok {
		return refdata.Schedule{}, refdata.ErrNotFound
	}
	return sch, nil
}

// recordingNotifier captures owner notifications for assertions.
type recordingNotifier struct {
	userIDs  []int64
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, message string, _ uuid.UUID) {
	n.userIDs = append(n.userIDs, userID)
	n.messages = append(n.messages, message)
}
