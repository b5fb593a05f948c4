package tagihan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sipaten-app/sipaten/internal/audit"
	"github.com/sipaten-app/sipaten/internal/auth"
	"github.com/sipaten-app/sipaten/internal/refdata"
)

// ReferenceData is the read-only lookup port consumed when formatting SPM
// numbers.
type ReferenceData interface {
	Lookup(ctx context.Context, owningUnit string) (refdata.Unit, error)
	Schedule(ctx context.Context, code string) (refdata.Schedule, error)
}

// Notifier delivers user-facing notifications. Implementations are
// fire-and-forget: failures are logged by the implementation and never
// propagated into the transition.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string, documentID uuid.UUID)
}

// AuditPort persists the immutable transition history.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// MetricsPort records engine-level counters.
type MetricsPort interface {
	TransitionObserved(transition string)
	LockConflict()
}

// Service is the document lifecycle engine: it validates and executes status
// transitions, mints numbers, and serializes verification work through the
// document-level lock.
type Service struct {
	repo     Repository
	refdata  ReferenceData
	notifier Notifier
	auditor  AuditPort
	events   *Publisher
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the engine. notifier, auditor, events, and metrics may
// be nil; the corresponding side effects are then skipped.
func NewService(repo Repository, ref ReferenceData, notifier Notifier, auditor AuditPort, events *Publisher, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		refdata:  ref,
		notifier: notifier,
		auditor:  auditor,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns a single document. Owners only see their own unit's documents;
// pipeline roles see everything.
func (s *Service) Get(ctx context.Context, actor auth.Context, id uuid.UUID) (*Tagihan, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleSKPD && t.OwningUnitName != actor.UnitName {
		return nil, ErrForbidden
	}
	return t, nil
}

// Submit creates a new document in AWAITING_REGISTRATION and mints its SPM
// number. A zero sequence number requests the next free value in the
// (unit, schedule, year) window; collisions under concurrency are caught by
// the duplicate guard and the DB constraint, never auto-incremented around.
func (s *Service) Submit(ctx context.Context, actor auth.Context, req CreateTagihanRequest) (*Tagihan, error) {
	if actor.Role != auth.RoleSKPD {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	t := &Tagihan{
		ID:               uuid.New(),
		OwningUnitName:   actor.UnitName,
		SubmittingUserID: actor.UserID,
		Description:      req.Description,
		GrossAmount:      req.GrossAmount,
		DocumentType:     req.DocumentType,
		ClaimType:        req.ClaimType,
		FundingSource:    req.FundingSource,
		Status:           StatusAwaitingRegistration,
		SubmissionTime:   now,
		SequenceNumber:   req.SequenceNumber,
		ScheduleCode:     req.ScheduleCode,
		DocumentDate:     req.DocumentDate,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.numberSPM(ctx, tx, t); err != nil {
			return err
		}
		return tx.Insert(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, t, actor, "tagihan.submit", 0, "")
	return s.repo.Get(ctx, t.ID)
}

// UpdateDraft applies an owner edit. Permitted while awaiting registration or
// under review, and in RETURNED only inside the revision window.
func (s *Service) UpdateDraft(ctx context.Context, actor auth.Context, id uuid.UUID, req UpdateTagihanRequest) (*Tagihan, error) {
	if actor.Role != auth.RoleSKPD {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.SubmittingUserID != actor.UserID {
		return nil, ErrForbidden
	}
	switch existing.Status {
	case StatusAwaitingRegistration, StatusUnderReview:
	case StatusReturned:
		if !existing.EditableBy(actor.UserID, s.now()) {
			return nil, ErrRevisionExpired
		}
	case StatusCompleted:
		return nil, ErrTerminal
	default:
		return nil, ErrStaleState
	}

	t := *existing
	t.Description = req.Description
	t.GrossAmount = req.GrossAmount
	t.DocumentType = req.DocumentType
	t.ClaimType = req.ClaimType
	t.FundingSource = req.FundingSource
	t.ScheduleCode = req.ScheduleCode
	t.SequenceNumber = req.SequenceNumber
	t.DocumentDate = req.DocumentDate

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.numberSPM(ctx, tx, &t); err != nil {
			return err
		}
		return tx.UpdateContent(ctx, &t, existing.Status)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a document that was never registered. Hard delete, owner only.
func (s *Service) Delete(ctx context.Context, actor auth.Context, id uuid.UUID) error {
	if actor.Role != auth.RoleSKPD {
		return ErrForbidden
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id, actor.UserID)
	})
}

// Register books a submitted document into the verification pool, minting the
// monthly registration number.
func (s *Service) Register(ctx context.Context, actor auth.Context, id uuid.UUID) (*Tagihan, error) {
	if actor.Role != auth.RoleRegistrar {
		return nil, ErrForbidden
	}
	now := s.now()
	var owner int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = existing.SubmittingUserID
		last, err := tx.LastNumberWithPrefix(ctx, "registration_number", RegistrationMonthPrefix(now))
		if err != nil {
			return err
		}
		seq, err := NumberSuffix(last)
		if err != nil {
			return err
		}
		number := FormatRegistrationNumber(now, seq+1)
		return tx.Register(ctx, id, number, now, actor.DisplayName)
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, t, actor, "tagihan.register", owner,
		fmt.Sprintf("Tagihan %s senilai %s telah diregistrasi dengan nomor %s.",
			t.SPMNumber, FormatRupiah(t.GrossAmount), deref(t.RegistrationNumber)))
	return t, nil
}

// SendBackForRevision returns a document to its owner before verification and
// clears the registration metadata; the registration number is never reused.
func (s *Service) SendBackForRevision(ctx context.Context, actor auth.Context, id uuid.UUID, note string) (*Tagihan, error) {
	if actor.Role != auth.RoleRegistrar {
		return nil, ErrForbidden
	}
	if note == "" {
		return nil, newValidationError("note", "revision note is required")
	}
	var owner int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = existing.SubmittingUserID
		return tx.SendBackForRevision(ctx, id, note)
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, t, actor, "tagihan.send_back", owner,
		fmt.Sprintf("Tagihan %s dikembalikan untuk diperbaiki: %s", t.SPMNumber, note))
	return t, nil
}

// Resubmit moves an owner-corrected document back into the verification flow.
// From RETURNED it is only valid inside the revision window.
func (s *Service) Resubmit(ctx context.Context, actor auth.Context, id uuid.UUID) (*Tagihan, error) {
	if actor.Role != auth.RoleSKPD {
		return nil, ErrForbidden
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.SubmittingUserID != actor.UserID {
		return nil, ErrForbidden
	}

	switch existing.Status {
	case StatusUnderReview:
	case StatusReturned:
		if !existing.EditableBy(actor.UserID, s.now()) {
			return nil, ErrRevisionExpired
		}
	case StatusCompleted:
		return nil, ErrTerminal
	default:
		return nil, ErrStaleState
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Resubmit(ctx, id, existing.Status)
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, t, actor, "tagihan.resubmit", 0, "")
	return t, nil
}

// AcquireLock claims a document for verification or correction. Zero-row CAS
// means someone else holds a live lock.
func (s *Service) AcquireLock(ctx context.Context, actor auth.Context, id uuid.UUID) error {
	if actor.Role != auth.RoleVerifier && actor.Role != auth.RoleCorrector {
		return ErrForbidden
	}
	err := s.repo.AcquireLock(ctx, id, actor.UserID, s.now())
	if errors.Is(err, ErrAlreadyLocked) && s.metrics != nil {
		s.metrics.LockConflict()
	}
	return err
}

// ReleaseLock is the explicit abandon path, valid regardless of how the edit
// surface was closed. It must never rely on the stale-lock timer.
func (s *Service) ReleaseLock(ctx context.Context, actor auth.Context, id uuid.UUID) error {
	if actor.Role != auth.RoleVerifier && actor.Role != auth.RoleCorrector {
		return ErrForbidden
	}
	return s.repo.ReleaseLock(ctx, id, actor.UserID)
}

// Verify records the checklist outcome. Pass forwards the document; fail
// returns it to the owner, optionally opening a revision window. The held
// lock is released atomically with the status change.
func (s *Service) Verify(ctx context.Context, actor auth.Context, id uuid.UUID, req VerifyRequest) (*Tagihan, error) {
	if actor.Role != auth.RoleVerifier {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	if req.RevisionDeadline != nil && !req.RevisionDeadline.After(now) {
		return nil, newValidationError("revision_deadline", "must be after the verification time")
	}

	var owner int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = existing.SubmittingUserID
		if !existing.LockHeldBy(actor.UserID, now) {
			return ErrAlreadyLocked
		}
		last, err := tx.LastNumberWithPrefix(ctx, "verification_number", VerificationMonthPrefix(now))
		if err != nil {
			return err
		}
		seq, err := NumberSuffix(last)
		if err != nil {
			return err
		}
		return tx.Verify(ctx, id, VerifyRecord{
			ActorID:          actor.UserID,
			VerifierName:     actor.DisplayName,
			Number:           FormatVerificationNumber(now, seq+1),
			At:               now,
			Checklist:        req.Checklist,
			Pass:             req.Pass,
			RevisionNote:     req.RevisionNote,
			EditableByOwner:  !req.Pass,
			RevisionDeadline: req.RevisionDeadline,
		})
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Tagihan %s lolos verifikasi dan diteruskan.", t.SPMNumber)
	action := "tagihan.verify.pass"
	if !req.Pass {
		msg = fmt.Sprintf("Tagihan %s dikembalikan dari verifikasi: %s", t.SPMNumber, req.RevisionNote)
		action = "tagihan.verify.fail"
	}
	s.afterTransition(ctx, t, actor, action, owner, msg)
	return t, nil
}

// Correct returns a document from the verification pool without a checklist,
// minting the monthly correction number from its dedicated integer counter.
func (s *Service) Correct(ctx context.Context, actor auth.Context, id uuid.UUID, req CorrectRequest) (*Tagihan, error) {
	if actor.Role != auth.RoleCorrector {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	var owner int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = existing.SubmittingUserID
		if !existing.LockHeldBy(actor.UserID, now) {
			return ErrAlreadyLocked
		}
		if existing.RegistrationNumber == nil {
			return newValidationError("registration_number", "document has no registration number to derive the correction number from")
		}
		maxSeq, err := tx.MaxCorrectionSequence(ctx, now.Year(), now.Month())
		if err != nil {
			return err
		}
		number, err := FormatCorrectionNumber(*existing.RegistrationNumber, maxSeq+1)
		if err != nil {
			return err
		}
		return tx.Correct(ctx, id, CorrectRecord{
			ActorID:  actor.UserID,
			Number:   number,
			Sequence: maxSeq + 1,
			At:       now,
			Note:     req.Note,
		})
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, t, actor, "tagihan.correct", owner,
		fmt.Sprintf("Tagihan %s dikembalikan dengan koreksi: %s", t.SPMNumber, req.Note))
	return t, nil
}

// RegisterDisbursement records the SP2D and completes the document. COMPLETED
// is terminal: no transition leads out of it.
func (s *Service) RegisterDisbursement(ctx context.Context, actor auth.Context, id uuid.UUID, req DisbursementRequest) (*Tagihan, error) {
	if actor.Role != auth.RoleDisbursement {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var owner int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		owner = existing.SubmittingUserID
		return tx.RegisterDisbursement(ctx, id, DisbursementRecord{
			Number:             req.SP2DNumber,
			Date:               req.SP2DDate,
			Sequence:           req.SP2DSequence,
			BankName:           req.BankName,
			BankSubmissionDate: req.BankSubmissionDate,
		})
	})
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, t, actor, "tagihan.complete", owner,
		fmt.Sprintf("SP2D %s telah diterbitkan untuk tagihan %s.", req.SP2DNumber, t.SPMNumber))
	return t, nil
}

// Queue projects the role worklists.
func (s *Service) Queue(ctx context.Context, actor auth.Context, kind QueueKind, q QueueQuery) ([]Tagihan, error) {
	switch kind {
	case QueueRegistrar:
		if actor.Role != auth.RoleRegistrar {
			return nil, ErrForbidden
		}
	case QueueVerifier:
		// Shared pool: verifiers and correctors draw from the same predicate.
		if actor.Role != auth.RoleVerifier && actor.Role != auth.RoleCorrector {
			return nil, ErrForbidden
		}
	case QueueVerifierHistory:
		if actor.Role != auth.RoleVerifier {
			return nil, ErrForbidden
		}
	case QueueCorrectorHistory:
		if actor.Role != auth.RoleCorrector {
			return nil, ErrForbidden
		}
	case QueueOwner:
		if actor.Role != auth.RoleSKPD {
			return nil, ErrForbidden
		}
	default:
		return nil, newValidationError("kind", "unknown queue")
	}
	q.Kind = kind
	q.UserID = actor.UserID
	q.UserName = actor.DisplayName
	q.UnitName = actor.UnitName
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	return s.repo.ListQueue(ctx, q)
}

// NextSPMSequence suggests the next free sequence for the scope window. The
// suggestion is advisory; the duplicate guard still decides at write time.
func (s *Service) NextSPMSequence(ctx context.Context, actor auth.Context, schedule string, year int) (int, error) {
	if actor.Role != auth.RoleSKPD {
		return 0, ErrForbidden
	}
	var next int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		max, err := tx.MaxSPMSequence(ctx, actor.UnitName, schedule, year)
		if err != nil {
			return err
		}
		next = max + 1
		return nil
	})
	return next, err
}

// numberSPM resolves the reference codes, runs the duplicate guard, and
// formats the SPM number onto t. Caller supplies the sequence; zero asks for
// the next free value.
func (s *Service) numberSPM(ctx context.Context, tx TxRepository, t *Tagihan) error {
	year := t.DocumentDate.Year()
	if t.SequenceNumber == 0 {
		max, err := tx.MaxSPMSequence(ctx, t.OwningUnitName, t.ScheduleCode, year)
		if err != nil {
			return err
		}
		t.SequenceNumber = max + 1
	}

	taken, err := tx.ExistsSequence(ctx, t.SequenceNumber, t.OwningUnitName, t.ScheduleCode, year, t.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateSequence
	}

	unit, err := s.refdata.Lookup(ctx, t.OwningUnitName)
	if err != nil {
		if errors.Is(err, refdata.ErrNotFound) {
			return ErrMissingReferenceData
		}
		return err
	}
	schedule, err := s.refdata.Schedule(ctx, t.ScheduleCode)
	if err != nil {
		if errors.Is(err, refdata.ErrNotFound) {
			return ErrMissingReferenceData
		}
		return err
	}

	t.SPMNumber = FormatSPMNumber(t.DocumentType, schedule.Code, unit.UnitCode, unit.RegionCode, t.SequenceNumber, t.DocumentDate)
	return nil
}

// afterTransition runs the best-effort side effects of a successful
// transition: audit record, domain event, owner notification. None of them
// can roll the transition back.
func (s *Service) afterTransition(ctx context.Context, t *Tagihan, actor auth.Context, action string, notifyUser int64, message string) {
	if s.metrics != nil {
		s.metrics.TransitionObserved(action)
	}
	if s.auditor != nil {
		if err := s.auditor.Record(ctx, audit.Entry{
			ActorID:  actor.UserID,
			Action:   action,
			Entity:   "tagihan",
			EntityID: t.ID.String(),
			Meta: map[string]any{
				"status":     string(t.Status),
				"spm_number": t.SPMNumber,
			},
		}); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.events != nil {
		s.events.Publish(DomainEvent{
			DocumentID: t.ID,
			NewStatus:  t.Status,
			ActorID:    actor.UserID,
			ActorName:  actor.DisplayName,
			At:         s.now(),
		})
	}
	if s.notifier != nil && notifyUser != 0 && notifyUser != actor.UserID && message != "" {
		s.notifier.Notify(ctx, notifyUser, message, t.ID)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
