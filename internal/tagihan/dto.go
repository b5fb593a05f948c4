package tagihan

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateTagihanRequest is the owner's submission payload. SequenceNumber zero
// asks the engine for the next free value in the scope window.
type CreateTagihanRequest struct {
	Description    string    `json:"description" validate:"required"`
	GrossAmount    float64   `json:"gross_amount" validate:"gte=0"`
	DocumentType   string    `json:"document_type" validate:"required"`
	ClaimType      string    `json:"claim_type" validate:"required"`
	FundingSource  string    `json:"funding_source" validate:"required"`
	ScheduleCode   string    `json:"schedule_code" validate:"required"`
	SequenceNumber int       `json:"sequence_number" validate:"gte=0"`
	DocumentDate   time.Time `json:"document_date" validate:"required"`
}

// Validate applies the struct tags and returns a domain ValidationError.
func (r CreateTagihanRequest) Validate() error {
	return wrapValidation(validate.Struct(r))
}

// UpdateTagihanRequest is an owner edit; all content fields are rewritten.
type UpdateTagihanRequest struct {
	Description    string    `json:"description" validate:"required"`
	GrossAmount    float64   `json:"gross_amount" validate:"gte=0"`
	DocumentType   string    `json:"document_type" validate:"required"`
	ClaimType      string    `json:"claim_type" validate:"required"`
	FundingSource  string    `json:"funding_source" validate:"required"`
	ScheduleCode   string    `json:"schedule_code" validate:"required"`
	SequenceNumber int       `json:"sequence_number" validate:"gt=0"`
	DocumentDate   time.Time `json:"document_date" validate:"required"`
}

func (r UpdateTagihanRequest) Validate() error {
	return wrapValidation(validate.Struct(r))
}

// VerifyRequest carries the checklist outcome. RevisionDeadline only applies
// to the fail path and must lie after the verification time.
type VerifyRequest struct {
	Checklist        []ChecklistItem `json:"checklist" validate:"required,min=1,dive"`
	Pass             bool            `json:"pass"`
	RevisionNote     string          `json:"revision_note"`
	RevisionDeadline *time.Time      `json:"revision_deadline,omitempty"`
}

func (r VerifyRequest) Validate() error {
	if err := wrapValidation(validate.Struct(r)); err != nil {
		return err
	}
	if !r.Pass && r.RevisionNote == "" {
		return newValidationError("revision_note", "required when verification fails")
	}
	for _, item := range r.Checklist {
		if item.Criterion == "" {
			return newValidationError("checklist", "criterion must not be empty")
		}
	}
	return nil
}

// CorrectRequest is the corrector's return payload.
type CorrectRequest struct {
	Note string `json:"note" validate:"required"`
}

func (r CorrectRequest) Validate() error {
	return wrapValidation(validate.Struct(r))
}

// DisbursementRequest carries the SP2D fields written on completion.
type DisbursementRequest struct {
	SP2DNumber         string     `json:"sp2d_number" validate:"required"`
	SP2DDate           time.Time  `json:"sp2d_date" validate:"required"`
	SP2DSequence       int        `json:"sp2d_sequence" validate:"gt=0"`
	BankName           string     `json:"bank_name" validate:"required"`
	BankSubmissionDate *time.Time `json:"bank_submission_date,omitempty"`
}

func (r DisbursementRequest) Validate() error {
	return wrapValidation(validate.Struct(r))
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	verr := &ValidationError{Fields: make(map[string]string)}
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			verr.Fields[fe.Field()] = "failed " + fe.Tag() + " constraint"
		}
		return verr
	}
	verr.Fields["request"] = err.Error()
	return verr
}
