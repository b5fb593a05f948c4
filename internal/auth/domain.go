package auth

import "time"

// Role enumerates pipeline roles. The role drives which transitions and
// queues a user may touch.
type Role string

const (
	// RoleSKPD is the submitting spending unit.
	RoleSKPD Role = "SKPD"
	// RoleRegistrar books incoming documents.
	RoleRegistrar Role = "REGISTRAR"
	// RoleVerifier works the shared verification pool.
	RoleVerifier Role = "VERIFIER"
	// RoleCorrector returns documents with a correction note, skipping the verifier.
	RoleCorrector Role = "CORRECTOR"
	// RoleDisbursement registers the final SP2D.
	RoleDisbursement Role = "DISBURSEMENT"
)

// User represents an authenticated account.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	Role         Role
	UnitName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Context is the request-scoped actor identity passed into every engine call.
// Its lifecycle is owned entirely by the HTTP boundary; the core never caches
// or mutates it.
type Context struct {
	UserID      int64
	DisplayName string
	Role        Role
	UnitName    string
}

// ContextFor derives the engine-facing actor value from a user record.
func ContextFor(u *User) Context {
	return Context{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		UnitName:    u.UnitName,
	}
}
