// AngelaMos | 2026
// entity.go

package holder

import (
	"time"
)

// Holder is an account that owns at most one plan and receives its
// payouts.
type Holder struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (h *Holder) IsAdmin() bool {
	return h.Role == RoleAdmin
}

const (
	RoleHolder = "holder"
	RoleAdmin  = "admin"
)
