package users

import "time"

// User represents an operator account referenced by the permission engine.
// Accounts are owned by the external identity collaborator; the engine
// reads them and mutates only role and active status.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
