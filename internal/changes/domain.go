package changes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/routewise/routewise/internal/shared"
)

// Kind identifies what a staged change mutates.
type Kind string

const (
	// KindUserPermission covers per-user override edits.
	KindUserPermission Kind = "user_permission"
	// KindRoleTemplate covers role template edits.
	KindRoleTemplate Kind = "role_template"
	// KindUserRole covers role reassignment of a user.
	KindUserRole Kind = "user_role"
	// KindUserStatus covers activating or deactivating a user.
	KindUserStatus Kind = "user_status"
	// KindProjectAssignment covers assigning or restricting a project.
	KindProjectAssignment Kind = "project_assignment"
)

// State tracks a change set through its lifecycle.
type State string

const (
	StateProposed  State = "proposed"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
)

// ErrFinalized signals a confirm or cancel on a set that was already
// decided. The first decision wins; it maps to HTTP 409.
var ErrFinalized = fmt.Errorf("changes: set already finalized: %w", shared.ErrDuplicate)

// Change is one reviewable diff entry inside a set. Old and New hold
// display values; the actual mutation is carried by the set's commit.
type Change struct {
	Kind        Kind   `json:"kind"`
	UserID      int64  `json:"user_id,omitempty"`
	Field       string `json:"field"`
	Old         string `json:"old"`
	New         string `json:"new"`
	Description string `json:"description"`
}

// Set is a staged group of changes awaiting a confirm or cancel. Nothing
// is written to storage while the set is in StateProposed.
type Set struct {
	ID        uuid.UUID `json:"id"`
	ActorID   int64     `json:"actor_id"`
	State     State     `json:"state"`
	Changes   []Change  `json:"changes"`
	CreatedAt time.Time `json:"created_at"`

	commit func(context.Context) error
}

// snapshot copies the set for callers outside the service lock. The
// commit closure never leaves the service.
func (set *Set) snapshot() *Set {
	cp := *set
	cp.commit = nil
	cp.Changes = append([]Change(nil), set.Changes...)
	return &cp
}
