package assignments

import "time"

// Assignment is one (user, project) row in user_projects. Absence of a
// row means default-allow: the user can view and edit but not delete.
// A row with CanView=false is an explicit restriction; restriction rows
// are kept, not deleted, so the denial survives later role changes.
type Assignment struct {
	UserID    int64
	ProjectID int64
	Role      string
	CanView   bool
	CanEdit   bool
	CanDelete bool
	UpdatedAt time.Time
}

// Access is the resolved capability of a user on a project.
type Access struct {
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	Role      string `json:"role"`
}
