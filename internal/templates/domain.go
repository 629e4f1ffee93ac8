package templates

import (
	"time"

	"github.com/routewise/routewise/internal/catalog"
)

// AdminRole is the built-in maximal role. Its template is never stored:
// its effective set for every domain is the full catalog.
const AdminRole = "admin"

// DefaultProjectRole is the role granted on projects that carry no
// explicit assignment row.
const DefaultProjectRole = "member"

// RoleTemplate is the per-role default permission set for all four domains.
type RoleTemplate struct {
	Role      string
	Label     string
	Sets      catalog.KeySets
	CreatedAt time.Time
	UpdatedAt time.Time
}
