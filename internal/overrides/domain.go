package overrides

import (
	"time"

	"github.com/routewise/routewise/internal/catalog"
)

// Override is a user's per-domain replacement of the role template. A nil
// domain set means "fall back to the role template"; a non-nil set is used
// verbatim instead of the template — replace, never merge.
type Override struct {
	UserID    int64
	Sets      catalog.KeySets
	UpdatedAt time.Time
}
