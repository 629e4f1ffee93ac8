package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditRecordRequiresClassification(t *testing.T) {
	l := NewAuditLogger(nil)

	err := l.Record(context.Background(), PermissionChange{EntityID: "1"})
	require.ErrorIs(t, err, ErrValidation)

	err = l.Record(context.Background(), PermissionChange{Action: "user_role"})
	require.ErrorIs(t, err, ErrValidation)
}
