package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryAuditRepo struct {
	rows    []TimelineRow
	deleted time.Time
}

func (r *memoryAuditRepo) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	if offset >= len(r.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return r.rows[offset:end], nil
}

func (r *memoryAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.deleted = cutoff
	var kept []TimelineRow
	var removed int64
	for _, row := range r.rows {
		if row.At.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{At: base.Add(-time.Duration(i) * time.Hour), ActorID: 9, Action: "user_role", Entity: "permission_change"}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryAuditRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memoryAuditRepo{rows: makeRows(80)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
}

func TestTimelineEmptyPageIsNotNil(t *testing.T) {
	svc := NewService(&memoryAuditRepo{})

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.NotNil(t, result.Rows)
	require.Empty(t, result.Rows)
}

func TestPruneUsesRetentionCutoff(t *testing.T) {
	old := TimelineRow{At: time.Now().UTC().Add(-100 * 24 * time.Hour)}
	fresh := TimelineRow{At: time.Now().UTC()}
	repo := &memoryAuditRepo{rows: []TimelineRow{old, fresh}}
	svc := NewService(repo)

	removed, err := svc.Prune(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Len(t, repo.rows, 1)
}
