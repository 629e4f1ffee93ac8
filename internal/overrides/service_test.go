package overrides

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/users"
)

type memoryOverrideRepo struct {
	rows map[int64]Override
}

func newMemoryOverrideRepo() *memoryOverrideRepo {
	return &memoryOverrideRepo{rows: make(map[int64]Override)}
}

func (r *memoryOverrideRepo) Get(ctx context.Context, userID int64) (Override, bool, error) {
	o, ok := r.rows[userID]
	return o, ok, nil
}

func (r *memoryOverrideRepo) ReplaceDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error {
	o := r.rows[userID]
	o.UserID = userID
	o.Sets.SetDomain(domain, keys)
	r.rows[userID] = o
	return nil
}

func (r *memoryOverrideRepo) Delete(ctx context.Context, userID int64) error {
	delete(r.rows, userID)
	return nil
}

type stubUsers struct {
	known map[int64]bool
}

func (s *stubUsers) GetUser(ctx context.Context, id int64) (users.User, error) {
	if !s.known[id] {
		return users.User{}, shared.ErrNotFound
	}
	return users.User{ID: id}, nil
}

func newOverrideService(repo *memoryOverrideRepo) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, &stubUsers{known: map[int64]bool{1: true}}, catalog.Default(), nil)
}

func TestSetDomainClosesMenuAncestors(t *testing.T) {
	repo := newMemoryOverrideRepo()
	svc := newOverrideService(repo)

	err := svc.SetDomain(context.Background(), 1, catalog.DomainMenu, []string{"contracts.list"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"contracts", "contracts.list"}, repo.rows[1].Sets.Menu)
}

func TestSetDomainNilClearsToFallback(t *testing.T) {
	repo := newMemoryOverrideRepo()
	svc := newOverrideService(repo)

	require.NoError(t, svc.SetDomain(context.Background(), 1, catalog.DomainData, []string{"data.own"}))
	require.NotNil(t, repo.rows[1].Sets.Data)

	require.NoError(t, svc.SetDomain(context.Background(), 1, catalog.DomainData, nil))
	require.Nil(t, repo.rows[1].Sets.Data)
}

func TestSetDomainEmptySetIsExplicitRevoke(t *testing.T) {
	repo := newMemoryOverrideRepo()
	svc := newOverrideService(repo)

	require.NoError(t, svc.SetDomain(context.Background(), 1, catalog.DomainFunction, []string{}))
	stored := repo.rows[1].Sets.Function
	require.NotNil(t, stored)
	require.Empty(t, stored)
}

func TestSetDomainRejectsUnknownKey(t *testing.T) {
	svc := newOverrideService(newMemoryOverrideRepo())
	err := svc.SetDomain(context.Background(), 1, catalog.DomainMenu, []string{"ghost"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSetDomainUnknownUser(t *testing.T) {
	svc := newOverrideService(newMemoryOverrideRepo())
	err := svc.SetDomain(context.Background(), 42, catalog.DomainMenu, []string{"dashboard"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestClearRemovesWholeRow(t *testing.T) {
	repo := newMemoryOverrideRepo()
	svc := newOverrideService(repo)

	require.NoError(t, svc.SetDomain(context.Background(), 1, catalog.DomainMenu, []string{"dashboard"}))
	require.NoError(t, svc.Clear(context.Background(), 1))
	require.Empty(t, repo.rows)
}
