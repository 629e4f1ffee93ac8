package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMissingParent(t *testing.T) {
	_, err := New([]Item{
		{Key: "orders.list", Parent: "orders", Domain: DomainMenu},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing parent")
}

func TestNewRejectsDuplicateKeyWithinDomain(t *testing.T) {
	_, err := New([]Item{
		{Key: "orders", Domain: DomainMenu},
		{Key: "orders", Domain: DomainMenu},
	})
	require.Error(t, err)
}

func TestNewAllowsSameKeyAcrossDomains(t *testing.T) {
	c, err := New([]Item{
		{Key: "orders", Domain: DomainMenu},
		{Key: "orders", Domain: DomainFunction},
	})
	require.NoError(t, err)
	require.True(t, c.Has(DomainMenu, "orders"))
	require.True(t, c.Has(DomainFunction, "orders"))
}

func TestNewRejectsCyclicParents(t *testing.T) {
	_, err := New([]Item{
		{Key: "a", Parent: "b", Domain: DomainMenu},
		{Key: "b", Parent: "a", Domain: DomainMenu},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cyclic")
}

func TestWithAncestorsClosesParentChain(t *testing.T) {
	c := Default()
	keys := c.WithAncestors(DomainMenu, []string{"dashboard.transport"})
	require.Equal(t, []string{"dashboard", "dashboard.transport"}, keys)
}

func TestWithAncestorsDropsUnknownKeys(t *testing.T) {
	c := Default()
	keys := c.WithAncestors(DomainMenu, []string{"orders.list", "ghost.key", "  "})
	require.Equal(t, []string{"orders", "orders.list"}, keys)
}

func TestWithAncestorsPreservesNil(t *testing.T) {
	c := Default()
	require.Nil(t, c.WithAncestors(DomainMenu, nil))
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	for _, d := range AllDomains() {
		require.NotEmpty(t, c.Keys(d), "domain %s", d)
	}
	require.True(t, c.Has(DomainMenu, "contracts.list"))
	require.Equal(t, []string{"contracts"}, c.Ancestors(DomainMenu, "contracts.list"))
}

func TestKeySetsForDomainRoundTrip(t *testing.T) {
	var s KeySets
	s.SetDomain(DomainData, []string{"data.own"})
	require.Equal(t, []string{"data.own"}, s.ForDomain(DomainData))
	require.Nil(t, s.ForDomain(DomainMenu))

	clone := s.Clone()
	clone.Data[0] = "data.team"
	require.Equal(t, []string{"data.own"}, s.Data)
}

func TestDedup(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, Dedup([]string{"b", "a", "b", " "}))
	require.Nil(t, Dedup(nil))
	require.NotNil(t, Dedup([]string{}))
}
