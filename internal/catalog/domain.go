package catalog

// Domain identifies one of the four independent permission axes.
type Domain string

const (
	// DomainMenu controls navigation visibility.
	DomainMenu Domain = "menu"
	// DomainFunction controls functional actions.
	DomainFunction Domain = "function"
	// DomainProject controls project-level capabilities.
	DomainProject Domain = "project"
	// DomainData controls data visibility scope.
	DomainData Domain = "data"
)

// AllDomains lists every permission domain in display order.
func AllDomains() []Domain {
	return []Domain{DomainMenu, DomainFunction, DomainProject, DomainData}
}

// ParseDomain validates a raw domain string.
func ParseDomain(raw string) (Domain, bool) {
	switch Domain(raw) {
	case DomainMenu, DomainFunction, DomainProject, DomainData:
		return Domain(raw), true
	}
	return "", false
}

// Item is a single permission entry in a domain catalog. Items with a
// non-empty Parent form a tree; the full catalog is a forest per domain.
type Item struct {
	Key    string
	Label  string
	Parent string
	Domain Domain
}

// KeySets holds one permission key set per domain. A nil slice means the
// set is absent (for overrides: fall back to the role template), while an
// empty non-nil slice means an explicit empty grant.
type KeySets struct {
	Menu     []string
	Function []string
	Project  []string
	Data     []string
}

// ForDomain returns the set stored for the given domain.
func (s KeySets) ForDomain(d Domain) []string {
	switch d {
	case DomainMenu:
		return s.Menu
	case DomainFunction:
		return s.Function
	case DomainProject:
		return s.Project
	case DomainData:
		return s.Data
	}
	return nil
}

// SetDomain replaces the set stored for the given domain.
func (s *KeySets) SetDomain(d Domain, keys []string) {
	switch d {
	case DomainMenu:
		s.Menu = keys
	case DomainFunction:
		s.Function = keys
	case DomainProject:
		s.Project = keys
	case DomainData:
		s.Data = keys
	}
}

// Clone returns a deep copy of the key sets.
func (s KeySets) Clone() KeySets {
	return KeySets{
		Menu:     cloneKeys(s.Menu),
		Function: cloneKeys(s.Function),
		Project:  cloneKeys(s.Project),
		Data:     cloneKeys(s.Data),
	}
}

// IsEmpty reports whether every domain set is absent.
func (s KeySets) IsEmpty() bool {
	return s.Menu == nil && s.Function == nil && s.Project == nil && s.Data == nil
}

func cloneKeys(keys []string) []string {
	if keys == nil {
		return nil
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}
