package shared

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleMetadata carries display attributes for a role. Centralised here so
// table rendering, badges and the admin UI cannot drift apart.
type RoleMetadata struct {
	Role  string `json:"role"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// RoleMetaRegistry maps role keys to their display metadata.
type RoleMetaRegistry struct {
	mu    sync.RWMutex
	roles map[string]RoleMetadata
	title cases.Caser
}

// NewRoleMetaRegistry builds a registry seeded with the built-in roles.
func NewRoleMetaRegistry() *RoleMetaRegistry {
	r := &RoleMetaRegistry{
		roles: make(map[string]RoleMetadata),
		title: cases.Title(language.English),
	}
	r.Register(RoleMetadata{Role: "admin", Label: "Administrator", Color: "red"})
	r.Register(RoleMetadata{Role: "operator", Label: "Operator", Color: "blue"})
	r.Register(RoleMetadata{Role: "dispatcher", Label: "Dispatcher", Color: "green"})
	r.Register(RoleMetadata{Role: "viewer", Label: "Viewer", Color: "gray"})
	return r
}

// Register adds or replaces metadata for a role.
func (r *RoleMetaRegistry) Register(meta RoleMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta.Role = strings.TrimSpace(strings.ToLower(meta.Role))
	if meta.Role == "" {
		return
	}
	r.roles[meta.Role] = meta
}

// Lookup returns metadata for the role. Unknown roles get a title-cased
// label and the default color so the UI never renders a blank badge.
func (r *RoleMetaRegistry) Lookup(role string) RoleMetadata {
	key := strings.TrimSpace(strings.ToLower(role))
	r.mu.RLock()
	meta, ok := r.roles[key]
	r.mu.RUnlock()
	if ok {
		return meta
	}
	label := r.title.String(strings.ReplaceAll(key, "_", " "))
	return RoleMetadata{Role: key, Label: label, Color: "gray"}
}
