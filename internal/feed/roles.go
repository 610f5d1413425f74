package feed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role describes a known worker role: its badge and, optionally, a pinned
// topology position in the unit square.
type Role struct {
	Emoji string   `yaml:"emoji"`
	X     *float64 `yaml:"x,omitempty"`
	Y     *float64 `yaml:"y,omitempty"`
}

// RoleTable maps worker names to roles. Lookups are case-insensitive.
type RoleTable struct {
	roles map[string]Role
}

type rolesFile struct {
	Roles map[string]Role `yaml:"roles"`
}

func pos(x, y float64) (px, py *float64) { return &x, &y }

// BuiltinRoles covers the standard swarm roles.
func BuiltinRoles() *RoleTable {
	t := &RoleTable{roles: map[string]Role{}}
	add := func(name, emoji string, x, y float64) {
		px, py := pos(x, y)
		t.roles[name] = Role{Emoji: emoji, X: px, Y: py}
	}
	add("queen", "👑", 0.50, 0.12)
	add("developer", "💻", 0.20, 0.55)
	add("tester", "🧪", 0.80, 0.55)
	add("reviewer", "🔍", 0.35, 0.85)
	add("researcher", "📚", 0.65, 0.85)
	add("architect", "📐", 0.50, 0.45)
	return t
}

// LoadRoles reads a role-layout YAML file and merges it over the built-in
// table, so operators only list the roles they want to change.
func LoadRoles(path string) (*RoleTable, error) {
	t := BuiltinRoles()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roles file %s: %w", path, err)
	}
	for name, role := range f.Roles {
		key := strings.ToLower(name)
		merged := t.roles[key]
		if role.Emoji != "" {
			merged.Emoji = role.Emoji
		}
		if role.X != nil {
			merged.X = role.X
		}
		if role.Y != nil {
			merged.Y = role.Y
		}
		t.roles[key] = merged
	}
	return t, nil
}

// Emoji returns the badge for a worker name, with a generic fallback for
// roles outside the table.
func (t *RoleTable) Emoji(name string) string {
	if r, ok := t.roles[strings.ToLower(name)]; ok && r.Emoji != "" {
		return r.Emoji
	}
	return "🤖"
}

// Position returns the pinned unit-square position for a known role, or
// ok=false when the role has none and the caller should lay it out itself.
func (t *RoleTable) Position(name string) (x, y float64, ok bool) {
	r, found := t.roles[strings.ToLower(name)]
	if !found || r.X == nil || r.Y == nil {
		return 0, 0, false
	}
	return *r.X, *r.Y, true
}
