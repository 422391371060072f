package permission

import (
	"strings"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/auth"
)

type MenuItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// MenuItems is the closed set of menu keys a role can be granted.
var MenuItems = []MenuItem{
	{Key: "dashboard", Label: "Dashboard", Path: "/"},
	{Key: "checklist", Label: "Checklist", Path: "/checklist"},
	{Key: "nursing", Label: "Enfermagem", Path: "/enfermagem"},
	{Key: "patients", Label: "Pacientes", Path: "/pacientes"},
	{Key: "history", Label: "Histórico", Path: "/historico"},
	{Key: "inventory", Label: "Estoque", Path: "/estoque"},
	{Key: "diagnoses", Label: "Diagnósticos", Path: "/diagnosticos"},
	{Key: "protocols", Label: "Protocolos", Path: "/protocolos"},
}

// Roles lists every role in display order.
var Roles = []string{auth.RoleAdmin, auth.RoleDoctor, auth.RoleSecretary, auth.RoleNurse}

// Set maps a menu key to whether the role may open it.
type Set map[string]bool

var (
	fullAccess  = Set{"dashboard": true, "checklist": true, "nursing": true, "patients": true, "history": true, "inventory": true, "diagnoses": true, "protocols": true}
	frontOffice = Set{"dashboard": true, "checklist": true, "nursing": true, "patients": true, "history": true, "inventory": false, "diagnoses": false, "protocols": false}
)

// defaults holds each role's permissions before stored overrides apply.
var defaults = map[string]Set{
	auth.RoleAdmin:     fullAccess,
	auth.RoleDoctor:    fullAccess,
	auth.RoleSecretary: frontOffice,
	auth.RoleNurse:     frontOffice,
}

// Defaults returns a copy of the built-in permissions for role.
func Defaults(role string) Set {
	out := make(Set, len(MenuItems))
	for k, v := range defaults[role] {
		out[k] = v
	}
	return out
}

func ParseRole(s string) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := defaults[r]; !ok {
		return "", apperr.Validation("invalid role %q", s)
	}
	return r, nil
}

func validMenuKey(key string) bool {
	for _, m := range MenuItems {
		if m.Key == key {
			return true
		}
	}
	return false
}

// Override is one stored row of the role_permission table.
type Override struct {
	Role      string
	MenuKey   string
	CanAccess bool
}

// MenuAccess is a menu item annotated for the current user.
type MenuAccess struct {
	MenuItem
	CanAccess bool `json:"canAccess"`
}
