package gate

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"pharmacart/storefront-service/internal/app/storefront/entity"

	"gopkg.in/yaml.v3"
)

// Table - таблица назначений и адресов перенаправления
type Table struct {
	Login          string
	AccountLanding string
	dashboards     map[entity.Role]string
	destinations   map[string]Destination
}

func DefaultTable() *Table {
	t := &Table{
		Login:          "/login",
		AccountLanding: "/account",
		dashboards: map[entity.Role]string{
			entity.RoleCustomer: "/account",
			entity.RolePharmacy: "/pharmacy/dashboard",
			entity.RoleDelivery: "/delivery/dashboard",
		},
		destinations: make(map[string]Destination),
	}

	for _, d := range []Destination{
		{Path: "/", Public: true},
		{Path: "/login", Public: true},
		{Path: "/products", Public: true},
		{Path: "/account"},
		{Path: "/cart"},
		{Path: "/checkout"},
		{Path: "/orders"},
		{Path: "/reviews"},
		{Path: "/pharmacy/verify", VerificationFor: entity.RolePharmacy},
		{Path: "/pharmacy/dashboard", RequiredRole: entity.RolePharmacy},
		{Path: "/pharmacy/orders", RequiredRole: entity.RolePharmacy},
		{Path: "/delivery/verify", VerificationFor: entity.RoleDelivery},
		{Path: "/delivery/dashboard", RequiredRole: entity.RoleDelivery},
	} {
		t.destinations[d.Path] = d
	}
	return t
}

// Dashboard - стартовая страница роли
func (t *Table) Dashboard(role entity.Role) string {
	if d, ok := t.dashboards[role]; ok {
		return d
	}
	return t.AccountLanding
}

// Lookup ищет назначение по точному пути, затем по самому длинному префиксу
// из сегментов. Незнакомый путь требует только входа.
func (t *Table) Lookup(path string) Destination {
	path = cleanPath(path)
	for p := path; ; {
		if d, ok := t.destinations[p]; ok {
			d.Path = path
			return d
		}
		idx := strings.LastIndex(p, "/")
		// "/" публичен только сам по себе, на вложенные пути не распространяется
		if idx <= 0 {
			break
		}
		p = p[:idx]
	}
	return Destination{Path: path}
}

func (t *Table) Destinations() []Destination {
	out := make([]Destination, 0, len(t.destinations))
	for _, d := range t.destinations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func cleanPath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// =============================================================================
// YAML
// =============================================================================

type tableFile struct {
	Login          string            `yaml:"login"`
	AccountLanding string            `yaml:"account_landing"`
	Dashboards     map[string]string `yaml:"dashboards"`
	Destinations   []destinationFile `yaml:"destinations"`
}

type destinationFile struct {
	Path            string `yaml:"path"`
	Public          bool   `yaml:"public"`
	RequiredRole    string `yaml:"required_role"`
	VerificationFor string `yaml:"verification_for"`
}

// LoadTable читает YAML поверх таблицы по умолчанию
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gate routes: %w", err)
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse gate routes: %w", err)
	}

	t := DefaultTable()
	if f.Login != "" {
		t.Login = cleanPath(f.Login)
	}
	if f.AccountLanding != "" {
		t.AccountLanding = cleanPath(f.AccountLanding)
	}
	for roleName, location := range f.Dashboards {
		role, err := entity.ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("dashboards: %w", err)
		}
		t.dashboards[role] = cleanPath(location)
	}

	for _, df := range f.Destinations {
		d := Destination{Path: cleanPath(df.Path), Public: df.Public}
		if df.RequiredRole != "" {
			role, err := entity.ParseRole(df.RequiredRole)
			if err != nil {
				return nil, fmt.Errorf("destination %s: %w", df.Path, err)
			}
			d.RequiredRole = role
		}
		if df.VerificationFor != "" {
			role, err := entity.ParseRole(df.VerificationFor)
			if err != nil {
				return nil, fmt.Errorf("destination %s: %w", df.Path, err)
			}
			d.VerificationFor = role
		}
		t.destinations[d.Path] = d
	}
	return t, nil
}
