package permission

import (
	"context"

	"github.com/DarkMage108/medical-service-backend/internal/platform/apperr"
	"github.com/DarkMage108/medical-service-backend/internal/platform/db"
)

type Service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// All resolves every role: defaults first, stored overrides on top.
func (s *Service) All(ctx context.Context) (map[string]Set, error) {
	overrides, err := s.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]Set, len(Roles))
	for _, r := range Roles {
		out[r] = Defaults(r)
	}
	for _, o := range overrides {
		if out[o.Role] == nil {
			out[o.Role] = Set{}
		}
		out[o.Role][o.MenuKey] = o.CanAccess
	}
	return out, nil
}

func (s *Service) ForRole(ctx context.Context, role string) (Set, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.List(ctx, r)
	if err != nil {
		return nil, err
	}
	set := Defaults(r)
	for _, o := range overrides {
		set[o.MenuKey] = o.CanAccess
	}
	return set, nil
}

// Menu merges the permissions of every role the user holds.
func (s *Service) Menu(ctx context.Context, roles []string) ([]MenuAccess, error) {
	granted := Set{}
	for _, role := range roles {
		if _, err := ParseRole(role); err != nil {
			continue
		}
		set, err := s.ForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for k, v := range set {
			granted[k] = granted[k] || v
		}
	}
	out := make([]MenuAccess, len(MenuItems))
	for i, m := range MenuItems {
		out[i] = MenuAccess{MenuItem: m, CanAccess: granted[m.Key]}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, role string, changes Set) (Set, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, apperr.Validation("permissions object is required")
	}
	for k := range changes {
		if !validMenuKey(k) {
			return nil, apperr.Validation("invalid menu key: %s", k)
		}
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for k, v := range changes {
			if err := s.repo.Upsert(ctx, Override{Role: r, MenuKey: k, CanAccess: v}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ForRole(ctx, r)
}

// Reset drops every stored override of role.
func (s *Service) Reset(ctx context.Context, role string) (Set, error) {
	r, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteRole(ctx, r); err != nil {
		return nil, err
	}
	return Defaults(r), nil
}
