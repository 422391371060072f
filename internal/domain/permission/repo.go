package permission

import "context"

type Repository interface {
	// List returns stored overrides; an empty role returns every role's.
	List(ctx context.Context, role string) ([]Override, error)
	Upsert(ctx context.Context, o Override) error
	DeleteRole(ctx context.Context, role string) error
}
