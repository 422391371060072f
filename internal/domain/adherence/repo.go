package adherence

import "context"

type SettingsRepository interface {
	List(ctx context.Context) ([]Setting, error)
	// ByPrefix returns key/value pairs whose key starts with prefix.
	ByPrefix(ctx context.Context, prefix string) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}
