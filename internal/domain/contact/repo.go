package contact

import "context"

type DismissedRepository interface {
	// Create fails with a conflict when the contact was already dismissed.
	Create(ctx context.Context, l *DismissedLog) error
	Get(ctx context.Context, contactID string) (*DismissedLog, error)
	UpdateFeedback(ctx context.Context, contactID string, f Feedback) (*DismissedLog, error)
	List(ctx context.Context) ([]*DismissedLog, error)
	IDs(ctx context.Context) (map[string]bool, error)
}
