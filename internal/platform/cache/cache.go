package cache

import (
	"context"

	"filedrop/internal/platform/models"
)

// InboxCache fronts public slug lookups.
type InboxCache interface {
	Get(ctx context.Context, slug string) (*models.Inbox, bool)
	Set(ctx context.Context, inbox *models.Inbox)
	Invalidate(ctx context.Context, slug string)
}

// Notifier emits the refresh signal that tells dashboards to re-read a
// creator's inboxes and counters.
type Notifier interface {
	Refresh(ctx context.Context, creatorID string) error
}

// Subscriber delivers a creator's refresh signals until ctx is done, then
// closes the channel. Signals that arrive while one is pending are coalesced.
type Subscriber interface {
	Subscribe(ctx context.Context, creatorID string) (<-chan struct{}, error)
}

func refreshChannel(creatorID string) string {
	return "filedrop:refresh:" + creatorID
}

func slugKey(slug string) string {
	return "filedrop:inbox:slug:" + slug
}
