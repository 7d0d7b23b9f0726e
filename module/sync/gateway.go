package sync

import (
	"context"

	"SyncIM/module/sync/model"
)

// Gateway is the read-only query surface the engine drains from.
// Production implementation is Mongo+Redis (module/sync/store); tests use
// the in-memory store.
type Gateway interface {
	// ListGroups returns the ids of every group the user belongs to.
	// An empty result means nothing to sync.
	ListGroups(ctx context.Context, siteUserID string) ([]string, error)

	// GetPointer returns the persisted delivery watermark for
	// (group, user, device); 0 when none has been recorded yet.
	GetPointer(ctx context.Context, siteGroupID, siteUserID, deviceID string) (int64, error)

	// FetchPage returns up to limit records with sequence number strictly
	// greater than afterSeq, ascending by sequence number.
	FetchPage(ctx context.Context, siteGroupID, siteUserID, deviceID string, afterSeq int64, limit int) ([]*model.GroupMessage, error)
}

// ChannelWriter is the session channel of the requesting connection.
// A write error is fatal for the current sync round.
type ChannelWriter interface {
	Write(frame []byte) error
}
