package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	IsBlacklisted(ctx context.Context, userID int64) (bool, error)
	// GetBlacklistEntry returns nil without error when no entry exists.
	GetBlacklistEntry(ctx context.Context, userID int64) (*BlacklistEntry, error)
	AddToBlacklist(ctx context.Context, userID int64, reason string) error
	// RemoveFromBlacklist reports whether an entry existed and was removed.
	RemoveFromBlacklist(ctx context.Context, userID int64) (bool, error)

	// IsRestricted is true iff a stored expiry is strictly in the future.
	IsRestricted(ctx context.Context, subjectID int64) (bool, error)
	SetRestriction(ctx context.Context, subjectID int64, expiresAt time.Time) error
}
