package db

import "time"

type (
	// BlacklistEntry is a banned submitter. At most one row exists per user.
	BlacklistEntry struct {
		UserID    int64  `db:"user_id"`
		Reason    string `db:"reason"`
		CreatedAt int64  `db:"created_at"`
	}

	// Restriction disables sending for a subject until ExpiresAt.
	// Timestamps are unix seconds, UTC.
	Restriction struct {
		SubjectID int64 `db:"subject_id"`
		ExpiresAt int64 `db:"expires_at"`
	}
)

func (e *BlacklistEntry) CreatedTime() time.Time {
	return time.Unix(e.CreatedAt, 0).UTC()
}

func (r *Restriction) ExpiryTime() time.Time {
	return time.Unix(r.ExpiresAt, 0).UTC()
}
