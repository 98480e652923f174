package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"

	"github.com/vkozyrev/chanrelay/internal/db"
	"github.com/vkozyrev/chanrelay/resources"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteClient struct {
	db *sqlx.DB
}

func NewSQLiteClient(ctx context.Context, dir string, dbPath string) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, dbPath))
	if err != nil {
		return nil, errors.WithMessage(err, "cant open db")
	}
	// modernc sqlite serializes writers itself, a single connection avoids
	// SQLITE_BUSY on concurrent upserts.
	dbx.SetMaxOpenConns(1)

	if err := dbx.PingContext(ctx); err != nil {
		return nil, errors.WithMessage(err, "cant ping db")
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, errors.WithMessage(err, "migrate up failed")
	}
	if n > 0 {
		log.Infof("applied %d migrations", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) IsBlacklisted(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := c.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM blacklist WHERE user_id = ?", userID)
	return count > 0, err
}

func (c *sqliteClient) GetBlacklistEntry(ctx context.Context, userID int64) (*db.BlacklistEntry, error) {
	res := &db.BlacklistEntry{}
	err := c.db.GetContext(ctx, res, "SELECT user_id, reason, created_at FROM blacklist WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *sqliteClient) AddToBlacklist(ctx context.Context, userID int64, reason string) error {
	query := `
		INSERT INTO blacklist (user_id, reason, created_at)
		VALUES (:user_id, :reason, :created_at)
		ON CONFLICT(user_id) DO UPDATE SET
		reason=excluded.reason,
		created_at=excluded.created_at;
	`
	entry := &db.BlacklistEntry{
		UserID:    userID,
		Reason:    reason,
		CreatedAt: time.Now().UTC().Unix(),
	}
	return tool.Err(c.db.NamedExecContext(ctx, query, entry))
}

func (c *sqliteClient) RemoveFromBlacklist(ctx context.Context, userID int64) (bool, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM blacklist WHERE user_id = ?", userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (c *sqliteClient) IsRestricted(ctx context.Context, subjectID int64) (bool, error) {
	var count int
	err := c.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM restrictions WHERE subject_id = ? AND expires_at > ?",
		subjectID, time.Now().UTC().Unix(),
	)
	return count > 0, err
}

func (c *sqliteClient) SetRestriction(ctx context.Context, subjectID int64, expiresAt time.Time) error {
	query := `
		INSERT INTO restrictions (subject_id, expires_at)
		VALUES (:subject_id, :expires_at)
		ON CONFLICT(subject_id) DO UPDATE SET
		expires_at=excluded.expires_at;
	`
	restriction := &db.Restriction{
		SubjectID: subjectID,
		ExpiresAt: expiresAt.UTC().Unix(),
	}
	return tool.Err(c.db.NamedExecContext(ctx, query, restriction))
}
