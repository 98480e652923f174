package sqlite

import (
	"context"
	"testing"
	"time"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBlacklistRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	blacklisted, err := client.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if blacklisted {
		t.Fatalf("user should not be blacklisted yet")
	}

	if err := client.AddToBlacklist(ctx, 42, "spam"); err != nil {
		t.Fatalf("add to blacklist: %v", err)
	}

	blacklisted, err = client.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if !blacklisted {
		t.Fatalf("user should be blacklisted")
	}

	entry, err := client.GetBlacklistEntry(ctx, 42)
	if err != nil {
		t.Fatalf("get blacklist entry: %v", err)
	}
	if entry == nil {
		t.Fatalf("entry is nil")
	}
	if entry.Reason != "spam" {
		t.Fatalf("unexpected reason: %q", entry.Reason)
	}
	if entry.CreatedAt == 0 {
		t.Fatalf("created_at not set")
	}

	removed, err := client.RemoveFromBlacklist(ctx, 42)
	if err != nil {
		t.Fatalf("remove from blacklist: %v", err)
	}
	if !removed {
		t.Fatalf("expected entry to be removed")
	}

	blacklisted, err = client.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if blacklisted {
		t.Fatalf("user should not be blacklisted after removal")
	}

	removed, err = client.RemoveFromBlacklist(ctx, 42)
	if err != nil {
		t.Fatalf("remove from blacklist: %v", err)
	}
	if removed {
		t.Fatalf("second removal should report nothing removed")
	}
}

func TestBlacklistOverwritesOnConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.AddToBlacklist(ctx, 7, "first"); err != nil {
		t.Fatalf("add to blacklist: %v", err)
	}
	if err := client.AddToBlacklist(ctx, 7, "second"); err != nil {
		t.Fatalf("add to blacklist again: %v", err)
	}

	var count int
	if err := client.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM blacklist WHERE user_id = ?", 7); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}

	entry, err := client.GetBlacklistEntry(ctx, 7)
	if err != nil {
		t.Fatalf("get blacklist entry: %v", err)
	}
	if entry.Reason != "second" {
		t.Fatalf("expected overwritten reason, got %q", entry.Reason)
	}
}

func TestGetBlacklistEntryMissing(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	entry, err := client.GetBlacklistEntry(context.Background(), 999)
	if err != nil {
		t.Fatalf("get blacklist entry: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry for missing user, got %+v", entry)
	}
}

func TestRestrictionExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	restricted, err := client.IsRestricted(ctx, 100)
	if err != nil {
		t.Fatalf("is restricted: %v", err)
	}
	if restricted {
		t.Fatalf("subject should not be restricted yet")
	}

	if err := client.SetRestriction(ctx, 100, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set restriction: %v", err)
	}
	restricted, err = client.IsRestricted(ctx, 100)
	if err != nil {
		t.Fatalf("is restricted: %v", err)
	}
	if !restricted {
		t.Fatalf("subject should be restricted until expiry")
	}

	// An upsert with a past expiry replaces the live row and is inert.
	if err := client.SetRestriction(ctx, 100, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("set past restriction: %v", err)
	}
	restricted, err = client.IsRestricted(ctx, 100)
	if err != nil {
		t.Fatalf("is restricted: %v", err)
	}
	if restricted {
		t.Fatalf("expired restriction must not restrict")
	}

	var count int
	if err := client.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM restrictions WHERE subject_id = ?", 100); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one restriction row, got %d", count)
	}
}

func TestMigrationsCreateSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	tables := make(map[string]struct{})
	rows, err := client.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		tables[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate rows: %v", err)
	}

	for _, required := range []string{"blacklist", "restrictions"} {
		if _, ok := tables[required]; !ok {
			t.Fatalf("required table %q not found", required)
		}
	}
}
