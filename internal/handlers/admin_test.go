package handlers

import (
	"context"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/vkozyrev/chanrelay/internal/db"
	"github.com/vkozyrev/chanrelay/internal/db/sqlite"
)

func newAdminFixture(t *testing.T) (*Admin, db.Client, *fakeTransport) {
	t.Helper()
	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	ops := &fakeTransport{}
	return NewAdmin(testConfig(), client, ops), client, ops
}

func owner() *api.User {
	return &api.User{ID: 999, UserName: "operator"}
}

func TestAdminBanUnbanRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, store, ops := newAdminFixture(t)

	u, chat := commandUpdate("private", owner(), "/ban 42 spreads spam", "/ban")
	if _, err := admin.Handle(ctx, u, chat, owner()); err != nil {
		t.Fatalf("handle ban: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "banned") {
		t.Fatalf("expected ban confirmation, got %q", ops.lastReply(t))
	}

	blacklisted, err := store.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if !blacklisted {
		t.Fatalf("user 42 must be blacklisted after /ban")
	}
	entry, err := store.GetBlacklistEntry(ctx, 42)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Reason != "spreads spam" {
		t.Fatalf("unexpected reason: %q", entry.Reason)
	}

	u, chat = commandUpdate("private", owner(), "/unban 42", "/unban")
	if _, err := admin.Handle(ctx, u, chat, owner()); err != nil {
		t.Fatalf("handle unban: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "unbanned") {
		t.Fatalf("expected unban confirmation, got %q", ops.lastReply(t))
	}
	blacklisted, err = store.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if blacklisted {
		t.Fatalf("user 42 must not be blacklisted after /unban")
	}

	u, chat = commandUpdate("private", owner(), "/unban 42", "/unban")
	if _, err := admin.Handle(ctx, u, chat, owner()); err != nil {
		t.Fatalf("handle second unban: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "No blacklist entry") {
		t.Fatalf("expected missing-entry notice, got %q", ops.lastReply(t))
	}
}

func TestAdminRefusesNonOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, store, ops := newAdminFixture(t)

	intruder := &api.User{ID: 1, UserName: "mallory"}
	u, chat := commandUpdate("private", intruder, "/ban 42 grudge", "/ban")
	proceed, err := admin.Handle(ctx, u, chat, intruder)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("handled commands must not proceed")
	}
	if !strings.Contains(ops.lastReply(t), "not allowed") {
		t.Fatalf("expected refusal, got %q", ops.lastReply(t))
	}

	blacklisted, err := store.IsBlacklisted(ctx, 42)
	if err != nil {
		t.Fatalf("is blacklisted: %v", err)
	}
	if blacklisted {
		t.Fatalf("unauthorized ban must not touch the store")
	}
}

func TestAdminRestrict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	admin, store, ops := newAdminFixture(t)

	u, chat := commandUpdate("private", owner(), "/restrict 5 1h", "/restrict")
	if _, err := admin.Handle(ctx, u, chat, owner()); err != nil {
		t.Fatalf("handle restrict: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "restricted until") {
		t.Fatalf("expected restriction confirmation, got %q", ops.lastReply(t))
	}

	restricted, err := store.IsRestricted(ctx, 5)
	if err != nil {
		t.Fatalf("is restricted: %v", err)
	}
	if !restricted {
		t.Fatalf("subject 5 must be restricted after /restrict")
	}
}

func TestAdminRestrictUsageOnBadDuration(t *testing.T) {
	t.Parallel()

	admin, store, ops := newAdminFixture(t)
	u, chat := commandUpdate("private", owner(), "/restrict 5 tomorrow", "/restrict")
	if _, err := admin.Handle(context.Background(), u, chat, owner()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "Usage: /restrict") {
		t.Fatalf("expected usage notice, got %q", ops.lastReply(t))
	}
	restricted, err := store.IsRestricted(context.Background(), 5)
	if err != nil {
		t.Fatalf("is restricted: %v", err)
	}
	if restricted {
		t.Fatalf("bad duration must not restrict")
	}
}

func TestAdminReportForwardsToOwner(t *testing.T) {
	t.Parallel()

	admin, _, ops := newAdminFixture(t)

	// Reports are open to everyone, not just the operator.
	reporter := &api.User{ID: 7, UserName: "whistleblower"}
	u, chat := commandUpdate("private", reporter, "/report channel abuse", "/report")
	if _, err := admin.Handle(context.Background(), u, chat, reporter); err != nil {
		t.Fatalf("handle report: %v", err)
	}

	if len(ops.sent) != 1 {
		t.Fatalf("expected one forwarded notice, got %d", len(ops.sent))
	}
	if ops.sent[0].chatID != 999 {
		t.Fatalf("report must go to the operator, got chat %d", ops.sent[0].chatID)
	}
	if !strings.Contains(ops.sent[0].text, "whistleblower") || !strings.Contains(ops.sent[0].text, "channel abuse") {
		t.Fatalf("notice must carry reporter and text, got %q", ops.sent[0].text)
	}
	if !strings.Contains(ops.lastReply(t), "forwarded") {
		t.Fatalf("expected confirmation, got %q", ops.lastReply(t))
	}
}

func TestAdminGroupChatGuard(t *testing.T) {
	t.Parallel()

	admin, _, ops := newAdminFixture(t)
	u, chat := commandUpdate("group", owner(), "/unban 42", "/unban")
	if _, err := admin.Handle(context.Background(), u, chat, owner()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(ops.lastReply(t), "/unban") {
		t.Fatalf("expected private-only notice, got %q", ops.lastReply(t))
	}
}
