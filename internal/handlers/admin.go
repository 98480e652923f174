package handlers

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/vkozyrev/chanrelay/internal/bot"
	"github.com/vkozyrev/chanrelay/internal/config"
	apperrors "github.com/vkozyrev/chanrelay/internal/errors"
	"github.com/vkozyrev/chanrelay/internal/i18n"
)

type adminStore interface {
	AddToBlacklist(ctx context.Context, userID int64, reason string) error
	RemoveFromBlacklist(ctx context.Context, userID int64) (bool, error)
	SetRestriction(ctx context.Context, subjectID int64, expiresAt time.Time) error
}

// Admin is the control plane over the moderation stores: /ban, /unban and
// /restrict are owner-only, /report forwards a notice to the owner.
type Admin struct {
	store adminStore
	ops   transport
	cfg   config.Config
	lang  string
}

func NewAdmin(cfg config.Config, store adminStore, ops transport) *Admin {
	return &Admin{
		store: store,
		ops:   ops,
		cfg:   cfg,
		lang:  cfg.DefaultLanguage,
	}
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u == nil || u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !msg.IsCommand() {
		return true, nil
	}

	command := msg.Command()
	switch command {
	case "ban", "unban", "restrict", "report":
	default:
		return true, nil
	}

	if !chat.IsPrivate() {
		a.reply(ctx, msg, fmt.Sprintf(
			i18n.Get("The %s command is only available in private messages with the bot.", a.lang),
			"/"+command,
		))
		return false, nil
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch command {
	case "report":
		a.handleReport(ctx, msg, user, args)
		return false, nil
	case "ban":
		if !a.authorize(ctx, msg, user) {
			return false, nil
		}
		a.handleBan(ctx, msg, args)
		return false, nil
	case "unban":
		if !a.authorize(ctx, msg, user) {
			return false, nil
		}
		a.handleUnban(ctx, msg, args)
		return false, nil
	case "restrict":
		if !a.authorize(ctx, msg, user) {
			return false, nil
		}
		a.handleRestrict(ctx, msg, args)
		return false, nil
	}
	return true, nil
}

func (a *Admin) authorize(ctx context.Context, msg *api.Message, user *api.User) bool {
	if user.ID != a.cfg.OwnerID {
		a.getLogEntry().WithFields(log.Fields{
			"user_id": user.ID,
			"error":   apperrors.ErrUnauthorized.Error(),
		}).Debug("refusing admin command")
		a.reply(ctx, msg, i18n.Get("You are not allowed to do that.", a.lang))
		return false
	}
	return true
}

func (a *Admin) handleBan(ctx context.Context, msg *api.Message, args string) {
	fields := strings.SplitN(args, " ", 2)
	if len(fields) < 2 || fields[0] == "" {
		a.reply(ctx, msg, i18n.Get("Usage: /ban <user id> <reason>", a.lang))
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		a.reply(ctx, msg, i18n.Get("Usage: /ban <user id> <reason>", a.lang))
		return
	}
	if err := a.store.AddToBlacklist(ctx, userID, strings.TrimSpace(fields[1])); err != nil {
		a.getLogEntry().WithError(err).Error("cant add to blacklist")
		a.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", a.lang))
		return
	}
	a.reply(ctx, msg, fmt.Sprintf(i18n.Get("User %d has been banned.", a.lang), userID))
}

func (a *Admin) handleUnban(ctx context.Context, msg *api.Message, args string) {
	userID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		a.reply(ctx, msg, i18n.Get("Usage: /unban <user id>", a.lang))
		return
	}
	removed, err := a.store.RemoveFromBlacklist(ctx, userID)
	if err != nil {
		a.getLogEntry().WithError(err).Error("cant remove from blacklist")
		a.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", a.lang))
		return
	}
	if !removed {
		a.reply(ctx, msg, fmt.Sprintf(i18n.Get("No blacklist entry for user %d.", a.lang), userID))
		return
	}
	a.reply(ctx, msg, fmt.Sprintf(i18n.Get("User %d has been unbanned.", a.lang), userID))
}

func (a *Admin) handleRestrict(ctx context.Context, msg *api.Message, args string) {
	fields := strings.Fields(args)
	usage := i18n.Get("Usage: /restrict <subject id> <duration, e.g. 2h30m>", a.lang)
	if len(fields) != 2 {
		a.reply(ctx, msg, usage)
		return
	}
	subjectID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		a.reply(ctx, msg, usage)
		return
	}
	duration, err := time.ParseDuration(fields[1])
	if err != nil || duration <= 0 {
		a.reply(ctx, msg, usage)
		return
	}
	expiresAt := time.Now().UTC().Add(duration)
	if err := a.store.SetRestriction(ctx, subjectID, expiresAt); err != nil {
		a.getLogEntry().WithError(err).Error("cant set restriction")
		a.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", a.lang))
		return
	}
	a.reply(ctx, msg, fmt.Sprintf(
		i18n.Get("Sending for %d is now restricted until %s.", a.lang),
		subjectID,
		expiresAt.Format(time.DateTime),
	))
}

// handleReport forwards a formatted notice to the operator and performs no
// moderation.
func (a *Admin) handleReport(ctx context.Context, msg *api.Message, user *api.User, args string) {
	if args == "" {
		a.reply(ctx, msg, i18n.Get("Usage: /report <text>", a.lang))
		return
	}
	notice := fmt.Sprintf(
		i18n.Get("Report from %s:\n%s", a.lang),
		html.EscapeString(bot.GetUN(user)),
		html.EscapeString(args),
	)
	if err := a.ops.SendText(ctx, a.cfg.OwnerID, notice); err != nil {
		a.getLogEntry().WithError(err).Error("cant forward report")
		a.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", a.lang))
		return
	}
	a.reply(ctx, msg, i18n.Get("The report has been forwarded to the operator.", a.lang))
}

func (a *Admin) reply(ctx context.Context, msg *api.Message, text string) {
	if err := a.ops.Reply(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		a.getLogEntry().WithError(err).Warn("cant reply")
	}
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}
