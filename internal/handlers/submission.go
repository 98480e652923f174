package handlers

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vkozyrev/chanrelay/internal/config"
	"github.com/vkozyrev/chanrelay/internal/i18n"
	"github.com/vkozyrev/chanrelay/internal/moderation"
	"github.com/vkozyrev/chanrelay/internal/observability"
	"github.com/vkozyrev/chanrelay/internal/publish"
)

// Submission relays private /send and /media submissions to the broadcast
// channel: gate first, then inline text send or staged media enqueue.
type Submission struct {
	gate  evaluator
	queue *publish.Queue
	ops   transport
	cfg   config.Config
	lang  string
}

func NewSubmission(cfg config.Config, gate evaluator, queue *publish.Queue, ops transport) *Submission {
	return &Submission{
		gate:  gate,
		queue: queue,
		ops:   ops,
		cfg:   cfg,
		lang:  cfg.DefaultLanguage,
	}
}

func (s *Submission) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u == nil || u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message
	if !msg.IsCommand() {
		return true, nil
	}

	command := msg.Command()
	if command != "send" && command != "media" {
		return true, nil
	}

	if !chat.IsPrivate() {
		s.reply(ctx, msg, fmt.Sprintf(
			i18n.Get("The %s command is only available in private messages with the bot.", s.lang),
			"/"+command,
		))
		return false, nil
	}

	switch command {
	case "send":
		return false, s.handleSend(ctx, msg, user)
	case "media":
		return false, s.handleMedia(ctx, msg, user)
	}
	return true, nil
}

func (s *Submission) handleSend(ctx context.Context, msg *api.Message, user *api.User) error {
	text := strings.TrimSpace(msg.CommandArguments())

	decision, err := s.gate.Evaluate(ctx, user.ID, text)
	if err != nil {
		s.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", s.lang))
		return errors.WithMessage(err, "cant evaluate text submission")
	}
	observability.RecordDecision(decision.Verdict.String())
	if decision.Verdict != moderation.VerdictAllowed {
		s.replyRejection(ctx, msg, decision)
		return nil
	}

	if text == "" {
		s.reply(ctx, msg, i18n.Get("Please provide text after /send to post to the channel.", s.lang))
		return nil
	}

	// Pacing delay smooths bursts of near-simultaneous submissions.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.PacingDelay):
	}

	payload := html.EscapeString(text) + "\n" + s.signature(user)
	if err := s.ops.SendText(ctx, s.cfg.ChannelID, payload); err != nil {
		s.getLogEntry().WithError(err).Error("cant post text to channel")
		s.reply(ctx, msg, fmt.Sprintf(
			i18n.Get("Failed to post the text to the channel: %s", s.lang), err,
		))
		return nil
	}
	s.reply(ctx, msg, i18n.Get("The text was successfully posted to the channel.", s.lang))
	return nil
}

func (s *Submission) handleMedia(ctx context.Context, msg *api.Message, user *api.User) error {
	decision, err := s.gate.Evaluate(ctx, user.ID, "")
	if err != nil {
		s.reply(ctx, msg, i18n.Get("Something went wrong, please try again later.", s.lang))
		return errors.WithMessage(err, "cant evaluate media submission")
	}
	observability.RecordDecision(decision.Verdict.String())
	if decision.Verdict != moderation.VerdictAllowed {
		s.replyRejection(ctx, msg, decision)
		return nil
	}

	fileID, kind, ok := extractMedia(msg.ReplyToMessage)
	if !ok {
		s.reply(ctx, msg, i18n.Get("Please reply to a media message (photo, video, GIF or sticker) to use /media.", s.lang))
		return nil
	}

	path, err := s.ops.Download(ctx, fileID)
	if err != nil {
		s.getLogEntry().WithField("kind", kind).WithError(err).Error("cant stage media")
		s.reply(ctx, msg, fmt.Sprintf(i18n.Get("Failed to process the media: %s", s.lang), err))
		return nil
	}

	delivery := publish.Delivery{
		LocalPath: path,
		Signature: s.signature(user),
		Kind:      kind,
	}
	if err := s.queue.Enqueue(delivery); err != nil {
		// The abandoned attempt releases its staged file.
		_ = os.Remove(path)
		s.getLogEntry().WithField("kind", kind).WithError(err).Error("cant enqueue media")
		s.reply(ctx, msg, fmt.Sprintf(i18n.Get("Failed to process the media: %s", s.lang), err))
		return nil
	}
	observability.SetQueueDepth(s.queue.Len())

	s.reply(ctx, msg, i18n.Get("The media will be posted within the next few seconds.", s.lang))
	return nil
}

func (s *Submission) replyRejection(ctx context.Context, msg *api.Message, decision moderation.Decision) {
	switch decision.Verdict {
	case moderation.VerdictRestricted:
		s.reply(ctx, msg, i18n.Get("Sorry, sending messages is currently restricted.", s.lang))
	case moderation.VerdictBlacklisted:
		s.reply(ctx, msg, fmt.Sprintf(
			i18n.Get("You have been banned.\nReason: %s\nBanned at: %s", s.lang),
			decision.Reason,
			decision.BannedAt.Format(time.DateTime),
		))
	case moderation.VerdictBannedContent:
		s.reply(ctx, msg, i18n.Get("Your message contains banned words and cannot be posted to the channel.", s.lang))
	}
}

// signature is the line appended to every republished submission,
// identifying the original submitter.
func (s *Submission) signature(user *api.User) string {
	mention := ""
	if user.UserName != "" {
		mention = "@" + user.UserName
	} else {
		fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
		mention = fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, user.ID, html.EscapeString(fullName))
	}
	return fmt.Sprintf(i18n.Get("Submitted by: %s", s.lang), mention)
}

func (s *Submission) reply(ctx context.Context, msg *api.Message, text string) {
	if err := s.ops.Reply(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		s.getLogEntry().WithError(err).Warn("cant reply to submitter")
	}
}

func (s *Submission) getLogEntry() *log.Entry {
	return log.WithField("context", "submission")
}

func extractMedia(msg *api.Message) (string, publish.Kind, bool) {
	if msg == nil {
		return "", "", false
	}
	switch {
	case len(msg.Photo) > 0:
		return msg.Photo[len(msg.Photo)-1].FileID, publish.KindPhoto, true
	case msg.Video != nil:
		return msg.Video.FileID, publish.KindVideo, true
	case msg.Animation != nil:
		return msg.Animation.FileID, publish.KindAnimation, true
	case msg.Sticker != nil:
		return msg.Sticker.FileID, publish.KindSticker, true
	}
	return "", "", false
}
