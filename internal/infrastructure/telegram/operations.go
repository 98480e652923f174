package telegram

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vkozyrev/chanrelay/internal/publish"
)

// Operations wraps the bot API with the outbound calls the relay needs:
// replies to submitters, channel sends and media staging.
type Operations struct {
	bot        *api.BotAPI
	channelID  int64
	stagingDir string
	httpClient *http.Client
}

func NewOperations(bot *api.BotAPI, channelID int64, stagingDir string) *Operations {
	return &Operations{
		bot:        bot,
		channelID:  channelID,
		stagingDir: stagingDir,
		httpClient: http.DefaultClient,
	}
}

// Reply answers a submitter in their private chat.
func (o *Operations) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		msg := api.NewMessage(chatID, text)
		msg.ReplyParameters = api.ReplyParameters{
			MessageID:                messageID,
			AllowSendingWithoutReply: true,
		}
		if _, err := o.bot.Send(msg); err != nil {
			return errors.WithMessage(err, "cant reply")
		}
		return nil
	}
}

// SendText delivers HTML-formatted text to an arbitrary chat.
func (o *Operations) SendText(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		msg := api.NewMessage(chatID, text)
		msg.ParseMode = api.ModeHTML
		if _, err := o.bot.Send(msg); err != nil {
			return errors.WithMessage(err, "cant send text")
		}
		return nil
	}
}

// SendMedia delivers one staged attachment to the broadcast channel with the
// submitter signature as caption. Stickers carry no caption.
func (o *Operations) SendMedia(ctx context.Context, d publish.Delivery) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	file := api.FilePath(d.LocalPath)
	var c api.Chattable
	switch d.Kind {
	case publish.KindPhoto:
		cfg := api.NewPhoto(o.channelID, file)
		cfg.Caption = d.Signature
		cfg.ParseMode = api.ModeHTML
		c = cfg
	case publish.KindVideo:
		cfg := api.NewVideo(o.channelID, file)
		cfg.Caption = d.Signature
		cfg.ParseMode = api.ModeHTML
		c = cfg
	case publish.KindAnimation:
		cfg := api.NewAnimation(o.channelID, file)
		cfg.Caption = d.Signature
		cfg.ParseMode = api.ModeHTML
		c = cfg
	case publish.KindSticker:
		c = api.NewSticker(o.channelID, file)
	default:
		return errors.Errorf("unsupported media kind %q", d.Kind)
	}

	if _, err := o.bot.Send(c); err != nil {
		return errors.WithMessagef(err, "cant send %s", d.Kind)
	}
	return nil
}

// Download stages an attachment into a uniquely named file the publish
// queue takes ownership of.
func (o *Operations) Download(ctx context.Context, fileID string) (string, error) {
	file, err := o.bot.GetFile(api.FileConfig{FileID: fileID})
	if err != nil {
		return "", errors.WithMessage(err, "cant resolve file")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(o.bot.Token), nil)
	if err != nil {
		return "", errors.WithMessage(err, "cant build download request")
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", errors.WithMessage(err, "cant download file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected download status %s", resp.Status)
	}

	if err := os.MkdirAll(o.stagingDir, 0o755); err != nil {
		return "", errors.WithMessage(err, "cant create staging dir")
	}
	path := filepath.Join(o.stagingDir, uuid.New()+filepath.Ext(file.FilePath))
	out, err := os.Create(path)
	if err != nil {
		return "", errors.WithMessage(err, "cant create staged file")
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", errors.WithMessage(err, "cant write staged file")
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.WithMessage(err, "cant close staged file")
	}
	return path, nil
}
