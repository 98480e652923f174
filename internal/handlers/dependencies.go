package handlers

import (
	"context"

	"github.com/vkozyrev/chanrelay/internal/moderation"
)

// transport is the slice of the chat transport the handlers need: replies
// to the submitter, plain sends and attachment staging.
type transport interface {
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
	SendText(ctx context.Context, chatID int64, text string) error
	Download(ctx context.Context, fileID string) (string, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, submitterID int64, text string) (moderation.Decision, error)
}
