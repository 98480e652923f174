package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/vkozyrev/chanrelay/internal/db"
)

type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictRestricted
	VerdictBlacklisted
	VerdictBannedContent
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictRestricted:
		return "restricted"
	case VerdictBlacklisted:
		return "blacklisted"
	case VerdictBannedContent:
		return "banned_content"
	}
	return "unknown"
}

// Decision carries what a reply to the submitter needs and nothing more.
// Reason and BannedAt are set only for VerdictBlacklisted.
type Decision struct {
	Verdict  Verdict
	Reason   string
	BannedAt time.Time
}

type policyStore interface {
	IsRestricted(ctx context.Context, subjectID int64) (bool, error)
	GetBlacklistEntry(ctx context.Context, userID int64) (*db.BlacklistEntry, error)
}

// Gate composes the restriction store, the blacklist store and the banword
// matcher into a single accept/reject decision. It has no side effects.
type Gate struct {
	store policyStore
	words *BanwordMatcher
}

func NewGate(store policyStore, words *BanwordMatcher) *Gate {
	return &Gate{store: store, words: words}
}

// Evaluate runs the checks in fixed order, short-circuiting at the first
// non-allowed outcome: restriction, blacklist, banwords. An empty text
// marks a media submission, which is never screened against the word list.
func (g *Gate) Evaluate(ctx context.Context, submitterID int64, text string) (Decision, error) {
	restricted, err := g.store.IsRestricted(ctx, submitterID)
	if err != nil {
		return Decision{}, errors.WithMessage(err, "restriction check")
	}
	if restricted {
		return Decision{Verdict: VerdictRestricted}, nil
	}

	entry, err := g.store.GetBlacklistEntry(ctx, submitterID)
	if err != nil {
		return Decision{}, errors.WithMessage(err, "blacklist check")
	}
	if entry != nil {
		return Decision{
			Verdict:  VerdictBlacklisted,
			Reason:   entry.Reason,
			BannedAt: entry.CreatedTime(),
		}, nil
	}

	if text != "" && g.words.Matches(text) {
		return Decision{Verdict: VerdictBannedContent}, nil
	}

	return Decision{Verdict: VerdictAllowed}, nil
}
