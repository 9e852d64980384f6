// Package recommend builds the per-contact context bundle, submits it to the
// recommendation collaborator and guards the view state against overlapping
// requests.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
)

// Request errors.
var (
	ErrBudgetInvalid = errors.New(config.ErrBudgetInvalid)
	// ErrSuperseded marks a response that arrived after a newer request for
	// the same contact was issued; its result is discarded, not applied.
	ErrSuperseded = errors.New(config.MsgRecommendStale)
)

// Collaborator is the external AI service converting a profile + budget into
// gift suggestions.
type Collaborator interface {
	RecommendGifts(ctx context.Context, prompt string) ([]engine.GiftRecommendation, error)
}

// Recommender runs recommendation requests and holds the per-contact result
// view (the ephemeral list shown beside a contact). Overlapping requests for
// one contact are resolved by issue order: only the most recently issued
// request may apply its response.
type Recommender struct {
	clock     engine.Clock
	collab    Collaborator
	translate func(string) string

	mu      sync.Mutex
	tokens  map[string]uint64
	results map[string][]engine.GiftRecommendation
	errs    map[string]string
}

// New wires a Recommender. translate resolves user-facing message keys.
func New(collab Collaborator, clock engine.Clock, translate func(string) string) *Recommender {
	return &Recommender{
		clock:     clock,
		collab:    collab,
		translate: translate,
		tokens:    make(map[string]uint64),
		results:   make(map[string][]engine.GiftRecommendation),
		errs:      make(map[string]string),
	}
}

// BuildPrompt renders the context bundle: profile, interests, allergies when
// present, the nearest upcoming event within the 30-day prompt window (fixed
// priority order), the full gift history and the budget.
func (r *Recommender) BuildPrompt(c engine.Contact, budget int) string {
	var b strings.Builder

	b.WriteString("다음은 제 연락처에 있는 사람의 정보입니다. 이 사람에게 줄 선물을 추천해주세요.\n\n")
	b.WriteString("### 연락처 정보\n")
	fmt.Fprintf(&b, "- **이름**: %s\n", c.Name)
	fmt.Fprintf(&b, "- **관계**: %s\n", r.translate(c.Relationship.LabelKey()))
	fmt.Fprintf(&b, "- **소속**: %s\n", c.Affiliation)
	fmt.Fprintf(&b, "- **관심사 및 취미**: %s\n", strings.Join(c.Interests, ", "))
	if len(c.Allergies) > 0 {
		fmt.Fprintf(&b, "- **알러지 정보**: %s\n", strings.Join(c.Allergies, ", "))
	}
	if event, ok := engine.NextEvent(c, r.clock.Now(), config.UpcomingWindowPromptDays); ok {
		fmt.Fprintf(&b, "- **다가오는 기념일**: %s (%d월 %d일)\n",
			r.translate(event.Kind.LabelKey()),
			int(event.Occurrence.Month()), event.Occurrence.Day())
	}
	fmt.Fprintf(&b, "- **과거 선물 기록**: %s\n", r.historyLine(c))
	fmt.Fprintf(&b, "- **나의 예산**: %d원\n\n", budget)

	fmt.Fprintf(&b, "이 정보를 바탕으로, 예산에 맞는 %d가지 선물을 추천해주세요. ", config.RecommendationCount)
	b.WriteString("각 선물에 대해 구체적인 아이템 이름, 카테고리, 그리고 이 사람에게 왜 좋은 선물인지 추천 이유를 간략하게 설명해주세요.\n")
	b.WriteString("과거에 선물했던 아이템은 제외하고, 창의적이고 사려 깊은 추천을 부탁합니다.\n")

	return b.String()
}

// historyLine joins past gift names, or the localized "none" word.
func (r *Recommender) historyLine(c engine.Contact) string {
	if len(c.GiftHistory) == 0 {
		return r.translate(config.TKeyHistoryNone)
	}
	names := make([]string, len(c.GiftHistory))
	for i, g := range c.GiftHistory {
		names[i] = g.Gift
	}
	return strings.Join(names, ", ")
}

// Request runs one recommendation round trip for the contact. Issuing a new
// request clears the contact's current list and error, per the view contract.
// When the call completes, the result is applied only if no newer request was
// issued in the meantime; a superseded response returns ErrSuperseded and
// changes nothing.
func (r *Recommender) Request(ctx context.Context, c engine.Contact, budget int) ([]engine.GiftRecommendation, error) {
	if budget <= 0 {
		return nil, ErrBudgetInvalid
	}

	token := r.issue(c.ID)
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompRecommend,
		config.LogKeyID, c.ID,
		config.LogKeyBudget, budget,
		config.LogKeyToken, token,
	)
	log.Debug(config.MsgRecommendStart)

	recs, err := r.collab.RecommendGifts(ctx, r.BuildPrompt(c, budget))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens[c.ID] != token {
		log.Debug(config.MsgRecommendStale)
		return nil, ErrSuperseded
	}

	if err != nil {
		// Stale suggestions must not outlive a failed refresh.
		delete(r.results, c.ID)
		r.errs[c.ID] = r.translate(config.TKeyErrRecommend)
		log.Warn(config.ErrRecommendation, config.LogKeyError, err)
		return nil, fmt.Errorf("%s: %w", config.ErrRecommendation, err)
	}

	r.results[c.ID] = recs
	delete(r.errs, c.ID)
	log.Debug(config.MsgRecommendDone,
		config.LogKeyCount, len(recs),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return recs, nil
}

// issue registers a new in-flight token for the contact and resets the view.
func (r *Recommender) issue(contactID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[contactID]++
	delete(r.results, contactID)
	delete(r.errs, contactID)
	return r.tokens[contactID]
}

// Recommendations returns the contact's current suggestion list, if any.
func (r *Recommender) Recommendations(contactID string) ([]engine.GiftRecommendation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs, ok := r.results[contactID]
	return recs, ok
}

// ErrorMessage returns the contact's current user-facing error, if any.
func (r *Recommender) ErrorMessage(contactID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.errs[contactID]
	return msg, ok
}

// Clear discards the contact's view state, e.g. when its detail view closes.
func (r *Recommender) Clear(contactID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.results, contactID)
	delete(r.errs, contactID)
}
