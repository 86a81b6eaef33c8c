// Package pipeline turns an inbound chat message into a reply with every
// detected link shortened with the chat's own API token.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/links"
	"github.com/serroba/linkbot/internal/shortener"
	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NoticeMode controls how many missing-token notices one message produces.
type NoticeMode string

const (
	NoticePerLink    NoticeMode = "per-link"
	NoticePerMessage NoticeMode = "per-message"
)

const DefaultMissingTokenNotice = "Please set up your API token first.\nUse: /setapi YOUR_API_TOKEN"

// Orchestrator runs extract, resolve, substitute and deliver for one message.
type Orchestrator struct {
	detector      links.Detector
	tokens        tokens.Store
	shortener     shortener.Shortener
	sender        chat.Sender
	substitute    links.Substituter
	concurrency   int
	noticeMode    NoticeMode
	noticeText    string
	observer      Observer
	generateRunID func() string
	logger        *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLinkConcurrency resolves up to n links of one message at a time.
// Values below 2 keep resolution strictly sequential.
func WithLinkConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithNoticeMode sets how missing-token notices are emitted.
func WithNoticeMode(mode NoticeMode) Option {
	return func(o *Orchestrator) {
		o.noticeMode = mode
	}
}

// WithNoticeText overrides the missing-token notice.
func WithNoticeText(text string) Option {
	return func(o *Orchestrator) {
		o.noticeText = text
	}
}

// WithSubstitution selects the substitution algorithm.
func WithSubstitution(mode links.Mode) Option {
	return func(o *Orchestrator) {
		o.substitute = links.SubstituterFor(mode)
	}
}

// WithObserver registers an observer for link and message outcomes.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithRunIDGenerator sets the generator for per-message run ids.
func WithRunIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		o.generateRunID = gen
	}
}

// New creates an orchestrator. By default links are resolved sequentially,
// substitution is positional and one notice is sent per message.
func New(
	detector links.Detector,
	store tokens.Store,
	short shortener.Shortener,
	sender chat.Sender,
	logger *zap.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		detector:      detector,
		tokens:        store,
		shortener:     short,
		sender:        sender,
		substitute:    links.Substitute,
		concurrency:   1,
		noticeMode:    NoticePerMessage,
		noticeText:    DefaultMissingTokenNotice,
		observer:      nopObserver{},
		generateRunID: func() string { return "" },
		logger:        logger,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Process handles one message. A message without links ends in StateNoLinks
// and nothing is sent. Per-link failures never abort the message; the only
// error returned is a failed reply delivery.
func (o *Orchestrator) Process(ctx context.Context, msg chat.Message) (*Outcome, error) {
	out := &Outcome{RunID: o.generateRunID(), State: StateIdle}
	logger := o.logger.With(
		zap.String("run", out.RunID),
		zap.Int64("chat_id", int64(msg.ChatID)),
		zap.Int("message_id", msg.MessageID),
	)

	text := msg.ScanText()

	candidates := o.detector.Detect(text)
	if len(candidates) == 0 {
		out.State = StateNoLinks
		o.observer.MessageProcessed(out.State)

		return out, nil
	}

	out.State = StateLinksDetected
	logger.Debug("links detected", zap.Int("count", len(candidates)))

	out.State = StateResolving
	out.Results = o.resolve(ctx, msg.ChatID, candidates, logger)
	out.Notices = o.notify(ctx, msg.ChatID, out.Results, logger)

	replacements := make([]string, len(out.Results))
	for i, r := range out.Results {
		replacements[i] = r.Text()
	}

	out.Text = o.substitute(text, candidates, replacements)
	out.State = StateSubstituted

	reply := chat.OutboundMessage{ChatID: msg.ChatID, Text: out.Text, ReplyTo: msg.MessageID}
	if err := o.sender.Send(ctx, reply); err != nil {
		o.observer.MessageProcessed(out.State)

		return out, fmt.Errorf("deliver reply: %w", err)
	}

	out.State = StateDelivered
	o.observer.MessageProcessed(out.State)

	logger.Info("message processed", zap.Int("links", len(candidates)), zap.Int("notices", out.Notices))

	return out, nil
}

func (o *Orchestrator) resolve(
	ctx context.Context, chatID chat.ID, candidates []links.Candidate, logger *zap.Logger,
) []Result {
	results := make([]Result, len(candidates))

	if o.concurrency < 2 {
		for i, c := range candidates {
			results[i] = o.resolveOne(ctx, chatID, c, logger)
		}

		return results
	}

	var g errgroup.Group

	g.SetLimit(o.concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			results[i] = o.resolveOne(ctx, chatID, c, logger)

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (o *Orchestrator) resolveOne(ctx context.Context, chatID chat.ID, c links.Candidate, logger *zap.Logger) Result {
	start := time.Now()
	result := o.shorten(ctx, chatID, c, logger)
	o.observer.LinkResolved(result.Status, time.Since(start))

	return result
}

func (o *Orchestrator) shorten(ctx context.Context, chatID chat.ID, c links.Candidate, logger *zap.Logger) Result {
	token, err := o.tokens.Get(ctx, chatID)
	if err != nil {
		if !errors.Is(err, tokens.ErrNotFound) {
			logger.Error("token lookup failed", zap.Error(err))
		}

		return Result{Candidate: c, Status: StatusMissingToken, Err: shortener.ErrMissingToken}
	}

	short, err := o.shortener.Shorten(ctx, token, c.Raw)
	switch {
	case errors.Is(err, shortener.ErrMissingToken):
		return Result{Candidate: c, Status: StatusMissingToken, Err: err}
	case err != nil:
		logger.Warn("shorten failed", zap.String("url", c.Raw), zap.Error(err))

		return Result{Candidate: c, Status: StatusFailed, Err: err}
	default:
		return Result{Candidate: c, Resolved: short, Status: StatusResolved}
	}
}

// notify sends missing-token notices in candidate order and returns how many
// were sent.
func (o *Orchestrator) notify(ctx context.Context, chatID chat.ID, results []Result, logger *zap.Logger) int {
	missing := 0

	for _, r := range results {
		if r.Status == StatusMissingToken {
			missing++
		}
	}

	if missing == 0 {
		return 0
	}

	if o.noticeMode != NoticePerLink {
		missing = 1
	}

	sent := 0

	for range missing {
		if err := o.sender.Send(ctx, chat.OutboundMessage{ChatID: chatID, Text: o.noticeText}); err != nil {
			logger.Warn("failed to send missing token notice", zap.Error(err))

			continue
		}

		sent++
	}

	return sent
}
