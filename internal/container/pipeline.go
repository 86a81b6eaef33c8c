package container

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/bot"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/links"
	"github.com/serroba/linkbot/internal/metrics"
	"github.com/serroba/linkbot/internal/pipeline"
	"github.com/serroba/linkbot/internal/shortener"
	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
)

const runIDLength = 12

// ShortenerPackage provides shortener.Shortener.
func ShortenerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Shortener, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		timeout, err := parseDuration("shorten timeout", opts.ShortenTimeout)
		if err != nil {
			return nil, err
		}

		return shortener.NewClient(opts.ShortenerURL, logger, shortener.WithTimeout(timeout)), nil
	})
}

// MetricsPackage provides *metrics.Collector.
func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*metrics.Collector, error) {
		return metrics.NewCollector(), nil
	})
}

// PipelinePackage provides *pipeline.Orchestrator and *bot.Handler. Replies
// go through the chat.Sender from MessagingPackage.
func PipelinePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*pipeline.Orchestrator, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		mode := links.Mode(opts.Substitution)
		if mode != links.ModePositional && mode != links.ModeFirstOccurrence {
			return nil, fmt.Errorf("unknown substitution %q", opts.Substitution)
		}

		notice := pipeline.NoticeMode(opts.NoticeMode)
		if notice != pipeline.NoticePerMessage && notice != pipeline.NoticePerLink {
			return nil, fmt.Errorf("unknown notice mode %q", opts.NoticeMode)
		}

		runID, err := nanoid.Standard(runIDLength)
		if err != nil {
			return nil, fmt.Errorf("create run id generator: %w", err)
		}

		return pipeline.New(
			links.NewRegexDetector(links.DetectorOptions{BareDomains: opts.BareDomains}),
			do.MustInvoke[tokens.Store](i),
			do.MustInvoke[shortener.Shortener](i),
			do.MustInvoke[chat.Sender](i),
			logger,
			pipeline.WithSubstitution(mode),
			pipeline.WithNoticeMode(notice),
			pipeline.WithLinkConcurrency(opts.LinkConcurrency),
			pipeline.WithObserver(do.MustInvoke[*metrics.Collector](i)),
			pipeline.WithRunIDGenerator(runID),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*bot.Handler, error) {
		return bot.NewHandler(
			do.MustInvoke[tokens.Store](i),
			do.MustInvoke[*pipeline.Orchestrator](i),
			do.MustInvoke[chat.Sender](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}
