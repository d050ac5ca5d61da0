// Package delivery pushes one unseen article per day to every registered
// profile in the profile's language.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/traveler/internal/i18n"
	"github.com/zulandar/traveler/internal/store"
	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
)

// Trigger sources recorded on a Result.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// Result summarizes one delivery pass.
type Result struct {
	RunID      string
	Trigger    string
	Status     string
	Profiles   int
	Delivered  int
	NoArticles int
	Failed     int
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunRecorder journals delivery passes. Recorder failures are logged and
// never abort a pass.
type RunRecorder interface {
	BeginRun(ctx context.Context, res Result) error
	FinishRun(ctx context.Context, res Result) error
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeNoArticles
	outcomeFailed
)

// Deliverer runs delivery passes against the stores.
type Deliverer struct {
	profiles store.ProfileStore
	content  store.ContentStore
	sender   telegraph.Sender
	recorder RunRecorder
	clock    Clock
	logger   *zap.Logger
}

// DelivererOpts holds parameters for creating a Deliverer.
type DelivererOpts struct {
	Profiles store.ProfileStore
	Content  store.ContentStore
	Sender   telegraph.Sender
	Recorder RunRecorder // optional
	Clock    Clock       // defaults to the system clock
	Logger   *zap.Logger // defaults to zap.NewNop()
}

// NewDeliverer creates a Deliverer.
func NewDeliverer(opts DelivererOpts) (*Deliverer, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("delivery: profile store is required")
	}
	if opts.Content == nil {
		return nil, fmt.Errorf("delivery: content store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("delivery: sender is required")
	}
	d := &Deliverer{
		profiles: opts.Profiles,
		content:  opts.Content,
		sender:   opts.Sender,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if d.clock == nil {
		d.clock = systemClock{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d, nil
}

// RunPass delivers at most one article to every profile. It returns an error
// only when the pass is abandoned before any profile is visited or when ctx
// is cancelled mid-pass; per-profile failures are counted in the Result.
func (d *Deliverer) RunPass(ctx context.Context, trigger string) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: d.clock.Now(),
	}
	log := d.logger.With(zap.String("run", res.RunID), zap.String("trigger", trigger))
	d.begin(ctx, log, res)

	profiles, err := d.profiles.ListProfiles(ctx)
	if err != nil {
		return d.abort(ctx, log, res, fmt.Errorf("delivery: list profiles: %w", err))
	}
	articles, err := d.content.ListArticles(ctx)
	if err != nil {
		return d.abort(ctx, log, res, fmt.Errorf("delivery: list articles: %w", err))
	}
	log.Info("delivery pass started",
		zap.Int("profiles", len(profiles)), zap.Int("articles", len(articles)))

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return d.abort(ctx, log, res, fmt.Errorf("delivery: pass interrupted: %w", err))
		}
		res.Profiles++
		switch d.deliverTo(ctx, log, p, articles) {
		case outcomeDelivered:
			res.Delivered++
		case outcomeNoArticles:
			res.NoArticles++
		case outcomeFailed:
			res.Failed++
		}
	}

	res.Status = StatusCompleted
	res.FinishedAt = d.clock.Now()
	d.finish(ctx, log, res)
	log.Info("delivery pass finished",
		zap.Int("delivered", res.Delivered),
		zap.Int("no_articles", res.NoArticles),
		zap.Int("failed", res.Failed))
	return res, nil
}

// deliverTo sends the first unseen article in the profile's language, or
// the "no articles" notice when there is none. A send failure stops the
// scan for this profile; the next article waits for the next pass.
func (d *Deliverer) deliverTo(ctx context.Context, log *zap.Logger, p store.Profile, articles []store.Article) outcome {
	log = log.With(zap.String("chat", p.ChatID))

	article, ok := firstUnseen(articles, p)
	if !ok {
		err := d.sender.Send(ctx, telegraph.OutboundMessage{
			ChatID: p.ChatID,
			Text:   i18n.Text(p.LanguageCode, i18n.NoArticles),
		})
		if err != nil {
			log.Warn("send no-articles notice failed", zap.Error(err))
			return outcomeFailed
		}
		return outcomeNoArticles
	}

	log = log.With(zap.Int64("article", article.ID))
	err := d.sender.Send(ctx, telegraph.OutboundMessage{
		ChatID:   p.ChatID,
		Text:     article.Text,
		ImageURL: article.ImageURL,
	})
	if errors.Is(err, telegraph.ErrInvalidImage) {
		log.Warn("article image rejected", zap.String("image", article.ImageURL), zap.Error(err))
		return outcomeFailed
	}
	if err != nil {
		log.Warn("send article failed", zap.Error(err))
		return outcomeFailed
	}

	if err := d.content.MarkDelivered(ctx, article.ID, p); err != nil {
		// The user has the article; it may be sent again next pass.
		log.Error("mark delivered failed", zap.Error(err))
	}
	return outcomeDelivered
}

// firstUnseen scans articles in store order.
func firstUnseen(articles []store.Article, p store.Profile) (store.Article, bool) {
	for _, a := range articles {
		if a.LanguageCode == p.LanguageCode && !a.DeliveredToChat(p.ChatID) {
			return a, true
		}
	}
	return store.Article{}, false
}

func (d *Deliverer) abort(ctx context.Context, log *zap.Logger, res *Result, err error) (*Result, error) {
	res.Status = StatusAborted
	res.Err = err.Error()
	res.FinishedAt = d.clock.Now()
	log.Error("delivery pass aborted", zap.Error(err))
	// Journal even when ctx is cancelled so the run is not left "running".
	d.finish(context.WithoutCancel(ctx), log, res)
	return res, err
}

func (d *Deliverer) begin(ctx context.Context, log *zap.Logger, res *Result) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.BeginRun(ctx, *res); err != nil {
		log.Warn("journal run start failed", zap.Error(err))
	}
}

func (d *Deliverer) finish(ctx context.Context, log *zap.Logger, res *Result) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.FinishRun(ctx, *res); err != nil {
		log.Warn("journal run finish failed", zap.Error(err))
	}
}
