package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw chat requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Responder answers one chat request. *dialogue.Engine implements it.
type Responder interface {
	Handle(ctx context.Context, req domain.ChatRequest) (domain.Reply, error)
}

// BatchLoader writes multiple replies to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, replies []domain.ReplyMessage) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used to stamp replies.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithConcurrency bounds how many conversations of one batch are answered
// at the same time. Values below 1 mean no limit.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) { p.concurrency = n }
}

// Pipeline orchestrates the extract-answer-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	responder   Responder
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	batchSize   int
	concurrency int
}

// pending is a parsed request together with its source message.
type pending struct {
	raw domain.RawMessage
	req domain.ChatRequest
	pos int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, r Responder, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		responder:   r,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		batchSize:   batchSize,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil if the pipeline has answered at least one message,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not answered any messages yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "concurrency", p.concurrency)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-answer-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.answerAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// answerAndLoad parses the batch, answers each conversation, loads the
// replies, and commits offsets. Returns the number of loaded replies and
// false if the pipeline should stop.
func (p *Pipeline) answerAndLoad(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	items := make([]pending, 0, len(rawBatch))
	for _, raw := range rawBatch {
		req, err := ParseRequest(raw)
		if err != nil {
			p.logger.Warn("invalid chat request, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.InvalidRequests.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		items = append(items, pending{raw: raw, req: req, pos: len(items)})
	}

	if len(items) == 0 {
		return 0, true
	}

	replies, err := p.answer(ctx, items)
	if err != nil {
		// Only cancellation aborts answering; turn errors are carried in replies.
		return 0, false
	}

	if err := p.loader.LoadBatch(ctx, replies); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(replies))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.MessagesProduced.Add(float64(len(replies)))

	for _, it := range items {
		p.commitOffset(ctx, it.raw)
	}

	return len(replies), true
}

// answer runs each conversation group on its own goroutine. Turns within a
// group are handled in arrival order. Replies keep the order of items.
func (p *Pipeline) answer(ctx context.Context, items []pending) ([]domain.ReplyMessage, error) {
	replies := make([]domain.ReplyMessage, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for _, group := range groupByConversation(items) {
		g.Go(func() error {
			for _, it := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				replies[it.pos] = p.respond(gctx, it)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return replies, nil
}

// respond answers one request. Engine errors become an error code on the
// reply so the client always hears back.
func (p *Pipeline) respond(ctx context.Context, it pending) domain.ReplyMessage {
	reply, err := p.responder.Handle(ctx, it.req)
	if err != nil {
		p.logger.Debug("turn returned error",
			"error", err,
			"conversation_id", it.req.ConversationID,
			"offset", it.raw.Offset,
		)
	}
	if reply.ConversationID == "" {
		reply.ConversationID = it.req.ConversationID
	}
	return domain.NewReplyMessage(reply, err, p.clock.Now())
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}
