package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anisalabs/anisa-platform/internal/ai"
	"github.com/anisalabs/anisa-platform/internal/i18n"
	"github.com/anisalabs/anisa-platform/internal/observability/metrics"
	"github.com/anisalabs/anisa-platform/pkg/logging"
)

// ReplySink delivers results through the originating channel. Send
// must not fail for per-message delivery problems the engine cannot
// act on; an error here means delivery could not be attempted and the
// message should be redelivered.
type ReplySink interface {
	Send(ctx context.Context, userID string, result Result) error
	PromptTopUp(ctx context.Context, userID, language string) error
}

// Transcriber converts inbound voice notes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// AudioFetcher downloads inbound voice media.
type AudioFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, string, error)
}

// JobTracker records the terminal status of a message job. Tracking is
// advisory; failures are logged and never affect settlement.
type JobTracker interface {
	MarkCompleted(ctx context.Context, jobID string, result *Result) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
}

// Worker consumes the intake queue: credit gating, voice
// transcription, orchestration and delivery for each message.
type Worker struct {
	orch        *Orchestrator
	gate        *CreditGate
	sink        ReplySink
	transcriber Transcriber
	audio       AudioFetcher
	tracker     JobTracker
	metrics     *metrics.Metrics
	logger      *logging.Logger
	footer      bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithTranscription enables voice note handling.
func WithTranscription(t Transcriber, fetch AudioFetcher) WorkerOption {
	return func(w *Worker) {
		w.transcriber = t
		w.audio = fetch
	}
}

// WithJobTracker enables message-job status recording.
func WithJobTracker(t JobTracker) WorkerOption {
	return func(w *Worker) { w.tracker = t }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// WithCostFooter appends the token and cost summary to text replies.
func WithCostFooter(enabled bool) WorkerOption {
	return func(w *Worker) { w.footer = enabled }
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger *logging.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// NewWorker wires the per-message pipeline.
func NewWorker(orch *Orchestrator, gate *CreditGate, sink ReplySink, opts ...WorkerOption) *Worker {
	if orch == nil {
		panic("assistant: orchestrator cannot be nil")
	}
	if gate == nil {
		panic("assistant: credit gate cannot be nil")
	}
	if sink == nil {
		panic("assistant: reply sink cannot be nil")
	}
	w := &Worker{orch: orch, gate: gate, sink: sink, logger: logging.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process handles one raw queue message. A returned error asks the
// queue for redelivery; user-visible failures inside the pipeline are
// answered with an apology and settle successfully.
func (w *Worker) Process(ctx context.Context, body []byte) error {
	started := time.Now()

	msg, err := ParseInbound(body)
	if err != nil {
		// Malformed payloads can never succeed; settle instead of
		// redelivering them forever.
		w.logger.Error("dropping malformed queue message", "error", err)
		w.count("malformed")
		return nil
	}
	log := w.logger.WithUser(msg.UserID)
	language := i18n.DetectLanguage(msg.UserID)

	allowed, _, err := w.gate.Allow(ctx, msg.UserID, language)
	if err != nil {
		return err
	}
	if !allowed {
		if w.metrics != nil {
			w.metrics.CreditsDepleted.Inc()
		}
		if err := w.sink.PromptTopUp(ctx, msg.UserID, language); err != nil {
			return fmt.Errorf("assistant: failed to deliver top-up prompt: %w", err)
		}
		w.markFailed(ctx, msg.ID, "insufficient credits")
		w.count("no_credits")
		return nil
	}

	if msg.Kind == KindAudio {
		text, err := w.transcribe(ctx, msg)
		if err != nil {
			log.Error("voice transcription failed", "error", err)
			w.markFailed(ctx, msg.ID, "voice transcription failed")
			w.count("failed")
			return w.sink.Send(ctx, msg.UserID, textResult(genericErrorText, CapabilityChat, ai.Usage{}, 0))
		}
		msg.Text = text
		msg.Kind = KindText
		msg.MediaURL = ""
	}

	result := w.orch.Respond(ctx, msg)
	if !result.Empty() {
		delivered := result
		if w.footer && delivered.Kind == ResultText && delivered.Usage.TotalTokens > 0 {
			delivered.Text = fmt.Sprintf("%s\n\n📊 %d tokens • $%.4f", delivered.Text, delivered.Usage.TotalTokens, delivered.Cost)
		}
		if err := w.sink.Send(ctx, msg.UserID, delivered); err != nil {
			return fmt.Errorf("assistant: failed to deliver reply: %w", err)
		}
	}

	if _, err := w.gate.Consume(ctx, msg.UserID); err != nil {
		// The reply already went out; a failed decrement only costs us
		// revenue, not correctness.
		log.Error("failed to consume credit", "error", err)
	}

	w.markCompleted(ctx, msg.ID, result)
	w.observe(result, time.Since(started))
	return nil
}

func (w *Worker) markCompleted(ctx context.Context, jobID string, result Result) {
	if w.tracker == nil || jobID == "" {
		return
	}
	if err := w.tracker.MarkCompleted(ctx, jobID, &result); err != nil {
		w.logger.Error("failed to record job completion", "job_id", jobID, "error", err)
	}
}

func (w *Worker) markFailed(ctx context.Context, jobID, reason string) {
	if w.tracker == nil || jobID == "" {
		return
	}
	if err := w.tracker.MarkFailed(ctx, jobID, reason); err != nil {
		w.logger.Error("failed to record job failure", "job_id", jobID, "error", err)
	}
}

func (w *Worker) transcribe(ctx context.Context, msg InboundMessage) (string, error) {
	if w.transcriber == nil || w.audio == nil {
		return "", fmt.Errorf("assistant: voice messages are not enabled")
	}
	data, _, err := w.audio.FetchBytes(ctx, msg.MediaURL)
	if err != nil {
		return "", fmt.Errorf("assistant: failed to download voice note: %w", err)
	}
	return w.transcriber.Transcribe(ctx, "voice-note.ogg", data)
}

// ProcessBatch settles every message in the batch independently and
// returns the IDs of messages that must be redelivered. A failing
// message never aborts its siblings.
func (w *Worker) ProcessBatch(ctx context.Context, msgs []QueueMessage) []string {
	var (
		mu     sync.Mutex
		failed []string
		wg     sync.WaitGroup
	)
	for _, msg := range msgs {
		wg.Add(1)
		go func(m QueueMessage) {
			defer wg.Done()
			if err := w.Process(ctx, m.Body); err != nil {
				w.logger.Error("message processing failed", "message_id", m.ID, "error", err)
				mu.Lock()
				failed = append(failed, m.ID)
				mu.Unlock()
			}
		}(msg)
	}
	wg.Wait()
	return failed
}

// Run polls the queue until the context is cancelled. Successfully
// settled messages are deleted; the rest stay for redelivery after the
// visibility timeout.
func (w *Worker) Run(ctx context.Context, queue Queue) error {
	if queue == nil {
		panic("assistant: queue cannot be nil")
	}
	w.logger.Info("response worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("response worker stopping")
			return ctx.Err()
		default:
		}

		msgs, err := queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("queue receive failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		failed := w.ProcessBatch(ctx, msgs)
		failedSet := make(map[string]struct{}, len(failed))
		for _, id := range failed {
			failedSet[id] = struct{}{}
		}
		for _, msg := range msgs {
			if _, bad := failedSet[msg.ID]; bad {
				continue
			}
			if err := queue.Delete(ctx, msg.ReceiptHandle); err != nil {
				w.logger.Error("failed to delete settled message", "message_id", msg.ID, "error", err)
			}
		}
	}
}

func (w *Worker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.MessagesProcessed.WithLabelValues(outcome).Inc()
	}
}

func (w *Worker) observe(result Result, elapsed time.Duration) {
	w.count("ok")
	if w.metrics == nil {
		return
	}
	if result.Capability != "" {
		w.metrics.CapabilityRuns.WithLabelValues(string(result.Capability)).Inc()
	}
	w.metrics.ReplyCost.Observe(result.Cost)
	w.metrics.ProcessDuration.Observe(elapsed.Seconds())
}
