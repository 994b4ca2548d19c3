package crawl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buslistings/bus-scraper/internal/fetch"
	"github.com/buslistings/bus-scraper/internal/models"
)

// Executor runs a fetch for a URL and returns its terminal outcome.
// Implemented by fetch.RetryInterceptor.
type Executor interface {
	Execute(ctx context.Context, url string) fetch.Outcome
}

// ExtractResult is what the page extractor finds in one page body.
type ExtractResult struct {
	Records    []models.ListingRecord
	DetailURLs []string
}

// Extractor turns a raw page body into records and follow-up detail URLs.
// It is a pure function of its inputs; the page URL is passed so detail
// records can carry their own source URL and relative links can resolve.
type Extractor interface {
	Extract(pageURL, pageBody string, kind PageKind) (*ExtractResult, error)
}

// Sink receives every extracted record. Implemented by the persistence
// pipeline (deduplication included).
type Sink interface {
	Ingest(ctx context.Context, record models.ListingRecord) (int64, error)
}

// Summary is the terminal accounting of one crawl run.
type Summary struct {
	RunID             string
	Succeeded         int
	PermanentlyFailed int
	ParseErrors       int
	RecordsPersisted  int
	PersistFailures   int
	Aborted           bool
	Elapsed           time.Duration
}

// Scheduler owns the frontier and dispatches tasks to a bounded worker
// pool. It is the only component that enqueues work.
type Scheduler struct {
	executor  Executor
	extractor Extractor
	sink      Sink
	logger    *slog.Logger

	maxWorkers int

	frontier *Frontier
	seen     *seenSet
	pending  sync.WaitGroup

	mu      sync.Mutex
	summary Summary
}

func NewScheduler(executor Executor, extractor Extractor, sink Sink, maxWorkers int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		executor:   executor,
		extractor:  extractor,
		sink:       sink,
		logger:     logger,
		maxWorkers: maxWorkers,
		frontier:   NewFrontier(),
		seen:       newSeenSet(),
	}
}

// Run crawls from the seed URL until every task reaches a terminal state or
// the context is cancelled. It returns the run summary; the summary's
// Aborted flag is set when cancellation cut the run short.
func (s *Scheduler) Run(ctx context.Context, seedURL string) (Summary, error) {
	runID := uuid.New().String()
	start := time.Now()

	s.mu.Lock()
	s.summary = Summary{RunID: runID}
	s.mu.Unlock()

	s.logger.Info("crawl run starting", "run_id", runID, "seed", seedURL, "workers", s.maxWorkers)

	s.enqueue(&Task{URL: seedURL, Kind: KindListing, EnqueuedAt: time.Now()})

	// Close the frontier once every enqueued task has fully completed,
	// follow-up enqueues included.
	go func() {
		s.pending.Wait()
		s.frontier.Close()
	}()

	var workers sync.WaitGroup
	for i := 0; i < s.maxWorkers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			s.workerLoop(ctx, id)
		}(i)
	}
	workers.Wait()

	// Terminal fields land in the shared summary so Stats sees them too.
	s.mu.Lock()
	s.summary.Aborted = ctx.Err() != nil
	s.summary.Elapsed = time.Since(start)
	summary := s.summary
	s.mu.Unlock()

	s.logger.Info("crawl run finished",
		"run_id", runID,
		"succeeded", summary.Succeeded,
		"failed", summary.PermanentlyFailed,
		"parse_errors", summary.ParseErrors,
		"persisted", summary.RecordsPersisted,
		"persist_failures", summary.PersistFailures,
		"aborted", summary.Aborted,
		"elapsed", summary.Elapsed)

	if summary.Aborted {
		return summary, ctx.Err()
	}
	return summary, nil
}

// Stats returns a snapshot of the run counters for the status API.
func (s *Scheduler) Stats() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Scheduler) workerLoop(ctx context.Context, id int) {
	for {
		task, err := s.frontier.Pop(ctx)
		if err != nil {
			if !errors.Is(err, ErrFrontierClosed) && !errors.Is(err, context.Canceled) {
				s.logger.Error("frontier pop failed", "worker", id, "error", err)
			}
			// On cancellation, queued-but-undispatched tasks are dropped;
			// release their pending slots so Run can terminate.
			s.drainPending(ctx)
			return
		}
		s.process(ctx, task)
		s.pending.Done()
	}
}

// process drives one task through its state machine.
func (s *Scheduler) process(ctx context.Context, task *Task) {
	state := StatePending
	state = s.advance(task, state, StateInFlight)

	outcome := s.executor.Execute(ctx, task.URL)
	task.Attempt = outcome.Attempts

	switch outcome.Kind {
	case fetch.OutcomeSuccess:
		s.handleSuccess(ctx, task, outcome)
		s.advance(task, state, StateSucceeded)
		s.count(func(sum *Summary) { sum.Succeeded++ })
	default:
		// The interceptor converts exhausted transient failures into
		// permanent ones, so anything non-success here is terminal.
		s.logger.Warn("task permanently failed, dropping",
			"url", task.URL,
			"kind", task.Kind.String(),
			"attempts", task.Attempt,
			"reason", outcome.Reason)
		s.advance(task, state, StatePermanentlyFailed)
		s.count(func(sum *Summary) { sum.PermanentlyFailed++ })
	}
}

func (s *Scheduler) handleSuccess(ctx context.Context, task *Task, outcome fetch.Outcome) {
	result, err := s.extractor.Extract(task.URL, outcome.Body, task.Kind)
	if err != nil {
		// The page itself was fetched fine; a parse failure skips the
		// record without triggering a fetch retry.
		s.logger.Warn("extractor failed, skipping page", "url", task.URL, "error", err)
		s.count(func(sum *Summary) { sum.ParseErrors++ })
		return
	}

	for _, record := range result.Records {
		busID, err := s.sink.Ingest(ctx, record)
		if err != nil {
			s.logger.Error("persist failed for record",
				"url", task.URL,
				"source_url", record.SourceURL,
				"error", err)
			s.count(func(sum *Summary) { sum.PersistFailures++ })
			continue
		}
		s.count(func(sum *Summary) { sum.RecordsPersisted++ })
		s.logger.Debug("record persisted", "bus_id", busID, "source_url", record.SourceURL)
	}

	// Detail pages are only discovered on listing pages; causal ordering
	// holds because the parent fetch completed before this enqueue.
	for _, detailURL := range result.DetailURLs {
		if !s.seen.add(detailURL) {
			continue
		}
		s.enqueue(&Task{
			URL:        detailURL,
			Kind:       KindDetail,
			ParentURL:  task.URL,
			EnqueuedAt: time.Now(),
		})
	}
}

func (s *Scheduler) enqueue(task *Task) {
	s.pending.Add(1)
	if err := s.frontier.Push(task); err != nil {
		s.pending.Done()
		s.logger.Error("enqueue after close dropped", "url", task.URL)
	}
}

// drainPending releases pending slots for tasks that will never run because
// the run was cancelled.
func (s *Scheduler) drainPending(ctx context.Context) {
	if ctx.Err() == nil {
		return
	}
	for {
		task, err := s.frontier.Pop(context.Background())
		if err != nil {
			return
		}
		s.logger.Debug("dropping undispatched task", "url", task.URL)
		s.pending.Done()
	}
}

func (s *Scheduler) advance(task *Task, from, to State) State {
	if !validTransition(from, to) {
		s.logger.Error("invalid task transition",
			"url", task.URL, "from", from.String(), "to", to.String())
		return from
	}
	return to
}

func (s *Scheduler) count(update func(*Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.summary)
}
