package service

import (
	"context"
	"sync"

	"github.com/medstock/medstock-backend/internal/inventory/events"
	"github.com/medstock/medstock-backend/pkg/logger"
)

// ScanRequest asks for the notification thresholds to be re-evaluated
type ScanRequest struct {
	Reason   string
	EntityID int64
}

// ScanQueue accepts scan requests from write paths. Writes enqueue after
// their transaction commits; a worker drains the queue.
type ScanQueue interface {
	Enqueue(ctx context.Context, req ScanRequest) error
}

// ScanRunner runs a full scan
type ScanRunner interface {
	ScanAll(ctx context.Context) error
}

// LocalScanQueue drains scan requests on an in-process goroutine. Requests
// arriving while one is pending collapse into it, since a scan always
// covers every entity.
type LocalScanQueue struct {
	runner  ScanRunner
	pending chan ScanRequest
	logger  *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLocalScanQueue creates a new in-process scan queue
func NewLocalScanQueue(runner ScanRunner, log *logger.Logger) *LocalScanQueue {
	return &LocalScanQueue{
		runner:  runner,
		pending: make(chan ScanRequest, 1),
		logger:  log.WithComponent("scan-queue"),
	}
}

// Enqueue never blocks
func (q *LocalScanQueue) Enqueue(_ context.Context, req ScanRequest) error {
	select {
	case q.pending <- req:
	default:
	}
	return nil
}

// Start starts the worker goroutine
func (q *LocalScanQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}

	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})

	go func() {
		defer close(q.done)
		q.logger.Info().Msg("scan worker started")
		for {
			select {
			case <-ctx.Done():
				q.logger.Info().Msg("scan worker stopped")
				return
			case req := <-q.pending:
				if err := q.runner.ScanAll(ctx); err != nil {
					q.logger.Error().Err(err).Str("reason", req.Reason).Msg("scan failed")
				}
			}
		}
	}()
}

// Stop stops the worker and waits for a running scan to finish
func (q *LocalScanQueue) Stop() {
	q.mu.Lock()
	cancel, done := q.cancel, q.done
	q.cancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// BrokerScanQueue publishes scan requests to RabbitMQ; the scan consumer
// runs them.
type BrokerScanQueue struct {
	publisher *events.InventoryEventPublisher
}

// NewBrokerScanQueue creates a broker-backed scan queue
func NewBrokerScanQueue(publisher *events.InventoryEventPublisher) *BrokerScanQueue {
	return &BrokerScanQueue{publisher: publisher}
}

// Enqueue publishes an inventory.scan.requested event
func (q *BrokerScanQueue) Enqueue(ctx context.Context, req ScanRequest) error {
	return q.publisher.PublishScanRequested(ctx, req.Reason, req.EntityID)
}
