package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	infrakafka "github.com/topautomaat/gallery-backend/internal/infrastructure/kafka"
	"github.com/topautomaat/gallery-backend/internal/usecase"
	"github.com/topautomaat/gallery-backend/pkg/logger"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

// EventReader is the consumer side used by the reconciler.
type EventReader interface {
	ReadEvent(ctx context.Context) (kafka.Message, error)
	CommitEvent(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaController consumes photo events and hands them to the reconciler.
type KafkaController struct {
	events usecase.PhotoEventUseCase
	er     EventReader
	logger logger.Interface

	commitTimeout  time.Duration
	processTimeout time.Duration

	maxAttempts  int
	retryBackoff time.Duration

	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	started atomic.Bool
}

func New(
	events usecase.PhotoEventUseCase,
	er EventReader,
	l logger.Interface,
	commitTimeout time.Duration,
	processTimeout time.Duration,
	workers int,
	maxAttempts int,
	retryBackoff time.Duration,
) *KafkaController {
	if workers < 1 {
		workers = 1
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &KafkaController{
		events:         events,
		er:             er,
		logger:         l,
		commitTimeout:  commitTimeout,
		processTimeout: processTimeout,
		maxAttempts:    maxAttempts,
		retryBackoff:   retryBackoff,
		workers:        workers,
	}
}

func (c *KafkaController) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - controller already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	tasks := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(tasks)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(tasks)

		for {
			select {
			case <-c.ctx.Done():
				return
			default:
				// 1. читаем из кафки
				msg, err := c.er.ReadEvent(c.ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						c.logger.Error(err, "KafkaController - Start - c.er.ReadEvent")
					}
					continue
				}

				// 2. отдаем воркерам
				select {
				case tasks <- msg:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}()

	return nil
}

// handle reports whether msg may be committed. A failing event is retried
// with backoff; once attempts run out it is logged for manual reconciliation
// and committed so the partition keeps moving.
func (c *KafkaController) handle(msg kafka.Message) bool {
	eventType := infrakafka.EventType(msg)
	backoff := c.retryBackoff

	var err error
	for attempt := 1; ; attempt++ {
		processCtx, processCancel := context.WithTimeout(c.ctx, c.processTimeout)
		err = c.events.Reconcile(processCtx, eventType, msg.Value)
		processCancel()

		switch {
		case err == nil:
			return true
		case errors.Is(err, errs.ErrUnknownEventType):
			// повтор не поможет, коммитим
			c.logger.Warnw("skipping photo event", "error", err, "offset", msg.Offset, "partition", msg.Partition)
			return true
		case c.ctx.Err() != nil:
			// остановка: не коммитим, событие придет снова после рестарта
			return false
		}

		if attempt >= c.maxAttempts {
			break
		}

		c.logger.Warnw("photo event failed, retrying",
			"error", err, "attempt", attempt, "offset", msg.Offset, "partition", msg.Partition)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return false
		}
		backoff *= 2
	}

	c.logger.Errorw("reconciliation required",
		"error", err,
		"event_type", eventType,
		"offset", msg.Offset,
		"partition", msg.Partition,
		"attempts", c.maxAttempts,
		"payload", string(msg.Value),
	)

	return true
}

func (c *KafkaController) worker(tasks <-chan kafka.Message) {
	defer c.wg.Done()

	for msg := range tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(fmt.Errorf("panic %v", r), "KafkaController - worker - panic")
				}
			}()

			if !c.handle(msg) {
				return
			}

			// коммитим после успешной обработки
			commitCtx, commitCancel := context.WithTimeout(c.ctx, c.commitTimeout)
			err := c.er.CommitEvent(commitCtx, msg)
			commitCancel()
			if err != nil {
				c.logger.Error(err, "KafkaController - worker - c.er.CommitEvent")
			}
		}()
	}
}

func (c *KafkaController) Shutdown(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan error, 1)

	go func() {
		c.wg.Wait()
		done <- c.er.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("KafkaController - Shutdown - c.er.Close: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("KafkaController - Shutdown: %w", ctx.Err())
	}
}
