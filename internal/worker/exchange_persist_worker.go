package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
	"tutorchat/internal/platform/rabbitmq"
)

var errInvalidExchange = errors.New("exchange is missing identity or course")

type ExchangeWriter interface {
	Create(exchange *model.Exchange) error
}

// ExchangePersistWorker drains the transcript queue into the database.
// Undecodable or unwritable messages are dropped without requeue.
type ExchangePersistWorker struct {
	conn      *amqp.Connection
	repo      ExchangeWriter
	queueName string
	logger    *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExchangePersistWorker(conn *amqp.Connection, repo ExchangeWriter, queueName string, log *logger.Logger) *ExchangePersistWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &ExchangePersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    log.With("component", "exchange_worker", "queue", queueName),
	}
}

func (w *ExchangePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.persist(d.Body); err != nil {
					w.logger.Error("persist exchange failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started")
	return nil
}

func (w *ExchangePersistWorker) persist(body []byte) error {
	var exchange model.Exchange
	if err := json.Unmarshal(body, &exchange); err != nil {
		return fmt.Errorf("decode exchange failed: %w", err)
	}
	if exchange.Identity == "" || exchange.CourseID == "" {
		return errInvalidExchange
	}
	// Rows get their ids from the database.
	exchange.ID = 0
	return w.repo.Create(&exchange)
}

func (w *ExchangePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
