package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// QueueName is the RabbitMQ queue carrying activity events
const QueueName = "activity_logs"

// Recorder is implemented by anything that accepts activity events.
// Recording never fails the caller's request.
type Recorder interface {
	Record(ctx context.Context, entry models.ActivityLog)
}

// Store persists activity logs
type Store interface {
	Create(log *models.ActivityLog) error
	List(filter models.ActivityFilter, page, pageSize int) ([]models.ActivityLog, int64, error)
}

// Publisher sends a JSON message to a queue
type Publisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

// Service records activity either through RabbitMQ, when a publisher is
// configured, or by persisting and broadcasting directly.
type Service struct {
	store     Store
	hub       *SSEHub
	publisher Publisher
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

func NewService(store Store, hub *SSEHub, publisher Publisher) *Service {
	return &Service{
		store:     store,
		hub:       hub,
		publisher: publisher,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Record publishes the event, falling back to a direct write when the
// broker rejects it
func (s *Service) Record(ctx context.Context, entry models.ActivityLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, QueueName, entry)
		if err == nil {
			return
		}
		logrus.Warnf("Failed to publish activity %s, storing directly: %v", entry.Action, err)
	}
	if err := s.persist(&entry); err != nil {
		logrus.Errorf("Failed to record activity %s: %v", entry.Action, err)
	}
}

func (s *Service) persist(entry *models.ActivityLog) error {
	if err := s.store.Create(entry); err != nil {
		return fmt.Errorf("failed to save activity log: %w", err)
	}
	if s.hub != nil {
		s.hub.Broadcast(entry)
	}
	return nil
}

// StartConsumer persists and broadcasts events from deliveries until Stop
// is called or the channel closes
func (s *Service) StartConsumer(deliveries <-chan amqp.Delivery) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.stopChan:
				logrus.Info("Activity consumer stopped")
				return
			case msg, ok := <-deliveries:
				if !ok {
					logrus.Warn("Activity delivery channel closed")
					return
				}
				if err := s.handleMessage(msg.Body); err != nil {
					logrus.Errorf("Failed to process activity message: %v", err)
				}
			}
		}
	}()
	logrus.Infof("RabbitMQ consumer started for %s queue", QueueName)
}

// Stop stops the consumer and waits for it to exit
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.done != nil {
		<-s.done
	}
}

func (s *Service) handleMessage(body []byte) error {
	var entry models.ActivityLog
	if err := json.Unmarshal(body, &entry); err != nil {
		return fmt.Errorf("failed to unmarshal activity message: %w", err)
	}
	if entry.Action == "" {
		logrus.Warn("Skipping activity message without action")
		return nil
	}
	// IDs are assigned by the database
	entry.ID = ""
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	return s.persist(&entry)
}

// List returns a page of activity logs
func (s *Service) List(filter models.ActivityFilter, page, pageSize int) ([]models.ActivityLog, int64, error) {
	return s.store.List(filter, page, pageSize)
}

// Nop discards events
type Nop struct{}

func (Nop) Record(context.Context, models.ActivityLog) {}
