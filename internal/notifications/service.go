package notifications

import (
	"context"
	"strings"
	"time"

	"ticketry/internal/bookings"
	"ticketry/internal/reservations"
	"ticketry/internal/shared/config"
	"ticketry/pkg/logger"
)

// Service owns the notification pipeline: it publishes lifecycle
// messages to Kafka and runs the consumer workers that deliver them as
// emails. Publishing is fire and forget; a broker outage must never
// fail a booking. When the pipeline is disabled the service degrades
// to sending emails inline.
type Service struct {
	producer *Producer
	consumer *Consumer
	sender   EmailSender
	log      *logger.Logger
	enabled  bool
}

func NewService(cfg *config.Config, log *logger.Logger) (*Service, error) {
	sender := NewEmailSender(cfg.Email, log)
	svc := &Service{sender: sender, log: log}

	if !cfg.Kafka.Enabled {
		return svc, nil
	}

	producer, err := NewProducer(ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		RetryMax: 3,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	consumer, err := NewConsumer(ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.ConsumerGroupID,
		Topic:   cfg.Kafka.Topic,
		Workers: cfg.Kafka.ConsumerWorkers,
	}, sender, log)
	if err != nil {
		producer.Close()
		return nil, err
	}

	svc.producer = producer
	svc.consumer = consumer
	svc.enabled = true
	return svc, nil
}

func (s *Service) Start(ctx context.Context) {
	if s.enabled {
		s.consumer.Start(ctx)
	}
}

func (s *Service) Stop() {
	if !s.enabled {
		return
	}
	if err := s.consumer.Stop(); err != nil {
		s.log.Error("failed to stop notification consumer", "error", err.Error())
	}
	if err := s.producer.Close(); err != nil {
		s.log.Error("failed to close notification producer", "error", err.Error())
	}
}

func (s *Service) dispatch(n *Notification) {
	if !s.enabled {
		if err := s.sender.Send(n); err != nil {
			s.log.Error("inline notification delivery failed",
				"type", string(n.Type), "recipient", n.RecipientEmail, "error", err.Error())
		}
		return
	}
	go func() {
		if err := s.producer.Publish(n); err != nil {
			s.log.Error("notification publish failed",
				"type", string(n.Type), "recipient", n.RecipientEmail, "error", err.Error())
		}
	}()
}

// BookingConfirmed implements bookings.Notifier.
func (s *Service) BookingConfirmed(ctx context.Context, b *bookings.Booking) {
	n := NewNotification(TypeBookingConfirmed, b.UserEmail, b.UserName)
	n.EventID = b.EventID.String()
	n.BookingID = b.BookingID
	n.Data["seats"] = strings.Join(b.Seats, ", ")
	n.Data["quantity"] = b.Quantity
	n.Data["amountPaid"] = b.AmountPaid
	s.dispatch(n)
}

// BookingCancelled implements bookings.Notifier.
func (s *Service) BookingCancelled(ctx context.Context, b *bookings.Booking) {
	n := NewNotification(TypeBookingCancelled, b.UserEmail, b.UserName)
	n.EventID = b.EventID.String()
	n.BookingID = b.BookingID
	s.dispatch(n)
}

// ReservationExpired implements reservations.ExpiryNotifier.
func (s *Service) ReservationExpired(ctx context.Context, r *reservations.Reservation) {
	n := NewNotification(TypeReservationExpired, r.UserEmail, r.UserName)
	n.EventID = r.EventID.String()
	n.ReservationID = r.ID
	s.dispatch(n)
}
