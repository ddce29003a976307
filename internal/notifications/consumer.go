package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketry/pkg/logger"

	"github.com/IBM/sarama"
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	Workers int
}

// Consumer runs a pool of consumer-group workers that turn queued
// notifications into emails.
type Consumer struct {
	group  sarama.ConsumerGroup
	cfg    ConsumerConfig
	sender EmailSender
	log    *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(cfg ConsumerConfig, sender EmailSender, log *logger.Logger) (*Consumer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{group: group, cfg: cfg, sender: sender, log: log}, nil
}

func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			c.log.Error("notification consumer error", "error", err.Error())
		}
	}()

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			handler := &groupHandler{sender: c.sender, log: c.log, workerID: workerID}
			for {
				if err := c.group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
					c.log.Error("notification consume loop failed", "worker", workerID, "error", err.Error())
				}
				if ctx.Err() != nil {
					return
				}
			}
		}(i)
	}
}

func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.group.Close()
	c.wg.Wait()
	return err
}

type groupHandler struct {
	sender   EmailSender
	log      *logger.Logger
	workerID int
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		n, err := FromJSON(message.Value)
		if err != nil {
			// Malformed messages are acknowledged and dropped; retrying
			// them would never succeed.
			h.log.Error("dropping malformed notification", "worker", h.workerID, "error", err.Error())
			session.MarkMessage(message, "")
			continue
		}

		if err := h.sender.Send(n); err != nil {
			h.log.Error("notification delivery failed",
				"worker", h.workerID,
				"type", string(n.Type),
				"recipient", n.RecipientEmail,
				"error", err.Error(),
			)
		}
		session.MarkMessage(message, "")
	}
	return nil
}
