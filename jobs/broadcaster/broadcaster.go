// Package broadcaster drains the trade outbox to the message bus.
package broadcaster

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"

	"quasar/infra/outbox"
)

// Broadcaster periodically scans the outbox for undelivered trades and
// ships them to Kafka. Delivery is at-least-once: an entry is marked
// SENT before the publish and ACKED only after the broker confirms, so
// a crash in between re-sends rather than drops.
type Broadcaster struct {
	staging  *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

func New(staging *outbox.Outbox, brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		staging:  staging,
		producer: producer,
		topic:    topic,
		interval: interval,
	}, nil
}

// Start launches the drain loop; it stops when ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	log.Println("[broadcaster] started")
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	err := b.staging.ScanPending(30*time.Second, func(e *outbox.Entry) error {
		if err := b.staging.MarkSent(e.Key); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(e.Key),
			Value: sarama.ByteEncoder(e.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			log.Printf("[broadcaster] publish %s failed: %v", e.Key, err)
			return b.staging.MarkFailed(e.Key)
		}

		if err := b.staging.MarkAcked(e.Key); err != nil {
			return err
		}
		return b.staging.Delete(e.Key)
	})
	if err != nil {
		log.Printf("[broadcaster] drain pass failed: %v", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
