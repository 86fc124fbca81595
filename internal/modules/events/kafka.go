package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"

	"feast/internal/modules/order"
)

type auditRecord struct {
	OrderID    string    `json:"orderId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorType  string    `json:"actorType"`
	ActorID    *string   `json:"actorId,omitempty"`
	At         time.Time `json:"at"`
}

// KafkaAudit publishes every order state event to a topic keyed by order id.
type KafkaAudit struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaAudit(producer sarama.SyncProducer, topic string) *KafkaAudit {
	return &KafkaAudit{producer: producer, topic: topic}
}

func (k *KafkaAudit) Record(_ context.Context, e order.Event) error {
	data, err := json.Marshal(auditRecord{
		OrderID:    string(e.OrderID),
		FromStatus: string(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		ActorType:  e.ActorType,
		ActorID:    e.ActorID,
		At:         e.CreatedAt,
	})
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(data),
	})
	return err
}

func (k *KafkaAudit) Close() error {
	return k.producer.Close()
}
