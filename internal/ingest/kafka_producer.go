package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-hailing/internal/models"
)

// LocationEvent is the wire form of a trail sample on the location topic.
// DriverID is empty when the ride has no driver yet; the consumer skips
// the registry update in that case.
type LocationEvent struct {
	RideID     string    `json:"ride_id"`
	DriverID   string    `json:"driver_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaProducer{writer: w}
}

func (k *KafkaProducer) PublishSample(s models.LocationSample, driverID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev := LocationEvent{
		RideID:     s.RideID,
		DriverID:   driverID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		RecordedAt: s.RecordedAt,
	}
	b, _ := json.Marshal(ev)
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(s.RideID), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
