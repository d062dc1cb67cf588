// The consumer drains the ride-locations topic and keeps the driver
// presence registry current, so the API can answer available_drivers with
// live positions without touching the primary store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-hailing/internal/drivers"
	"github.com/example/ride-hailing/internal/ingest"
	"github.com/example/ride-hailing/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total location messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	msgsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_skipped_total",
		Help: "Total messages for rides with no driver yet",
	})
	registryUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_registry_updates_total",
		Help: "Total successful registry updates",
	})
	registryErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_registry_errors_total",
		Help: "Total registry errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, msgsSkipped, registryUpdates, registryErrors)
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokersEnv := os.Getenv("KAFKA_BROKERS")
	var brokers []string
	if brokersEnv != "" {
		for _, b := range strings.Split(brokersEnv, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	} else {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "ride-locations"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "ride-hailing-consumer"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	geoKey := os.Getenv("REDIS_GEO_KEY")
	if geoKey == "" {
		geoKey = "drivers_geo"
	}
	registry := drivers.NewRedisRegistry(redisAddr, os.Getenv("REDIS_PASSWORD"), geoKey)

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	log.Printf("consumer listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var ev ingest.LocationEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}
		if ev.DriverID == "" {
			// trail sample from a ride with no driver assigned yet
			msgsSkipped.Inc()
			continue
		}

		if err := updateWithRetry(ctx, registry, ev, 3, 200*time.Millisecond); err != nil {
			registryErrors.Inc()
			log.Printf("registry update failed for driver=%s: %v", ev.DriverID, err)
			continue
		}
		registryUpdates.Inc()
	}
}

// LocationUpdater is the subset of the driver registry the consumer needs,
// kept small so tests can fake it.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, driverID string, c models.Coord) error
}

// updateWithRetry applies one location event with retry/backoff.
func updateWithRetry(ctx context.Context, reg LocationUpdater, ev ingest.LocationEvent, attempts int, delay time.Duration) error {
	loc := models.Coord{Lat: ev.Latitude, Lon: ev.Longitude}
	var err error
	for i := 0; i < attempts; i++ {
		if err = reg.UpdateLocation(ctx, ev.DriverID, loc); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
