package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specimenpro_validations_total",
			Help: "Event validations by outcome",
		},
		[]string{"outcome"},
	)

	serializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specimenpro_serializations_total",
			Help: "Encode and decode operations by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	qrPayloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "specimenpro_qr_payloads_total",
			Help: "QR payloads produced",
		},
	)

	assetCopies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specimenpro_asset_copies_total",
			Help: "Asset copy attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	publishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specimenpro_publishes_total",
			Help: "Publish runs by outcome",
		},
		[]string{"outcome"},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "specimenpro_publish_duration_seconds",
			Help:    "Duration of publish runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	publishedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "specimenpro_published_events",
			Help: "Events in the last published snapshot",
		},
	)
)

// Monitor records the toolkit's metrics. A nil *Monitor records nothing.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	return &Monitor{redis: redisClient}
}

// Collect refreshes the published event gauge from Redis until ctx ends.
func (m *Monitor) Collect(ctx context.Context, metaKey string, every time.Duration) {
	if m == nil || m.redis == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		m.collectPublishedCount(ctx, metaKey)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) collectPublishedCount(ctx context.Context, metaKey string) {
	count, err := m.redis.HGet(ctx, metaKey, "event_count").Int()
	if err != nil {
		return
	}
	publishedEvents.Set(float64(count))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Monitor) TrackValidation(valid bool) {
	if m == nil {
		return
	}
	if valid {
		validations.WithLabelValues("valid").Inc()
		return
	}
	validations.WithLabelValues("invalid").Inc()
}

// TrackSerialization records an encode or decode; direction is "encode" or
// "decode".
func (m *Monitor) TrackSerialization(direction string, err error) {
	if m == nil {
		return
	}
	serializations.WithLabelValues(direction, outcome(err)).Inc()
}

func (m *Monitor) TrackQRPayloads(n int) {
	if m == nil {
		return
	}
	qrPayloads.Add(float64(n))
}

func (m *Monitor) TrackAssetCopy(kind string, err error) {
	if m == nil {
		return
	}
	assetCopies.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Monitor) TrackPublish(eventCount int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	publishes.WithLabelValues(outcome(err)).Inc()
	publishDuration.Observe(duration.Seconds())
	if err == nil {
		publishedEvents.Set(float64(eventCount))
	}
}
