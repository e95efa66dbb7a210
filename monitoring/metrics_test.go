package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor(nil)

	before := testutil.ToFloat64(qrPayloads)
	m.TrackQRPayloads(3)
	assert.Equal(t, before+3, testutil.ToFloat64(qrPayloads))

	failed := testutil.ToFloat64(assetCopies.WithLabelValues("image", "error"))
	m.TrackAssetCopy("image", errors.New("boom"))
	assert.Equal(t, failed+1, testutil.ToFloat64(assetCopies.WithLabelValues("image", "error")))

	m.TrackPublish(4, 20*time.Millisecond, nil)
	assert.Equal(t, float64(4), testutil.ToFloat64(publishedEvents))
}

func TestMonitor_NilIsNoop(t *testing.T) {
	var m *Monitor

	assert.NotPanics(t, func() {
		m.TrackValidation(true)
		m.TrackSerialization("encode", nil)
		m.TrackPublish(1, time.Second, nil)
		m.Collect(context.Background(), "corpus:meta", time.Second)
	})
}

func TestMonitor_CollectPublishedCount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	m := NewMonitor(db)
	mock.ExpectHGet("corpus:meta", "event_count").SetVal("7")

	m.collectPublishedCount(context.Background(), "corpus:meta")

	assert.Equal(t, float64(7), testutil.ToFloat64(publishedEvents))
	assert.NoError(t, mock.ExpectationsWereMet())
}
