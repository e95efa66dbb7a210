package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, "ratelimit:publish", 2, time.Minute)
	ctx := context.Background()

	mock.ExpectIncr("ratelimit:publish:10.0.0.1").SetVal(1)
	mock.ExpectExpire("ratelimit:publish:10.0.0.1", time.Minute).SetVal(true)
	mock.ExpectIncr("ratelimit:publish:10.0.0.1").SetVal(2)
	mock.ExpectIncr("ratelimit:publish:10.0.0.1").SetVal(3)

	for _, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, allowed)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newRequestEvent() *core.RequestEvent {
	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(http.MethodPost, "/api/v1/publish", nil)
	e.Request.RemoteAddr = "10.0.0.2:5555"
	e.Response = httptest.NewRecorder()
	return e
}

func TestRateLimiter_Limit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, "ratelimit:publish", 1, time.Minute)

	mock.ExpectIncr("ratelimit:publish:10.0.0.2").SetVal(2)
	err := limiter.Limit(newRequestEvent())

	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)

	mock.ExpectIncr("ratelimit:publish:10.0.0.2").SetErr(errors.New("redis down"))
	assert.NoError(t, limiter.Limit(newRequestEvent()))

	assert.NoError(t, mock.ExpectationsWereMet())
}
