package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
)

// notifyRecorder reports every chunk the stream writes
type notifyRecorder struct {
	*httptest.ResponseRecorder
	chunks chan string
}

func (r *notifyRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseRecorder.Write(b)
	r.chunks <- string(b)
	return n, err
}

func (r *notifyRecorder) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

func TestActivityStreamOnlyRelaysOwnEvents(t *testing.T) {
	hub := activity.NewSSEHub()
	r := gin.New()
	r.GET("/activity/stream", asUser("u1", false), NewActivityHandler(hub).Stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/activity/stream", nil).WithContext(ctx)
	rec := &notifyRecorder{ResponseRecorder: httptest.NewRecorder(), chunks: make(chan string, 64)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		return hub.ClientCount(activity.UserFeed("u1")) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Broadcast(&models.ActivityLog{UserID: "u2", Action: models.ActionLogin, Message: "someone else"})
	hub.Broadcast(&models.ActivityLog{UserID: "u1", Action: models.ActionDocumentGenerated, Message: "Generated Pitch Deck"})

	var seen []string
	timeout := time.After(2 * time.Second)
wait:
	for {
		select {
		case chunk := <-rec.chunks:
			seen = append(seen, chunk)
			if strings.Contains(chunk, "Generated Pitch Deck") {
				break wait
			}
		case <-timeout:
			t.Fatal("activity event was not streamed")
		}
	}

	cancel()
	<-done

	body := strings.Join(seen, "")
	assert.Contains(t, body, "event:connected")
	assert.Contains(t, body, "event: activity")
	assert.NotContains(t, body, "someone else")
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream"), rec.Header().Get("Content-Type"))
	assert.Zero(t, hub.ClientCount(activity.UserFeed("u1")))
}
