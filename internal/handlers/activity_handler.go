package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
)

// ActivityHandler streams the caller's own activity
type ActivityHandler struct {
	hub       *activity.SSEHub
	heartbeat time.Duration
}

func NewActivityHandler(hub *activity.SSEHub) *ActivityHandler {
	return &ActivityHandler{hub: hub, heartbeat: 30 * time.Second}
}

// Stream godoc
// @Summary Stream your activity via Server-Sent Events
// @Description Emits an activity event whenever one of your documents is generated, exported or paid for
// @Tags activity
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 "SSE stream"
// @Router /api/v1/activity/stream [get]
func (h *ActivityHandler) Stream(c *gin.Context) {
	streamFeed(c, h.hub, activity.UserFeed(middleware.UserID(c)), h.heartbeat)
}

// streamFeed holds the connection open and relays hub messages until the
// client goes away
func streamFeed(c *gin.Context, hub *activity.SSEHub, key string, heartbeat time.Duration) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable buffering for nginx

	clientChan := hub.RegisterClient(key)
	defer hub.UnregisterClient(key, clientChan)

	c.SSEvent("connected", gin.H{"message": "Connected to activity stream"})
	c.Writer.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			logrus.Debugf("SSE client disconnected from %s", key)
			return
		case <-ticker.C:
			if _, err := c.Writer.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			c.Writer.Flush()
		case message, ok := <-clientChan:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(message); err != nil {
				logrus.Errorf("Failed to write SSE message: %v", err)
				return
			}
			c.Writer.Flush()
		}
	}
}
