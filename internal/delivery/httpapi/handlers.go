package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type bookingIntake interface {
	HandleEvent(ctx context.Context, env usecase.WebhookEnvelope) (usecase.WebhookOutcome, error)
	Complete(ctx context.Context, bookingID uint) error
}

type platformStatus interface {
	Status() domain.PlatformStatus
}

type userDirectory interface {
	LookupUser(ctx context.Context, userID string) (domain.ChatUser, error)
	SendDiagnosticPrompt(ctx context.Context, userID string) error
}

type recorder interface {
	Handler() http.Handler
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	RateLimited(route string)
	WebhookEvent(event, status string)
	StreamConnected()
	StreamDisconnected()
}

type Handler struct {
	bookings       bookingIntake
	platform       platformStatus
	users          userDirectory
	metrics        recorder
	streamInterval time.Duration
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

func NewHandler(bookings bookingIntake, platform platformStatus, users userDirectory, metrics recorder, streamInterval time.Duration, logger *zap.Logger) *Handler {
	if streamInterval <= 0 {
		streamInterval = 5 * time.Second
	}
	return &Handler{
		bookings:       bookings,
		platform:       platform,
		users:          users,
		metrics:        metrics,
		streamInterval: streamInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Calendly(c *gin.Context) {
	var env usecase.WebhookEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.metrics.WebhookEvent("invalid", "error")
		h.logger.Warn("webhook body rejected", zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid JSON body"})
		return
	}

	outcome, err := h.bookings.HandleEvent(c.Request.Context(), env)
	if err != nil {
		h.metrics.WebhookEvent(env.Event, "error")
		h.logger.Error("webhook processing failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("event", env.Event),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	h.metrics.WebhookEvent(env.Event, outcome.Status)
	c.JSON(http.StatusOK, gin.H{"status": outcome.Status, "event": env.Event})
}

type statusResponse struct {
	Status  string `json:"status"`
	Latency int64  `json:"latency"`
	Guilds  int    `json:"guilds"`
	Users   int    `json:"users"`
}

func (h *Handler) currentStatus() statusResponse {
	s := h.platform.Status()
	return statusResponse{Status: "online", Latency: s.LatencyMS, Guilds: s.Guilds, Users: s.Users}
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentStatus())
}

// StatusStream pushes the status object over a websocket every interval
// until the client goes away.
func (h *Handler) StatusStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade status stream", zap.String("client_ip", c.ClientIP()), zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.StreamConnected()
	defer h.metrics.StreamDisconnected()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.currentStatus()); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("status stream write failed", zap.Error(err))
			}
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// userID accepts a JSON number or a string of digits.
type userID string

func (u *userID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("user_id must be a number or string")
		}
		s = n.String()
	}
	*u = userID(strings.TrimSpace(s))
	return nil
}

type triggerDiagnosticRequest struct {
	UserID userID `json:"user_id" binding:"required"`
}

func (h *Handler) TriggerDiagnostic(c *gin.Context) {
	var req triggerDiagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil || !isSnowflake(string(req.UserID)) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}
	id := string(req.UserID)
	ctx := c.Request.Context()

	user, err := h.users.LookupUser(ctx, id)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("user lookup failed", zap.String("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
		return
	}

	if err := h.users.SendDiagnosticPrompt(ctx, id); err != nil {
		h.logger.Error("diagnostic prompt not sent", zap.String("user_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send diagnostic prompt"})
		return
	}

	h.logger.Info("diagnostic prompt sent", zap.String("user_id", id), zap.String("subject", c.GetString(subjectKey)))
	c.JSON(http.StatusOK, gin.H{"status": "sent", "user": user.Name()})
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := h.bookings.Complete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, usecase.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		h.logger.Error("failed to complete booking", zap.Uint64("booking_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "booking_id": id})
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
