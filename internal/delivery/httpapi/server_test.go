package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/fpsos/fpsbot/internal/infra/metrics"
	"github.com/fpsos/fpsbot/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBookings struct {
	HandleEventFunc func(ctx context.Context, env usecase.WebhookEnvelope) (usecase.WebhookOutcome, error)
	CompleteFunc    func(ctx context.Context, bookingID uint) error
}

func (f *fakeBookings) HandleEvent(ctx context.Context, env usecase.WebhookEnvelope) (usecase.WebhookOutcome, error) {
	return f.HandleEventFunc(ctx, env)
}

func (f *fakeBookings) Complete(ctx context.Context, bookingID uint) error {
	return f.CompleteFunc(ctx, bookingID)
}

type fakePlatform struct{}

func (fakePlatform) Status() domain.PlatformStatus {
	return domain.PlatformStatus{LatencyMS: 41, Guilds: 1, Users: 250}
}

type fakeDirectory struct {
	LookupFunc func(ctx context.Context, userID string) (domain.ChatUser, error)
	SendFunc   func(ctx context.Context, userID string) error
	prompted   []string
}

func (f *fakeDirectory) LookupUser(ctx context.Context, userID string) (domain.ChatUser, error) {
	return f.LookupFunc(ctx, userID)
}

func (f *fakeDirectory) SendDiagnosticPrompt(ctx context.Context, userID string) error {
	f.prompted = append(f.prompted, userID)
	if f.SendFunc == nil {
		return nil
	}
	return f.SendFunc(ctx, userID)
}

type allowN struct {
	remaining int
}

func (a *allowN) Allow(context.Context, string) bool {
	if a.remaining <= 0 {
		return false
	}
	a.remaining--
	return true
}

type serverFixture struct {
	server    *Server
	bookings  *fakeBookings
	directory *fakeDirectory
	limiter   *allowN
}

func newServerFixture(t *testing.T, secret string) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &serverFixture{
		bookings: &fakeBookings{
			HandleEventFunc: func(context.Context, usecase.WebhookEnvelope) (usecase.WebhookOutcome, error) {
				return usecase.WebhookOutcome{Status: usecase.WebhookStatusOK}, nil
			},
			CompleteFunc: func(context.Context, uint) error { return nil },
		},
		directory: &fakeDirectory{
			LookupFunc: func(_ context.Context, id string) (domain.ChatUser, error) {
				return domain.ChatUser{ID: id, Username: "player"}, nil
			},
		},
		limiter: &allowN{remaining: 100},
	}
	handler := NewHandler(f.bookings, fakePlatform{}, f.directory, metrics.NewCollector(), 10*time.Millisecond, zap.NewNop())
	f.server = NewServer(ServerConfig{Secret: secret}, handler, f.limiter, zap.NewNop())
	return f
}

func (f *serverFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodGet, "/health", "", map[string]string{"X-Request-Id": "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t, "")
	f.do(http.MethodGet, "/health", "", nil)

	rec := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fpsbot_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCalendly(t *testing.T) {
	f := newServerFixture(t, "")
	var got usecase.WebhookEnvelope
	f.bookings.HandleEventFunc = func(_ context.Context, env usecase.WebhookEnvelope) (usecase.WebhookOutcome, error) {
		got = env
		return usecase.WebhookOutcome{Status: usecase.WebhookStatusOK}, nil
	}

	body := `{"event":"invitee.created","payload":{"invitee":{"email":"a@b.c","questions_and_answers":[{"question":"Discord ID","answer":"123"}]},"event":{"uri":"evt-1","name":"Full System Tune-Up","start_time":"2026-01-10T15:00:00Z"}}}`
	rec := f.do(http.MethodPost, "/calendly", body, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "event": "invitee.created"}, decode(t, rec))
	assert.Equal(t, "evt-1", got.Payload.Event.URI)
	assert.Equal(t, "123", got.Payload.Invitee.QuestionsAndAnswers[0].Answer)
}

func TestCalendly_Errors(t *testing.T) {
	f := newServerFixture(t, "")

	for _, body := range []string{"not json", `{"event":"invitee.created","payload":{"event":{"start_time":123}}}`} {
		rec := f.do(http.MethodPost, "/calendly", body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.Equal(t, "invalid JSON body", decode(t, rec)["error"])
	}

	f.bookings.HandleEventFunc = func(context.Context, usecase.WebhookEnvelope) (usecase.WebhookOutcome, error) {
		return usecase.WebhookOutcome{}, errors.New("database is locked")
	}
	rec := f.do(http.MethodPost, "/calendly", `{"event":"invitee.created"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestCalendly_RateLimited(t *testing.T) {
	f := newServerFixture(t, "")
	f.limiter.remaining = 1

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/calendly", `{"event":"ping"}`, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/calendly", `{"event":"ping"}`, nil).Code)
}

func TestStatus(t *testing.T) {
	f := newServerFixture(t, "")
	rec := f.do(http.MethodGet, "/api/status", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "online", "latency": float64(41), "guilds": float64(1), "users": float64(250)}, decode(t, rec))
}

func TestAuth(t *testing.T) {
	f := newServerFixture(t, "s3cret")

	rec := f.do(http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "dashboard"})
	badToken, err := bad.SignedString([]byte("other"))
	require.NoError(t, err)
	rec = f.do(http.MethodGet, "/api/status", "", map[string]string{"Authorization": "Bearer " + badToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "dashboard",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := good.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	rec = f.do(http.MethodGet, "/api/status", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerDiagnostic(t *testing.T) {
	f := newServerFixture(t, "")

	rec := f.do(http.MethodPost, "/api/trigger-diagnostic", `{"user_id": 123456789012345678}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "sent", "user": "player"}, decode(t, rec))

	rec = f.do(http.MethodPost, "/api/trigger-diagnostic", `{"user_id": "42"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"123456789012345678", "42"}, f.directory.prompted)
}

func TestTriggerDiagnostic_Errors(t *testing.T) {
	f := newServerFixture(t, "")

	for _, body := range []string{`{}`, `{"user_id": "abc"}`, `{"user_id": true}`, `nope`} {
		rec := f.do(http.MethodPost, "/api/trigger-diagnostic", body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		assert.Equal(t, "invalid user_id", decode(t, rec)["error"])
	}
	assert.Empty(t, f.directory.prompted)

	f.directory.LookupFunc = func(context.Context, string) (domain.ChatUser, error) {
		return domain.ChatUser{}, usecase.ErrUserNotFound
	}
	rec := f.do(http.MethodPost, "/api/trigger-diagnostic", `{"user_id": 1}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.directory.prompted)

	f.directory.LookupFunc = func(_ context.Context, id string) (domain.ChatUser, error) {
		return domain.ChatUser{ID: id}, nil
	}
	f.directory.SendFunc = func(context.Context, string) error {
		return errors.New("cannot send messages to this user")
	}
	rec = f.do(http.MethodPost, "/api/trigger-diagnostic", `{"user_id": 1}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCompleteBooking(t *testing.T) {
	f := newServerFixture(t, "")
	var completed uint
	f.bookings.CompleteFunc = func(_ context.Context, id uint) error {
		if id == 99 {
			return usecase.ErrBookingNotFound
		}
		completed = id
		return nil
	}

	rec := f.do(http.MethodPost, "/api/bookings/7/complete", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), completed)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/bookings/99/complete", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/bookings/abc/complete", "", nil).Code)
}

func TestStatusStream(t *testing.T) {
	f := newServerFixture(t, "")
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/status/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < 2; i++ {
		var status statusResponse
		require.NoError(t, conn.ReadJSON(&status))
		assert.Equal(t, "online", status.Status)
		assert.Equal(t, 250, status.Users)
	}
}
