package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrBookingNotFound = errors.New("booking not found")

const (
	WebhookStatusOK        = "ok"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
)

type WebhookEnvelope struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Invitee WebhookInvitee `json:"invitee"`
	Event   WebhookEvent   `json:"event"`
}

type WebhookInvitee struct {
	Email               string          `json:"email"`
	QuestionsAndAnswers []WebhookAnswer `json:"questions_and_answers"`
}

type WebhookAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type WebhookEvent struct {
	URI       string `json:"uri"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
}

// UserLink is the owner key chosen for a booking. Resolved is true only for a
// numeric chat id taken from the invitee's answers.
type UserLink struct {
	Key      string
	Resolved bool
}

type WebhookOutcome struct {
	Status  string
	Booking *domain.Booking
}

type BookingNotifier interface {
	SendBookingConfirmation(ctx context.Context, userID string, booking domain.Booking) error
}

type BookingUsecase struct {
	bookings    domain.BookingRepository
	users       domain.UserRepository
	diagnostics domain.DiagnosticRepository
	notifier    BookingNotifier
	alerter     StaffAlerter
	logger      *zap.Logger
}

func NewBookingUsecase(bookings domain.BookingRepository, users domain.UserRepository, diagnostics domain.DiagnosticRepository, notifier BookingNotifier, alerter StaffAlerter, logger *zap.Logger) *BookingUsecase {
	return &BookingUsecase{
		bookings:    bookings,
		users:       users,
		diagnostics: diagnostics,
		notifier:    notifier,
		alerter:     alerter,
		logger:      logger,
	}
}

func (u *BookingUsecase) HandleEvent(ctx context.Context, env WebhookEnvelope) (WebhookOutcome, error) {
	switch normalizeEventType(env.Event) {
	case "created":
		return u.handleCreated(ctx, env.Payload)
	case "canceled":
		return u.handleExisting(ctx, "booking canceled", env.Payload)
	case "rescheduled":
		return u.handleExisting(ctx, "booking rescheduled", env.Payload)
	default:
		u.logger.Info("ignoring webhook event", zap.String("event", env.Event))
		return WebhookOutcome{Status: WebhookStatusIgnored}, nil
	}
}

// Complete marks a booking as delivered; only completed bookings count as revenue.
func (u *BookingUsecase) Complete(ctx context.Context, bookingID uint) error {
	if err := u.bookings.MarkCompleted(ctx, bookingID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	u.logger.Info("booking completed", zap.Uint("booking_id", bookingID))
	return nil
}

func (u *BookingUsecase) handleCreated(ctx context.Context, payload WebhookPayload) (WebhookOutcome, error) {
	eventID := strings.TrimSpace(payload.Event.URI)
	if eventID != "" {
		_, err := u.bookings.GetByExternalEventID(ctx, eventID)
		if err == nil {
			u.logger.Info("duplicate booking event", zap.String("event_id", eventID))
			return WebhookOutcome{Status: WebhookStatusDuplicate}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return WebhookOutcome{}, err
		}
	}

	link := LinkUser(payload.Invitee)
	tier, amount := ClassifyTier(payload.Event.Name)

	booking := &domain.Booking{
		UserID:          link.Key,
		Tier:            tier,
		ExternalEventID: eventID,
		ScheduledAt:     u.parseStartTime(payload.Event.StartTime),
		Amount:          amount,
	}
	if err := u.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return WebhookOutcome{Status: WebhookStatusDuplicate}, nil
		}
		return WebhookOutcome{}, fmt.Errorf("save booking: %w", err)
	}

	if err := u.users.IncrementBookings(ctx, link.Key); err != nil {
		u.logger.Debug("booking counter not bumped", zap.String("user_key", link.Key), zap.Error(err))
	}

	u.logger.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.String("user_key", link.Key),
		zap.Bool("resolved", link.Resolved),
		zap.String("tier", string(tier)),
	)

	if link.Resolved && u.notifier != nil {
		if err := u.notifier.SendBookingConfirmation(ctx, link.Key, *booking); err != nil {
			u.logger.Warn("failed to send booking confirmation", zap.String("user_id", link.Key), zap.Error(err))
		}
	}
	u.alertBooking(ctx, *booking, link)

	return WebhookOutcome{Status: WebhookStatusOK, Booking: booking}, nil
}

// Cancellations and reschedules are only logged; no booking state changes.
func (u *BookingUsecase) handleExisting(ctx context.Context, what string, payload WebhookPayload) (WebhookOutcome, error) {
	eventID := strings.TrimSpace(payload.Event.URI)
	booking, err := u.bookings.GetByExternalEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.logger.Info(what+" for unknown booking", zap.String("event_id", eventID))
			return WebhookOutcome{Status: WebhookStatusIgnored}, nil
		}
		return WebhookOutcome{}, err
	}
	u.logger.Info(what,
		zap.Uint("booking_id", booking.ID),
		zap.String("event_id", eventID),
		zap.String("start_time", payload.Event.StartTime),
	)
	return WebhookOutcome{Status: WebhookStatusOK, Booking: booking}, nil
}

func (u *BookingUsecase) parseStartTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		u.logger.Warn("unparsable booking start time", zap.String("start_time", value), zap.Error(err))
		return nil
	}
	t = t.UTC()
	return &t
}

func (u *BookingUsecase) alertBooking(ctx context.Context, booking domain.Booking, link UserLink) {
	if u.alerter == nil {
		return
	}
	pkg, _ := domain.PackageFor(booking.Tier)
	text := fmt.Sprintf("📅 New booking #%d: %s (%s) for %s", booking.ID, pkg.Name, domain.PriceLabel(booking.Amount), link.Key)
	if !link.Resolved {
		text += " (unlinked)"
	}
	if booking.ScheduledAt != nil {
		text += "\nScheduled: " + booking.ScheduledAt.Format("2006-01-02 15:04 UTC")
	}
	if link.Resolved && u.diagnostics != nil {
		if last, err := u.diagnostics.Latest(ctx, link.Key); err == nil {
			text += fmt.Sprintf("\nLast diagnostic: %s (%d critical, %d warnings)", last.Recommendation, last.CriticalCount, last.WarningCount)
		}
	}
	if err := u.alerter.Alert(ctx, text); err != nil {
		u.logger.Warn("failed to alert staff", zap.Error(err))
	}
}

// LinkUser picks the booking owner key from answers to questions mentioning
// "discord": the first numeric answer resolves the user, otherwise the first
// non-empty answer is kept raw, otherwise the invitee email.
func LinkUser(invitee WebhookInvitee) UserLink {
	var fallback string
	for _, qa := range invitee.QuestionsAndAnswers {
		if !strings.Contains(strings.ToLower(qa.Question), "discord") {
			continue
		}
		answer := strings.TrimSpace(qa.Answer)
		if answer == "" {
			continue
		}
		if isDigits(answer) {
			return UserLink{Key: answer, Resolved: true}
		}
		if fallback == "" {
			fallback = answer
		}
	}
	if fallback != "" {
		return UserLink{Key: fallback}
	}
	return UserLink{Key: strings.TrimSpace(invitee.Email)}
}

// ClassifyTier maps a scheduling event name to a tier and its price.
func ClassifyTier(eventName string) (domain.Tier, decimal.Decimal) {
	name := strings.ToLower(eventName)
	tier := domain.TierFull
	switch {
	case strings.Contains(name, "quick") || strings.Contains(name, "remote fix"):
		tier = domain.TierQuick
	case strings.Contains(name, "extreme") || strings.Contains(name, "biosprime"):
		tier = domain.TierExtreme
	}
	pkg, _ := domain.PackageFor(tier)
	return tier, pkg.PriceAED
}

func normalizeEventType(event string) string {
	event = strings.ToLower(strings.TrimSpace(event))
	return strings.TrimPrefix(event, "invitee.")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}
