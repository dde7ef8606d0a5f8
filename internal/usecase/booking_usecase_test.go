package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bookingFixture struct {
	uc       *BookingUsecase
	bookings *memoryBookings
	users    *memoryUsers
	notifier *fakeBookingNotifier
	alerter  *fakeAlerter
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookings: &memoryBookings{},
		users:    newMemoryUsers(),
		notifier: &fakeBookingNotifier{},
		alerter:  &fakeAlerter{},
	}
	f.uc = NewBookingUsecase(f.bookings, f.users, &memoryDiagnostics{}, f.notifier, f.alerter, zap.NewNop())
	return f
}

func createdEnvelope(eventURI, eventName, startTime string, answers ...WebhookAnswer) WebhookEnvelope {
	return WebhookEnvelope{
		Event: "invitee.created",
		Payload: WebhookPayload{
			Invitee: WebhookInvitee{Email: "player@example.com", QuestionsAndAnswers: answers},
			Event:   WebhookEvent{URI: eventURI, Name: eventName, StartTime: startTime},
		},
	}
}

func TestClassifyTier(t *testing.T) {
	tests := map[string]struct {
		tier   domain.Tier
		amount int64
	}{
		"Quick Remote Fix (1-2h)":  {domain.TierQuick, 199},
		"CS2 remote fix":           {domain.TierQuick, 199},
		"EXTREME BIOSPRIME":        {domain.TierExtreme, 699},
		"biosprime session":        {domain.TierExtreme, 699},
		"Full System Tune-Up":      {domain.TierFull, 399},
		"":                         {domain.TierFull, 399},
		"Quick extreme (mislabel)": {domain.TierQuick, 199},
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			tier, amount := ClassifyTier(name)
			assert.Equal(t, want.tier, tier)
			assert.True(t, amount.Equal(decimal.NewFromInt(want.amount)), amount.String())
		})
	}
}

func TestLinkUser(t *testing.T) {
	t.Run("first numeric discord answer resolves", func(t *testing.T) {
		link := LinkUser(WebhookInvitee{Email: "a@b.c", QuestionsAndAnswers: []WebhookAnswer{
			{Question: "Your name", Answer: "12345"},
			{Question: "Discord username", Answer: "gamer#1"},
			{Question: "Discord ID", Answer: " 987654321 "},
			{Question: "Other Discord ID", Answer: "111"},
		}})
		assert.Equal(t, UserLink{Key: "987654321", Resolved: true}, link)
	})

	t.Run("non numeric answer is kept raw", func(t *testing.T) {
		link := LinkUser(WebhookInvitee{Email: "a@b.c", QuestionsAndAnswers: []WebhookAnswer{
			{Question: "What is your DISCORD?", Answer: "gamer#1"},
		}})
		assert.Equal(t, UserLink{Key: "gamer#1"}, link)
	})

	t.Run("falls back to email", func(t *testing.T) {
		link := LinkUser(WebhookInvitee{Email: "a@b.c", QuestionsAndAnswers: []WebhookAnswer{
			{Question: "Discord", Answer: "  "},
		}})
		assert.Equal(t, UserLink{Key: "a@b.c"}, link)
	})
}

func TestBookingUsecase_Created(t *testing.T) {
	ctx := context.Background()

	t.Run("resolved user gets booking, counter and confirmation", func(t *testing.T) {
		f := newBookingFixture()
		require.NoError(t, f.users.Upsert(ctx, &domain.User{ExternalID: "555", Username: "p"}))

		out, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-1", "Extreme BIOSPRIME", "2025-03-01T18:00:00.000000Z",
			WebhookAnswer{Question: "Discord ID", Answer: "555"}))
		require.NoError(t, err)
		assert.Equal(t, WebhookStatusOK, out.Status)
		require.NotNil(t, out.Booking)
		assert.Equal(t, domain.TierExtreme, out.Booking.Tier)
		assert.True(t, out.Booking.Amount.Equal(decimal.NewFromInt(699)))
		require.NotNil(t, out.Booking.ScheduledAt)
		assert.Equal(t, 18, out.Booking.ScheduledAt.Hour())

		user, err := f.users.GetByExternalID(ctx, "555")
		require.NoError(t, err)
		assert.Equal(t, 1, user.TotalBookings)
		assert.Equal(t, []string{"555"}, f.notifier.calls)
		assert.Len(t, f.alerter.alerts, 1)
	})

	t.Run("unresolved link never sends a confirmation", func(t *testing.T) {
		f := newBookingFixture()
		out, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-2", "Quick Remote Fix", "",
			WebhookAnswer{Question: "Discord", Answer: "gamer#1"}))
		require.NoError(t, err)
		assert.Equal(t, "gamer#1", out.Booking.UserID)
		assert.Nil(t, out.Booking.ScheduledAt)
		assert.Empty(t, f.notifier.calls)
		assert.Contains(t, f.alerter.alerts[0], "(unlinked)")
	})

	t.Run("unparsable start time is stored as null", func(t *testing.T) {
		f := newBookingFixture()
		out, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-3", "Full", "next tuesday"))
		require.NoError(t, err)
		assert.Nil(t, out.Booking.ScheduledAt)
		assert.Equal(t, "player@example.com", out.Booking.UserID)
	})

	t.Run("redelivery is a duplicate", func(t *testing.T) {
		f := newBookingFixture()
		env := createdEnvelope("evt-4", "Full", "", WebhookAnswer{Question: "Discord ID", Answer: "1"})
		_, err := f.uc.HandleEvent(ctx, env)
		require.NoError(t, err)

		out, err := f.uc.HandleEvent(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, WebhookStatusDuplicate, out.Status)
		assert.Len(t, f.bookings.items, 1)
		assert.Len(t, f.notifier.calls, 1)
	})

	t.Run("confirmation failure is swallowed", func(t *testing.T) {
		f := newBookingFixture()
		f.notifier.SendBookingConfirmationFunc = func(context.Context, string, domain.Booking) error {
			return errors.New("cannot dm")
		}
		out, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-5", "Full", "", WebhookAnswer{Question: "Discord ID", Answer: "1"}))
		require.NoError(t, err)
		assert.Equal(t, WebhookStatusOK, out.Status)
	})
}

func TestBookingUsecase_OtherEvents(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	_, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-1", "Full", ""))
	require.NoError(t, err)

	for _, event := range []string{"invitee.canceled", "canceled", "invitee.rescheduled"} {
		out, err := f.uc.HandleEvent(ctx, WebhookEnvelope{Event: event, Payload: WebhookPayload{Event: WebhookEvent{URI: "evt-1"}}})
		require.NoError(t, err)
		assert.Equal(t, WebhookStatusOK, out.Status, event)
	}

	out, err := f.uc.HandleEvent(ctx, WebhookEnvelope{Event: "invitee.canceled", Payload: WebhookPayload{Event: WebhookEvent{URI: "missing"}}})
	require.NoError(t, err)
	assert.Equal(t, WebhookStatusIgnored, out.Status)

	out, err = f.uc.HandleEvent(ctx, WebhookEnvelope{Event: "routing_form_submission.created"})
	require.NoError(t, err)
	assert.Equal(t, WebhookStatusIgnored, out.Status)

	assert.Len(t, f.bookings.items, 1)
	assert.False(t, f.bookings.items[0].Completed)
}

func TestBookingUsecase_Complete(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	out, err := f.uc.HandleEvent(ctx, createdEnvelope("evt-1", "Full", ""))
	require.NoError(t, err)

	require.NoError(t, f.uc.Complete(ctx, out.Booking.ID))
	assert.True(t, f.bookings.items[0].Completed)
	assert.ErrorIs(t, f.uc.Complete(ctx, 999), ErrBookingNotFound)
}
