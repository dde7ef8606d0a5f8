package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/shopspring/decimal"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*domain.User)}
}

func (r *memoryUsers) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ExternalID]
	if !ok {
		stored = &domain.User{ID: uint(len(r.users) + 1), ExternalID: user.ExternalID}
		r.users[user.ExternalID] = stored
	}
	if user.Username != "" {
		stored.Username = user.Username
	}
	if user.Email != "" {
		stored.Email = user.Email
	}
	*user = *stored
	return nil
}

func (r *memoryUsers) GetByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUsers) UpdateSpecs(_ context.Context, externalID, specs string) error {
	return r.mutate(externalID, func(u *domain.User) { u.Specs = specs })
}

func (r *memoryUsers) IncrementDiagnostics(_ context.Context, externalID string) error {
	return r.mutate(externalID, func(u *domain.User) { u.TotalDiagnostics++ })
}

func (r *memoryUsers) IncrementBookings(_ context.Context, externalID string) error {
	return r.mutate(externalID, func(u *domain.User) { u.TotalBookings++ })
}

func (r *memoryUsers) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memoryUsers) mutate(externalID string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[externalID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(user)
	return nil
}

type memoryDiagnostics struct {
	mu    sync.Mutex
	items []domain.Diagnostic

	CreateFunc func(ctx context.Context, diagnostic *domain.Diagnostic) error
}

func (r *memoryDiagnostics) Create(ctx context.Context, diagnostic *domain.Diagnostic) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, diagnostic)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	diagnostic.ID = uint(len(r.items) + 1)
	r.items = append(r.items, *diagnostic)
	return nil
}

func (r *memoryDiagnostics) ListByUser(_ context.Context, userID string, limit int) ([]domain.Diagnostic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Diagnostic
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memoryDiagnostics) Latest(ctx context.Context, userID string) (*domain.Diagnostic, error) {
	items, _ := r.ListByUser(ctx, userID, 1)
	if len(items) == 0 {
		return nil, domain.ErrNotFound
	}
	return &items[0], nil
}

func (r *memoryDiagnostics) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type memoryBookings struct {
	mu    sync.Mutex
	items []domain.Booking
}

func (r *memoryBookings) Create(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if booking.ExternalEventID != "" {
		for _, b := range r.items {
			if b.ExternalEventID == booking.ExternalEventID {
				return domain.ErrDuplicate
			}
		}
	}
	booking.ID = uint(len(r.items) + 1)
	r.items = append(r.items, *booking)
	return nil
}

func (r *memoryBookings) GetByExternalEventID(_ context.Context, externalEventID string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.ExternalEventID == externalEventID {
			copied := b
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryBookings) MarkCompleted(_ context.Context, bookingID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == bookingID {
			r.items[i].Completed = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memoryBookings) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *memoryBookings) CountCompleted(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.items {
		if b.Completed {
			n++
		}
	}
	return n, nil
}

func (r *memoryBookings) CompletedAmounts(_ context.Context) ([]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []decimal.Decimal
	for _, b := range r.items {
		if b.Completed {
			out = append(out, b.Amount)
		}
	}
	return out, nil
}

func (r *memoryBookings) MostPopularTier(_ context.Context) (domain.Tier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.Tier]int{}
	for _, b := range r.items {
		counts[b.Tier]++
	}
	if len(counts) == 0 {
		return "", domain.ErrNotFound
	}
	tiers := make([]domain.Tier, 0, len(counts))
	for tier := range counts {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool {
		if counts[tiers[i]] != counts[tiers[j]] {
			return counts[tiers[i]] > counts[tiers[j]]
		}
		return tiers[i] < tiers[j]
	})
	return tiers[0], nil
}

type memoryTickets struct {
	mu    sync.Mutex
	items []domain.Ticket

	CloseFunc func(ctx context.Context, ticketID uint) error
}

func (r *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uint(len(r.items) + 1)
	if ticket.Status == "" {
		ticket.Status = domain.TicketOpen
	}
	r.items = append(r.items, *ticket)
	return nil
}

func (r *memoryTickets) GetOpenByUser(_ context.Context, userID string) (*domain.Ticket, error) {
	return r.find(func(t domain.Ticket) bool { return t.UserID == userID })
}

func (r *memoryTickets) GetOpenByChannel(_ context.Context, channelID string) (*domain.Ticket, error) {
	return r.find(func(t domain.Ticket) bool { return t.ChannelID == channelID })
}

func (r *memoryTickets) Close(ctx context.Context, ticketID uint) error {
	if r.CloseFunc != nil {
		return r.CloseFunc(ctx, ticketID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == ticketID && r.items[i].IsOpen() {
			r.items[i].Status = domain.TicketClosed
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memoryTickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.items {
		if t.IsOpen() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryTickets) find(match func(domain.Ticket) bool) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items {
		if t.IsOpen() && match(t) {
			copied := t
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memoryTags struct {
	mu   sync.Mutex
	tags map[string]*domain.Tag
}

func newMemoryTags() *memoryTags {
	return &memoryTags{tags: make(map[string]*domain.Tag)}
}

func (r *memoryTags) Upsert(_ context.Context, tag *domain.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tags[tag.Name]
	if !ok {
		stored = &domain.Tag{Name: tag.Name}
		r.tags[tag.Name] = stored
	}
	stored.Content = tag.Content
	stored.CreatedBy = tag.CreatedBy
	*tag = *stored
	return nil
}

func (r *memoryTags) Get(_ context.Context, name string) (*domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag, ok := r.tags[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	tag.UsageCount++
	copied := *tag
	return &copied, nil
}

func (r *memoryTags) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tags[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tags, name)
	return nil
}

func (r *memoryTags) ListNames(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type fakeChannels struct {
	CreateTicketChannelFunc func(ctx context.Context, owner domain.ChatUser) (string, error)
	DeleteChannelFunc       func(ctx context.Context, channelID, reason string) error

	mu       sync.Mutex
	sent     map[string][]string
	granted  map[string][]string
	deleted  []string
	controls []string
}

func newFakeChannels() *fakeChannels {
	return &fakeChannels{sent: map[string][]string{}, granted: map[string][]string{}}
}

func (f *fakeChannels) CreateTicketChannel(ctx context.Context, owner domain.ChatUser) (string, error) {
	if f.CreateTicketChannelFunc != nil {
		return f.CreateTicketChannelFunc(ctx, owner)
	}
	return "ticket-" + owner.ID, nil
}

func (f *fakeChannels) PostTicketControls(_ context.Context, channelID string, _ domain.ChatUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, channelID)
	return nil
}

func (f *fakeChannels) SendToChannel(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], text)
	return nil
}

func (f *fakeChannels) GrantAccess(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[channelID] = append(f.granted[channelID], userID)
	return nil
}

func (f *fakeChannels) DeleteChannel(ctx context.Context, channelID, reason string) error {
	if f.DeleteChannelFunc != nil {
		return f.DeleteChannelFunc(ctx, channelID, reason)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	return nil
}

type fakeMessenger struct {
	SendDirectFunc func(ctx context.Context, userID, text string) error

	mu   sync.Mutex
	sent map[string][]string
}

func (f *fakeMessenger) SendDirect(ctx context.Context, userID, text string) error {
	if f.SendDirectFunc != nil {
		return f.SendDirectFunc(ctx, userID, text)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[string][]string{}
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (f *fakeAlerter) Alert(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, text)
	return nil
}

type fakeBookingNotifier struct {
	SendBookingConfirmationFunc func(ctx context.Context, userID string, booking domain.Booking) error

	calls []string
}

func (f *fakeBookingNotifier) SendBookingConfirmation(ctx context.Context, userID string, booking domain.Booking) error {
	f.calls = append(f.calls, userID)
	if f.SendBookingConfirmationFunc != nil {
		return f.SendBookingConfirmationFunc(ctx, userID, booking)
	}
	return nil
}

type fakeFetcher struct {
	FetchFunc func(ctx context.Context, url string, limit int64) ([]byte, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	return f.FetchFunc(ctx, url, limit)
}

type fakeSearcher struct {
	SearchFunc func(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	return f.SearchFunc(ctx, query, limit)
}
