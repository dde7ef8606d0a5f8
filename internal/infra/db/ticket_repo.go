package db

import (
	"context"
	"errors"
	"time"

	"github.com/fpsos/fpsbot/internal/domain"
	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	model := mapTicketToModel(*ticket)
	if model.Status == "" {
		model.Status = string(domain.TicketOpen)
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	ticket.ID = model.ID
	ticket.Status = domain.TicketStatus(model.Status)
	ticket.CreatedAt = model.CreatedAt
	return nil
}

func (r *TicketRepository) GetOpenByUser(ctx context.Context, userID string) (*domain.Ticket, error) {
	return r.firstOpen(ctx, "user_id = ?", userID)
}

func (r *TicketRepository) GetOpenByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	return r.firstOpen(ctx, "channel_id = ?", channelID)
}

// Close is a no-op error for tickets that are missing or already closed.
func (r *TicketRepository) Close(ctx context.Context, ticketID uint) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&ticketModel{}).
		Where("id = ? AND status = ?", ticketID, string(domain.TicketOpen)).
		Updates(map[string]interface{}{"status": string(domain.TicketClosed), "closed_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	var models []ticketModel
	if err := r.db.WithContext(ctx).Where("status = ?", string(domain.TicketOpen)).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(models))
	for _, model := range models {
		tickets = append(tickets, mapTicketToDomain(model))
	}
	return tickets, nil
}

func (r *TicketRepository) firstOpen(ctx context.Context, cond string, arg string) (*domain.Ticket, error) {
	var model ticketModel
	err := r.db.WithContext(ctx).
		Where(cond, arg).
		Where("status = ?", string(domain.TicketOpen)).
		Order("id").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	ticket := mapTicketToDomain(model)
	return &ticket, nil
}

func mapTicketToDomain(model ticketModel) domain.Ticket {
	return domain.Ticket{
		ID:        model.ID,
		UserID:    model.UserID,
		ChannelID: model.ChannelID,
		Status:    domain.TicketStatus(model.Status),
		CreatedAt: model.CreatedAt,
	}
}

func mapTicketToModel(ticket domain.Ticket) ticketModel {
	return ticketModel{
		ID:        ticket.ID,
		UserID:    ticket.UserID,
		ChannelID: ticket.ChannelID,
		Status:    string(ticket.Status),
		CreatedAt: ticket.CreatedAt,
	}
}
