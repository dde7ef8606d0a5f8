package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpsos/fpsbot/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidSpecs = errors.New("invalid specs")
)

const profileDiagnostics = 3

type Profile struct {
	User        domain.User
	Diagnostics []domain.Diagnostic
}

type SpecsInput struct {
	CPU     string
	GPU     string
	RAM     string
	Monitor string
}

type UserUsecase struct {
	users       domain.UserRepository
	diagnostics domain.DiagnosticRepository
}

func NewUserUsecase(users domain.UserRepository, diagnostics domain.DiagnosticRepository) *UserUsecase {
	return &UserUsecase{users: users, diagnostics: diagnostics}
}

// Touch records contact with a chat user, creating them on first sight.
func (u *UserUsecase) Touch(ctx context.Context, chatUser domain.ChatUser) (*domain.User, error) {
	user := &domain.User{ExternalID: chatUser.ID, Username: chatUser.Name()}
	if err := u.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *UserUsecase) RegisterMember(ctx context.Context, join domain.MemberJoin) (*domain.User, error) {
	return u.Touch(ctx, join.Member)
}

func (u *UserUsecase) SaveSpecs(ctx context.Context, chatUser domain.ChatUser, in SpecsInput) (string, error) {
	cpu, gpu, ram := strings.TrimSpace(in.CPU), strings.TrimSpace(in.GPU), strings.TrimSpace(in.RAM)
	if cpu == "" || gpu == "" || ram == "" {
		return "", ErrInvalidSpecs
	}
	specs := fmt.Sprintf("CPU: %s\nGPU: %s\nRAM: %s", cpu, gpu, ram)
	if monitor := strings.TrimSpace(in.Monitor); monitor != "" {
		specs += "\nMonitor: " + monitor
	}

	if _, err := u.Touch(ctx, chatUser); err != nil {
		return "", err
	}
	if err := u.users.UpdateSpecs(ctx, chatUser.ID, specs); err != nil {
		return "", err
	}
	return specs, nil
}

func (u *UserUsecase) Profile(ctx context.Context, externalID string) (*Profile, error) {
	user, err := u.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	diagnostics, err := u.diagnostics.ListByUser(ctx, externalID, profileDiagnostics)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *user, Diagnostics: diagnostics}, nil
}
