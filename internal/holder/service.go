// AngelaMos | 2026
// service.go

package holder

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelamos/nestfund/internal/auth"
	"github.com/angelamos/nestfund/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.HolderInfo, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toHolderInfo(record), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.HolderInfo, error) {
	record, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toHolderInfo(record), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.HolderInfo, error) {
	record := &Holder{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleHolder,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	return toHolderInfo(record), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	holderID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, holderID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	holderID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, holderID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, holderID string) (*Holder, error) {
	if holderID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, holderID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	holderID string,
	req UpdateHolderRequest,
) (*Holder, error) {
	if holderID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	record, err := s.repo.GetByID(ctx, holderID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		record.Name = *req.Name
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func toHolderInfo(h *Holder) *auth.HolderInfo {
	return &auth.HolderInfo{
		ID:           h.ID,
		Email:        h.Email,
		Name:         h.Name,
		PasswordHash: h.PasswordHash,
		Role:         h.Role,
		TokenVersion: h.TokenVersion,
	}
}

var _ auth.HolderProvider = (*Service)(nil)
