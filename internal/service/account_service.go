package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/repository"
)

// AccountService keeps an in-memory view of connected platform accounts
// so preview surfaces can render without a round trip. Summary
// hydration seeds partial entries from calendar-card data; full records
// loaded from the repository replace them.
type AccountService interface {
	List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error)
	Get(integrationID int64) (*models.SocialAccount, bool)
	Seed(integrationID int64, platform, username string)
	Put(account *models.SocialAccount)
}

type accountService struct {
	mu    sync.Mutex
	cache map[int64]*models.SocialAccount
	sr    repository.SocialAccountRepository
}

func NewAccountService(sr repository.SocialAccountRepository) AccountService {
	return &accountService{
		cache: make(map[int64]*models.SocialAccount),
		sr:    sr,
	}
}

func (s *accountService) List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sr.ListByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing social accounts: %w", err)
	}

	s.mu.Lock()
	for _, acc := range accounts {
		s.cache[acc.ID] = acc
	}
	s.mu.Unlock()

	return accounts, nil
}

func (s *accountService) Get(integrationID int64) (*models.SocialAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.cache[integrationID]
	return acc, ok
}

// Seed stores a partial entry built from summary data. A full entry
// already present wins.
func (s *accountService) Seed(integrationID int64, platform, username string) {
	if integrationID == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[integrationID]; ok {
		return
	}
	s.cache[integrationID] = &models.SocialAccount{
		ID:              integrationID,
		Platform:        platform,
		AccountUsername: username,
	}
}

func (s *accountService) Put(account *models.SocialAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[account.ID] = account
}
