package service

import (
	"context"
	"fmt"

	"github.com/vistachat/vistachat/internal/model"
)

// DefaultHistoryListLimit is the page size of the history endpoint.
const DefaultHistoryListLimit = 50

// HistoryService lists an account's past interactions.
type HistoryService struct {
	interactions InteractionStore
	limit        int
}

// NewHistoryService creates a HistoryService returning at most limit records.
func NewHistoryService(interactions InteractionStore, limit int) *HistoryService {
	if limit <= 0 {
		limit = DefaultHistoryListLimit
	}
	return &HistoryService{interactions: interactions, limit: limit}
}

// List returns the newest records for accountID, never nil.
func (s *HistoryService) List(ctx context.Context, accountID string) ([]*model.Interaction, error) {
	records, err := s.interactions.ListInteractionsByAccount(ctx, accountID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	if records == nil {
		records = make([]*model.Interaction, 0)
	}
	return records, nil
}
