package repository

import (
	"context"
	"fmt"

	"github.com/vistachat/vistachat/internal/model"
)

// AppendInteraction inserts one interaction record. No deduplication is
// performed; every call creates a row.
func (r *Repository) AppendInteraction(ctx context.Context, rec *model.Interaction) error {
	query := `
		INSERT INTO interactions (
			id, session_id, account_id, is_anonymous,
			user_input_text, ai_response, image_url, model_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.AccountID,
		rec.IsAnonymous,
		rec.UserInputText,
		rec.AIResponse,
		rec.ImageURL,
		rec.ModelUsed,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}

	return nil
}

// ListInteractionsByAccount returns up to limit records owned by accountID,
// most recent first. An empty result is not an error.
func (r *Repository) ListInteractionsByAccount(ctx context.Context, accountID string, limit int) ([]*model.Interaction, error) {
	query := `
		SELECT id, session_id, account_id, is_anonymous,
			user_input_text, ai_response, image_url, model_used, created_at
		FROM interactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	records := make([]*model.Interaction, 0, limit)
	for rows.Next() {
		var rec model.Interaction
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.AccountID,
			&rec.IsAnonymous,
			&rec.UserInputText,
			&rec.AIResponse,
			&rec.ImageURL,
			&rec.ModelUsed,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return records, nil
}
