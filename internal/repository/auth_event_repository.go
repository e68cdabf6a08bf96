package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storefront-web/internal/domain"
)

// AuthEventRepository stores auth audit entries.
type AuthEventRepository interface {
	Create(ctx context.Context, event *domain.AuthEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuthEvent, error)
}

type authEventRepository struct {
	pool *pgxpool.Pool
}

// NewAuthEventRepository builds repository.
func NewAuthEventRepository(pool *pgxpool.Pool) AuthEventRepository {
	return &authEventRepository{pool: pool}
}

func (r *authEventRepository) Create(ctx context.Context, event *domain.AuthEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if event.Payload == nil {
		payload = []byte("{}")
	}
	const query = `
        INSERT INTO auth_events (id, event_type, user_id, session_id, path, reason, payload, occurred_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
        ON CONFLICT (id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.UserID,
		event.SessionID,
		event.Path,
		event.Reason,
		payload,
		event.OccurredAt,
	)
	return err
}

func (r *authEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuthEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, event_type, COALESCE(user_id, ''), COALESCE(session_id, ''), COALESCE(path, ''),
               COALESCE(reason, ''), payload, occurred_at
        FROM auth_events WHERE user_id=$1 ORDER BY occurred_at DESC, id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuthEvent
	for rows.Next() {
		var (
			event   domain.AuthEvent
			payload []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.UserID,
			&event.SessionID,
			&event.Path,
			&event.Reason,
			&payload,
			&event.OccurredAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
