package store

import (
	"context"
	"database/sql"
	"time"
)

// ViewRepository records per-account last-viewed timestamps for tickets.
type ViewRepository struct {
	db *sql.DB
}

func NewViewRepository(db *sql.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

// Upsert marks the ticket as viewed by the account at the given instant.
func (r *ViewRepository) Upsert(ctx context.Context, ticketID int64, userEmail string, at time.Time) error {
	const query = `
		INSERT INTO user_ticket_view (ticket_id, user_email, last_viewed)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_id, user_email) DO UPDATE SET last_viewed = EXCLUDED.last_viewed`
	_, err := r.db.ExecContext(ctx, query, ticketID, userEmail, at)
	return classify(err)
}
