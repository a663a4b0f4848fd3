package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/helpdesk-io/apiserver/types"
)

// TicketRepository handles persistence for tickets.
type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `ticket_id, title, description, ticket_state, ticket_category,
		creator_email, assigned_support_email, create_date, update_date, closed_date`

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (types.Ticket, error) {
	const query = `
		SELECT ` + ticketColumns + `
		FROM ticket
		WHERE ticket_id = $1`
	var t types.Ticket
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.State,
		&t.Category,
		&t.CreatorEmail,
		&t.AssignedSupportEmail,
		&t.CreateDate,
		&t.UpdateDate,
		&t.ClosedDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Ticket{}, ErrNotFound
		}
		return types.Ticket{}, err
	}
	return t, nil
}

func (r *TicketRepository) Create(ctx context.Context, t types.Ticket) (types.Ticket, error) {
	const query = `
		INSERT INTO ticket (title, description, ticket_state, ticket_category,
			creator_email, assigned_support_email, create_date, update_date, closed_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ticket_id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		t.Title,
		t.Description,
		t.State,
		t.Category,
		t.CreatorEmail,
		t.AssignedSupportEmail,
		t.CreateDate,
		t.UpdateDate,
		t.ClosedDate,
	).Scan(&t.ID)
	if err != nil {
		return types.Ticket{}, classify(err)
	}
	return t, nil
}

// ListAll returns every ticket as a summary row, joined with the creator
// and assigned-support accounts for username projection. Filtering and
// ordering happen in the service layer; the full set is always returned.
func (r *TicketRepository) ListAll(ctx context.Context) ([]types.TicketSummary, error) {
	const query = `
		SELECT t.ticket_id, t.title, t.ticket_state, t.ticket_category,
			t.create_date, t.update_date, t.closed_date,
			eu.username, eu.email, sup.username
		FROM ticket t
		JOIN user_account eu ON eu.email = t.creator_email
		LEFT JOIN user_account sup ON sup.email = t.assigned_support_email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []types.TicketSummary{}
	for rows.Next() {
		var s types.TicketSummary
		if err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.State,
			&s.Category,
			&s.CreateDate,
			&s.UpdateDate,
			&s.ClosedDate,
			&s.CreatorUsername,
			&s.CreatorEmail,
			&s.AssignedSupportUsername,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
