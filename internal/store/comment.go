package store

import (
	"context"
	"database/sql"

	"github.com/helpdesk-io/apiserver/types"
)

// CommentRepository handles persistence for ticket comments.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByTicket returns a ticket's comments joined with the author account,
// oldest first. The author name falls back to the email in the service layer.
func (r *CommentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]types.Comment, map[string]string, error) {
	const query = `
		SELECT c.ticket_id, c.author_email, c.comment_date, c.body, u.username
		FROM ticket_comment c
		JOIN user_account u ON u.email = c.author_email
		WHERE c.ticket_id = $1
		ORDER BY c.comment_date ASC`
	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	comments := []types.Comment{}
	usernames := map[string]string{}
	for rows.Next() {
		var (
			c        types.Comment
			username string
		)
		if err := rows.Scan(&c.TicketID, &c.AuthorEmail, &c.CommentDate, &c.Body, &username); err != nil {
			return nil, nil, err
		}
		comments = append(comments, c)
		usernames[c.AuthorEmail] = username
	}
	return comments, usernames, rows.Err()
}

// CreateWithTouch inserts the comment and refreshes the parent ticket's
// update date in one transaction. Either both writes become visible or
// neither does. A foreign-key rejection (the ticket was deleted after the
// caller's existence check) surfaces as ErrForeignKey.
func (r *CommentRepository) CreateWithTouch(ctx context.Context, c types.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insertComment = `
		INSERT INTO ticket_comment (ticket_id, author_email, comment_date, body)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertComment, c.TicketID, c.AuthorEmail, c.CommentDate, c.Body); err != nil {
		return classify(err)
	}

	const touchTicket = `
		UPDATE ticket
		SET update_date = $1
		WHERE ticket_id = $2`
	result, err := tx.ExecContext(ctx, touchTicket, c.CommentDate, c.TicketID)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrForeignKey
	}

	return tx.Commit()
}
