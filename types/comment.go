package types

import "time"

// Comment is an immutable message attached to a ticket.
//
// The composite of (TicketID, AuthorEmail, CommentDate) is the natural key;
// two comments collide only when the same author comments on the same ticket
// within the timestamp precision of the store.
type Comment struct {
	TicketID    int64     `json:"ticketId" db:"ticket_id"`
	AuthorEmail string    `json:"authorEmail" db:"author_email"`
	CommentDate time.Time `json:"commentDate" db:"comment_date"`
	Body        string    `json:"comment" db:"body"`
}

// CommentDetail is the comment projection returned inside a ticket detail.
// AuthorName is the author's username, falling back to the author email when
// the stored username is blank.
type CommentDetail struct {
	TicketID    int64     `json:"ticketId"`
	AuthorEmail string    `json:"authorEmail"`
	AuthorName  string    `json:"authorName"`
	CommentDate time.Time `json:"commentDate"`
	Body        string    `json:"comment"`
}

// TicketView records when an account last opened a ticket's detail view.
// Keyed by (TicketID, UserEmail); auxiliary state only.
type TicketView struct {
	TicketID   int64     `json:"ticketId" db:"ticket_id"`
	UserEmail  string    `json:"userEmail" db:"user_email"`
	LastViewed time.Time `json:"lastViewed" db:"last_viewed"`
}
