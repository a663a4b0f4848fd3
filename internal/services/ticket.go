package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/helpdesk-io/apiserver/internal/store"
	"github.com/helpdesk-io/apiserver/types"
)

// TicketRepository defines persistence operations for tickets.
type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (types.Ticket, error)
	Create(ctx context.Context, ticket types.Ticket) (types.Ticket, error)
	ListAll(ctx context.Context) ([]types.TicketSummary, error)
}

// CommentRepository defines persistence operations for ticket comments.
type CommentRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]types.Comment, map[string]string, error)
	CreateWithTouch(ctx context.Context, comment types.Comment) error
}

// ViewRepository records last-viewed markers for ticket detail reads.
type ViewRepository interface {
	Upsert(ctx context.Context, ticketID int64, userEmail string, at time.Time) error
}

// TicketService implements ticket creation, querying, and commenting.
type TicketService struct {
	tickets  TicketRepository
	comments CommentRepository
	views    ViewRepository
	users    UserRepository

	now func() time.Time
}

func NewTicketService(tickets TicketRepository, comments CommentRepository, views ViewRepository, users UserRepository) *TicketService {
	return &TicketService{
		tickets:  tickets,
		comments: comments,
		views:    views,
		users:    users,
		now:      time.Now,
	}
}

// CreateTicket files a new ticket for the caller. Only end users may file
// tickets. The ticket starts unassigned with matching create and update
// timestamps and no closed date.
func (s *TicketService) CreateTicket(ctx context.Context, caller string, title, description string, category types.TicketCategory) (types.TicketDetail, error) {
	user, err := resolveCaller(ctx, s.users, caller)
	if err != nil {
		return types.TicketDetail{}, err
	}
	if !canCreateTicket(user.Role) {
		return types.TicketDetail{}, ErrForbidden
	}

	now := s.now()
	ticket, err := s.tickets.Create(ctx, types.Ticket{
		Title:        title,
		Description:  description,
		State:        types.StateUnassigned,
		Category:     category,
		CreatorEmail: user.Email,
		CreateDate:   now,
		UpdateDate:   now,
	})
	if err != nil {
		return types.TicketDetail{}, fmt.Errorf("create ticket: %w", err)
	}

	detail := projectDetail(ticket, user.Username, nil, nil)
	return detail, nil
}

// normalizeQuery applies the silent fallbacks of the list operation: an
// unrecognized sort field becomes updateDate and an unrecognized direction
// becomes DESC. No error is reported for either.
func normalizeQuery(q types.TicketQuery) types.TicketQuery {
	if q.Sort != types.SortByCreateDate && q.Sort != types.SortByUpdateDate {
		q.Sort = types.SortByUpdateDate
	}
	if q.Direction != types.SortAsc && q.Direction != types.SortDesc {
		q.Direction = types.SortDesc
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// matchesQuery decides whether one ticket belongs to the candidate set. The
// search term is a case-sensitive substring of the title, the creator
// username, or the assigned-support username; the description is not
// searched. State and category are independent equality filters.
func matchesQuery(s types.TicketSummary, q types.TicketQuery) bool {
	if q.Search != "" {
		hit := strings.Contains(s.Title, q.Search) ||
			strings.Contains(s.CreatorUsername, q.Search) ||
			(s.AssignedSupportUsername != nil && strings.Contains(*s.AssignedSupportUsername, q.Search))
		if !hit {
			return false
		}
	}
	if q.State != nil && s.State != *q.State {
		return false
	}
	if q.Category != nil && s.Category != *q.Category {
		return false
	}
	if q.CreatorEmail != "" && s.CreatorEmail != q.CreatorEmail {
		return false
	}
	return true
}

// sortSummaries orders candidates by the resolved sort field and direction.
// Equal timestamps are broken by ticket id ascending.
func sortSummaries(summaries []types.TicketSummary, q types.TicketQuery) {
	key := func(s types.TicketSummary) time.Time {
		if q.Sort == types.SortByCreateDate {
			return s.CreateDate
		}
		return s.UpdateDate
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		ki, kj := key(summaries[i]), key(summaries[j])
		if ki.Equal(kj) {
			return summaries[i].ID < summaries[j].ID
		}
		if q.Direction == types.SortAsc {
			return ki.Before(kj)
		}
		return ki.After(kj)
	})
}

func (s *TicketService) queryTickets(ctx context.Context, q types.TicketQuery) ([]types.TicketSummary, error) {
	all, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	q = normalizeQuery(q)
	candidates := []types.TicketSummary{}
	for _, summary := range all {
		if matchesQuery(summary, q) {
			candidates = append(candidates, summary)
		}
	}
	sortSummaries(candidates, q)
	return candidates, nil
}

// ListTickets returns the tickets visible in the global scope, narrowed by
// the optional search term and the optional state and category filters,
// sorted by the requested field and direction. Every authenticated role
// sees the same result set.
func (s *TicketService) ListTickets(ctx context.Context, caller string, q types.TicketQuery) ([]types.TicketSummary, error) {
	if _, err := resolveCaller(ctx, s.users, caller); err != nil {
		return nil, err
	}

	q.CreatorEmail = ""
	return s.queryTickets(ctx, q)
}

// MyTickets returns the tickets filed by the caller, most recently updated
// first. End users only.
func (s *TicketService) MyTickets(ctx context.Context, caller string) ([]types.TicketSummary, error) {
	user, err := resolveCaller(ctx, s.users, caller)
	if err != nil {
		return nil, err
	}
	if !canUseOwnScope(user.Role) {
		return nil, ErrForbidden
	}

	return s.queryTickets(ctx, types.TicketQuery{
		CreatorEmail: user.Email,
		Sort:         types.SortByUpdateDate,
		Direction:    types.SortDesc,
	})
}

// MyTicketByID returns one of the caller's own tickets. End users only. A
// ticket that exists but belongs to another account is reported exactly
// like a missing ticket, so non-owners cannot probe for existence.
func (s *TicketService) MyTicketByID(ctx context.Context, caller string, id int64) (types.TicketDetail, error) {
	user, err := resolveCaller(ctx, s.users, caller)
	if err != nil {
		return types.TicketDetail{}, err
	}
	if !canUseOwnScope(user.Role) {
		return types.TicketDetail{}, ErrForbidden
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TicketDetail{}, ErrNotFound
		}
		return types.TicketDetail{}, fmt.Errorf("load ticket: %w", err)
	}
	if !ownsTicket(user, ticket) {
		return types.TicketDetail{}, ErrNotFound
	}

	support, err := s.supportUsername(ctx, ticket)
	if err != nil {
		return types.TicketDetail{}, err
	}
	return projectDetail(ticket, user.Username, support, nil), nil
}

// GetTicketByID returns any ticket by id, including its full comment list.
// Every authenticated role may read every ticket. The caller's last-viewed
// marker is refreshed as a side effect.
func (s *TicketService) GetTicketByID(ctx context.Context, caller string, id int64) (types.TicketDetail, error) {
	user, err := resolveCaller(ctx, s.users, caller)
	if err != nil {
		return types.TicketDetail{}, err
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TicketDetail{}, ErrNotFound
		}
		return types.TicketDetail{}, fmt.Errorf("load ticket: %w", err)
	}

	comments, usernames, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return types.TicketDetail{}, fmt.Errorf("load comments: %w", err)
	}

	creator, err := s.creatorUsername(ctx, ticket)
	if err != nil {
		return types.TicketDetail{}, err
	}
	support, err := s.supportUsername(ctx, ticket)
	if err != nil {
		return types.TicketDetail{}, err
	}

	// The view marker is auxiliary state; a failed write never fails the read.
	_ = s.views.Upsert(ctx, ticket.ID, user.Email, s.now())

	return projectDetail(ticket, creator, support, projectComments(comments, usernames)), nil
}

// TicketComments returns the comments of a ticket. Reading comments has no
// ownership restriction for any role.
func (s *TicketService) TicketComments(ctx context.Context, caller string, ticketID int64) ([]types.CommentDetail, error) {
	if _, err := resolveCaller(ctx, s.users, caller); err != nil {
		return nil, err
	}

	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	comments, usernames, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return projectComments(comments, usernames), nil
}

// CreateComment attaches a comment to a ticket and refreshes the ticket's
// update date; both writes happen in one atomic unit. End users may only
// comment on their own tickets. A ticket deleted between the existence
// check and the insert surfaces as the same not-found outcome.
func (s *TicketService) CreateComment(ctx context.Context, caller string, ticketID int64, body string) (types.CommentDetail, error) {
	user, err := resolveCaller(ctx, s.users, caller)
	if err != nil {
		return types.CommentDetail{}, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.CommentDetail{}, ErrNotFound
		}
		return types.CommentDetail{}, fmt.Errorf("load ticket: %w", err)
	}

	if !canComment(user, ticket) {
		return types.CommentDetail{}, ErrForbidden
	}

	comment := types.Comment{
		TicketID:    ticket.ID,
		AuthorEmail: user.Email,
		CommentDate: s.now(),
		Body:        body,
	}
	if err := s.comments.CreateWithTouch(ctx, comment); err != nil {
		if errors.Is(err, store.ErrForeignKey) {
			return types.CommentDetail{}, ErrNotFound
		}
		return types.CommentDetail{}, fmt.Errorf("create comment: %w", err)
	}

	return types.CommentDetail{
		TicketID:    comment.TicketID,
		AuthorEmail: comment.AuthorEmail,
		AuthorName:  displayName(user.Username, user.Email),
		CommentDate: comment.CommentDate,
		Body:        comment.Body,
	}, nil
}

func (s *TicketService) creatorUsername(ctx context.Context, ticket types.Ticket) (string, error) {
	creator, err := s.users.GetByEmail(ctx, ticket.CreatorEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load creator: %w", err)
	}
	return creator.Username, nil
}

func (s *TicketService) supportUsername(ctx context.Context, ticket types.Ticket) (*string, error) {
	if ticket.AssignedSupportEmail == nil {
		return nil, nil
	}
	support, err := s.users.GetByEmail(ctx, *ticket.AssignedSupportEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load assigned support: %w", err)
	}
	return &support.Username, nil
}

// displayName prefers the username and falls back to the email when the
// stored username is blank.
func displayName(username, email string) string {
	if strings.TrimSpace(username) == "" {
		return email
	}
	return username
}

func projectComments(comments []types.Comment, usernames map[string]string) []types.CommentDetail {
	details := make([]types.CommentDetail, 0, len(comments))
	for _, c := range comments {
		details = append(details, types.CommentDetail{
			TicketID:    c.TicketID,
			AuthorEmail: c.AuthorEmail,
			AuthorName:  displayName(usernames[c.AuthorEmail], c.AuthorEmail),
			CommentDate: c.CommentDate,
			Body:        c.Body,
		})
	}
	return details
}

func projectDetail(ticket types.Ticket, creatorUsername string, supportUsername *string, comments []types.CommentDetail) types.TicketDetail {
	if comments == nil {
		comments = []types.CommentDetail{}
	}
	return types.TicketDetail{
		ID:                      ticket.ID,
		Title:                   ticket.Title,
		Description:             ticket.Description,
		State:                   ticket.State,
		Category:                ticket.Category,
		CreateDate:              ticket.CreateDate,
		UpdateDate:              ticket.UpdateDate,
		ClosedDate:              ticket.ClosedDate,
		CreatorUsername:         displayName(creatorUsername, ticket.CreatorEmail),
		CreatorEmail:            ticket.CreatorEmail,
		AssignedSupportUsername: supportUsername,
		Comments:                comments,
	}
}
