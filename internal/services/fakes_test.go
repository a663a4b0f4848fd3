package services

import (
	"context"
	"fmt"
	"time"

	"github.com/helpdesk-io/apiserver/internal/store"
	"github.com/helpdesk-io/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[string]types.User // keyed by email
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]types.User{}}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if _, ok := r.users[user.Email]; ok {
		return types.User{}, store.ErrDuplicate
	}
	r.users[user.Email] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	u, ok := r.users[email]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.users[email] = u
	return nil
}

// fakeHasher is a deterministic PasswordHasher for tests.
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeHasher) Verify(plaintext, digest string) bool {
	return digest == "hashed:"+plaintext
}

// fakeSigner issues inspectable token strings.
type fakeSigner struct{}

func (fakeSigner) Sign(email string, role types.Role) (string, error) {
	return fmt.Sprintf("token:%s:%s", email, role), nil
}

// fakeTicketRepo is an in-memory TicketRepository backed by fakeUserRepo
// for username projection.
type fakeTicketRepo struct {
	users   *fakeUserRepo
	tickets map[int64]types.Ticket
	nextID  int64

	// deleted simulates a concurrent ticket delete between the service's
	// existence check and the comment insert.
	deleted map[int64]bool
}

func newFakeTicketRepo(users *fakeUserRepo) *fakeTicketRepo {
	return &fakeTicketRepo{
		users:   users,
		tickets: map[int64]types.Ticket{},
		nextID:  1,
		deleted: map[int64]bool{},
	}
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (types.Ticket, error) {
	if t, ok := r.tickets[id]; ok {
		return t, nil
	}
	return types.Ticket{}, store.ErrNotFound
}

func (r *fakeTicketRepo) Create(_ context.Context, t types.Ticket) (types.Ticket, error) {
	t.ID = r.nextID
	r.nextID++
	r.tickets[t.ID] = t
	return t, nil
}

func (r *fakeTicketRepo) ListAll(_ context.Context) ([]types.TicketSummary, error) {
	summaries := []types.TicketSummary{}
	for _, t := range r.tickets {
		creator := r.users.users[t.CreatorEmail]
		summary := types.TicketSummary{
			ID:              t.ID,
			Title:           t.Title,
			State:           t.State,
			Category:        t.Category,
			CreateDate:      t.CreateDate,
			UpdateDate:      t.UpdateDate,
			ClosedDate:      t.ClosedDate,
			CreatorUsername: creator.Username,
			CreatorEmail:    t.CreatorEmail,
		}
		if t.AssignedSupportEmail != nil {
			if sup, ok := r.users.users[*t.AssignedSupportEmail]; ok {
				name := sup.Username
				summary.AssignedSupportUsername = &name
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// fakeCommentRepo is an in-memory CommentRepository.
type fakeCommentRepo struct {
	users    *fakeUserRepo
	tickets  *fakeTicketRepo
	comments []types.Comment
}

func newFakeCommentRepo(users *fakeUserRepo, tickets *fakeTicketRepo) *fakeCommentRepo {
	return &fakeCommentRepo{users: users, tickets: tickets}
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]types.Comment, map[string]string, error) {
	matched := []types.Comment{}
	usernames := map[string]string{}
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			matched = append(matched, c)
			usernames[c.AuthorEmail] = r.users.users[c.AuthorEmail].Username
		}
	}
	return matched, usernames, nil
}

func (r *fakeCommentRepo) CreateWithTouch(_ context.Context, c types.Comment) error {
	if r.tickets.deleted[c.TicketID] {
		return store.ErrForeignKey
	}
	t, ok := r.tickets.tickets[c.TicketID]
	if !ok {
		return store.ErrForeignKey
	}
	r.comments = append(r.comments, c)
	t.UpdateDate = c.CommentDate
	r.tickets.tickets[c.TicketID] = t
	return nil
}

// fakeViewRepo records Upsert calls.
type fakeViewRepo struct {
	marks map[string]time.Time
}

func newFakeViewRepo() *fakeViewRepo {
	return &fakeViewRepo{marks: map[string]time.Time{}}
}

func (r *fakeViewRepo) Upsert(_ context.Context, ticketID int64, userEmail string, at time.Time) error {
	r.marks[fmt.Sprintf("%d/%s", ticketID, userEmail)] = at
	return nil
}
