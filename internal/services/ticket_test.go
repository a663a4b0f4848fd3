package services

import (
	"context"
	"testing"
	"time"

	"github.com/helpdesk-io/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketFixture struct {
	svc      *TicketService
	users    *fakeUserRepo
	tickets  *fakeTicketRepo
	comments *fakeCommentRepo
	views    *fakeViewRepo
	clock    time.Time
}

func newTicketFixture(users ...types.User) *ticketFixture {
	userRepo := newFakeUserRepo(users...)
	ticketRepo := newFakeTicketRepo(userRepo)
	commentRepo := newFakeCommentRepo(userRepo, ticketRepo)
	viewRepo := newFakeViewRepo()

	f := &ticketFixture{
		svc:      NewTicketService(ticketRepo, commentRepo, viewRepo, userRepo),
		users:    userRepo,
		tickets:  ticketRepo,
		comments: commentRepo,
		views:    viewRepo,
		clock:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *ticketFixture) addTicket(creator string, title string, update time.Time) types.Ticket {
	t, _ := f.tickets.Create(context.Background(), types.Ticket{
		Title:        title,
		Description:  "description of " + title,
		State:        types.StateUnassigned,
		Category:     types.CategoryOther,
		CreatorEmail: creator,
		CreateDate:   update,
		UpdateDate:   update,
	})
	return t
}

var (
	alice   = types.User{Email: "alice@example.com", Username: "alice", Role: types.RoleEndUser}
	bob     = types.User{Email: "bob@example.com", Username: "bob", Role: types.RoleEndUser}
	support = types.User{Email: "sam@example.com", Username: "sam", Role: types.RoleSupportUser}
	admin   = types.User{Email: "ada@example.com", Username: "ada", Role: types.RoleAdminUser}
)

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes state and timestamps", func(t *testing.T) {
		f := newTicketFixture(alice)

		detail, err := f.svc.CreateTicket(ctx, alice.Email, "Broken printer", "It jams.", types.CategoryHardware)
		require.NoError(t, err)

		assert.Equal(t, types.StateUnassigned, detail.State)
		assert.Equal(t, detail.CreateDate, detail.UpdateDate)
		assert.Equal(t, f.clock, detail.CreateDate)
		assert.Nil(t, detail.ClosedDate)
		assert.Nil(t, detail.AssignedSupportUsername)
		assert.Equal(t, "alice", detail.CreatorUsername)
	})

	t.Run("support and admin are denied", func(t *testing.T) {
		f := newTicketFixture(support, admin)

		_, err := f.svc.CreateTicket(ctx, support.Email, "t", "d", types.CategoryOther)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = f.svc.CreateTicket(ctx, admin.Email, "t", "d", types.CategoryOther)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown caller is unauthenticated", func(t *testing.T) {
		f := newTicketFixture()

		_, err := f.svc.CreateTicket(ctx, "ghost@example.com", "t", "d", types.CategoryOther)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestListTicketsSorting(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support)

	base := f.clock
	t1 := f.addTicket(alice.Email, "first", base.Add(1*time.Hour))
	t2 := f.addTicket(bob.Email, "second", base.Add(2*time.Hour))
	t3 := f.addTicket(alice.Email, "third", base.Add(3*time.Hour))

	ids := func(summaries []types.TicketSummary) []int64 {
		out := []int64{}
		for _, s := range summaries {
			out = append(out, s.ID)
		}
		return out
	}

	t.Run("default is updateDate descending", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{})
		require.NoError(t, err)
		assert.Equal(t, []int64{t3.ID, t2.ID, t1.ID}, ids(got))
	})

	t.Run("ascending reverses the order", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{Direction: types.SortAsc})
		require.NoError(t, err)
		assert.Equal(t, []int64{t1.ID, t2.ID, t3.ID}, ids(got))
	})

	t.Run("unrecognized sort and direction fall back silently", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{Sort: "priority", Direction: "sideways"})
		require.NoError(t, err)
		assert.Equal(t, []int64{t3.ID, t2.ID, t1.ID}, ids(got))
	})

	t.Run("equal timestamps break ties by id ascending", func(t *testing.T) {
		g := newTicketFixture(alice)
		at := g.clock
		a := g.addTicket(alice.Email, "a", at)
		b := g.addTicket(alice.Email, "b", at)

		got, err := g.svc.ListTickets(ctx, alice.Email, types.TicketQuery{})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, b.ID}, ids(got))
	})

	t.Run("unauthenticated caller is rejected", func(t *testing.T) {
		_, err := f.svc.ListTickets(ctx, "ghost@example.com", types.TicketQuery{})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestListTicketsSearch(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support)

	matching := f.addTicket(alice.Email, "VPN drops", f.clock)         // creator username "alice"
	titled := f.addTicket(bob.Email, "alice cannot log in", f.clock)   // title contains "alice"
	assigned := f.addTicket(bob.Email, "Other problem", f.clock)       // assigned support below
	unrelated := f.addTicket(bob.Email, "Keyboard broken", f.clock)    // no match
	described := f.addTicket(bob.Email, "Monitor flickers", f.clock)   // only the description mentions alice
	tk := f.tickets.tickets[described.ID]
	tk.Description = "alice saw this too"
	f.tickets.tickets[described.ID] = tk

	supEmail := support.Email
	at := f.tickets.tickets[assigned.ID]
	at.AssignedSupportEmail = &supEmail
	f.tickets.tickets[assigned.ID] = at

	got, err := f.svc.ListTickets(ctx, bob.Email, types.TicketQuery{Search: "alice"})
	require.NoError(t, err)

	ids := map[int64]bool{}
	for _, s := range got {
		ids[s.ID] = true
	}
	assert.True(t, ids[matching.ID], "creator username match")
	assert.True(t, ids[titled.ID], "title match")
	assert.False(t, ids[assigned.ID])
	assert.False(t, ids[unrelated.ID])
	assert.False(t, ids[described.ID], "description is not searched")

	t.Run("assigned support username matches", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, bob.Email, types.TicketQuery{Search: "sam"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, assigned.ID, got[0].ID)
	})

	t.Run("search is case sensitive", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, bob.Email, types.TicketQuery{Search: "ALICE"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("blank search matches everything", func(t *testing.T) {
		got, err := f.svc.ListTickets(ctx, bob.Email, types.TicketQuery{Search: "   "})
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}

func TestListTicketsFilters(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob)

	hw := f.addTicket(alice.Email, "printer", f.clock)
	tk := f.tickets.tickets[hw.ID]
	tk.Category = types.CategoryHardware
	tk.State = types.StateInProgress
	f.tickets.tickets[hw.ID] = tk
	other := f.addTicket(bob.Email, "misc", f.clock.Add(time.Minute))

	state := types.StateInProgress
	category := types.CategoryHardware

	got, err := f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{State: &state})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hw.ID, got[0].ID)

	got, err = f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{Category: &category})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hw.ID, got[0].ID)

	unassigned := types.StateUnassigned
	got, err = f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{State: &unassigned})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	t.Run("search intersects with filters", func(t *testing.T) {
		otherCategory := types.CategoryOther
		got, err := f.svc.ListTickets(ctx, alice.Email, types.TicketQuery{Search: "printer", Category: &otherCategory})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMyTickets(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support, admin)

	mine := f.addTicket(alice.Email, "mine", f.clock)
	newer := f.addTicket(alice.Email, "newer", f.clock.Add(time.Hour))
	f.addTicket(bob.Email, "theirs", f.clock.Add(2*time.Hour))

	t.Run("returns own tickets newest first", func(t *testing.T) {
		got, err := f.svc.MyTickets(ctx, alice.Email)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, mine.ID, got[1].ID)
	})

	t.Run("support and admin are denied", func(t *testing.T) {
		_, err := f.svc.MyTickets(ctx, support.Email)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.svc.MyTickets(ctx, admin.Email)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestMyTicketByID(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support, admin)

	mine := f.addTicket(alice.Email, "mine", f.clock)
	theirs := f.addTicket(bob.Email, "theirs", f.clock)

	t.Run("own ticket is returned", func(t *testing.T) {
		detail, err := f.svc.MyTicketByID(ctx, alice.Email, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, mine.ID, detail.ID)
	})

	t.Run("foreign ticket and missing ticket are indistinguishable", func(t *testing.T) {
		_, errForeign := f.svc.MyTicketByID(ctx, alice.Email, theirs.ID)
		_, errMissing := f.svc.MyTicketByID(ctx, alice.Email, 9999)
		assert.ErrorIs(t, errForeign, ErrNotFound)
		assert.ErrorIs(t, errMissing, ErrNotFound)
	})

	t.Run("support and admin are denied even for existing tickets", func(t *testing.T) {
		_, err := f.svc.MyTicketByID(ctx, support.Email, mine.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.svc.MyTicketByID(ctx, admin.Email, mine.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestGetTicketByID(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support)

	ticket := f.addTicket(alice.Email, "shared", f.clock)

	t.Run("any authenticated role reads any ticket", func(t *testing.T) {
		for _, caller := range []string{alice.Email, bob.Email, support.Email} {
			detail, err := f.svc.GetTicketByID(ctx, caller, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, ticket.ID, detail.ID)
			assert.Equal(t, "alice", detail.CreatorUsername)
		}
	})

	t.Run("records the caller's viewed marker", func(t *testing.T) {
		_, err := f.svc.GetTicketByID(ctx, bob.Email, ticket.ID)
		require.NoError(t, err)
		assert.Contains(t, f.views.marks, "1/bob@example.com")
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := f.svc.GetTicketByID(ctx, alice.Email, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("comment author name falls back to email for blank usernames", func(t *testing.T) {
		ghost := types.User{Email: "ghost@example.com", Username: "  ", Role: types.RoleSupportUser}
		g := newTicketFixture(alice, ghost)
		tk := g.addTicket(alice.Email, "haunted", g.clock)

		_, err := g.svc.CreateComment(ctx, ghost.Email, tk.ID, "boo")
		require.NoError(t, err)

		detail, err := g.svc.GetTicketByID(ctx, alice.Email, tk.ID)
		require.NoError(t, err)
		require.Len(t, detail.Comments, 1)
		assert.Equal(t, "ghost@example.com", detail.Comments[0].AuthorName)
	})
}

func TestTicketComments(t *testing.T) {
	ctx := context.Background()
	f := newTicketFixture(alice, bob, support)

	ticket := f.addTicket(alice.Email, "shared", f.clock)
	_, err := f.svc.CreateComment(ctx, alice.Email, ticket.ID, "first")
	require.NoError(t, err)

	t.Run("reading is not ownership gated", func(t *testing.T) {
		comments, err := f.svc.TicketComments(ctx, bob.Email, ticket.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Equal(t, "first", comments[0].Body)
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := f.svc.TicketComments(ctx, bob.Email, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateComment(t *testing.T) {
	ctx := context.Background()

	t.Run("end user may comment on own ticket only", func(t *testing.T) {
		f := newTicketFixture(alice, bob)
		ticket := f.addTicket(alice.Email, "mine", f.clock)

		_, err := f.svc.CreateComment(ctx, alice.Email, ticket.ID, "ok")
		assert.NoError(t, err)

		// The same account can read the foreign ticket's comments but
		// not write one.
		_, err = f.svc.CreateComment(ctx, bob.Email, ticket.ID, "nope")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.svc.TicketComments(ctx, bob.Email, ticket.ID)
		assert.NoError(t, err)
	})

	t.Run("support and admin may comment anywhere", func(t *testing.T) {
		f := newTicketFixture(alice, support, admin)
		ticket := f.addTicket(alice.Email, "mine", f.clock)

		_, err := f.svc.CreateComment(ctx, support.Email, ticket.ID, "on it")
		assert.NoError(t, err)
		_, err = f.svc.CreateComment(ctx, admin.Email, ticket.ID, "noted")
		assert.NoError(t, err)
	})

	t.Run("touches the parent ticket", func(t *testing.T) {
		f := newTicketFixture(alice)
		ticket := f.addTicket(alice.Email, "mine", f.clock)

		f.clock = f.clock.Add(time.Hour)
		_, err := f.svc.CreateComment(ctx, alice.Email, ticket.ID, "update")
		require.NoError(t, err)

		assert.Equal(t, f.clock, f.tickets.tickets[ticket.ID].UpdateDate)
	})

	t.Run("missing ticket", func(t *testing.T) {
		f := newTicketFixture(alice)

		_, err := f.svc.CreateComment(ctx, alice.Email, 9999, "hello")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ticket deleted mid-call surfaces as not found", func(t *testing.T) {
		f := newTicketFixture(alice)
		ticket := f.addTicket(alice.Email, "doomed", f.clock)

		// The ticket passes the existence check but the insert hits the
		// foreign-key rejection of the concurrent delete.
		f.tickets.deleted[ticket.ID] = true

		_, err := f.svc.CreateComment(ctx, alice.Email, ticket.ID, "too late")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
