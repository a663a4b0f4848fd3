package types

import "time"

// TicketState is the lifecycle state of a ticket.
type TicketState string

const (
	StateUnassigned TicketState = "UNASSIGNED"
	StateInProgress TicketState = "IN_PROGRESS"
	StateClosed     TicketState = "CLOSED"
)

// ParseTicketState maps a raw state string to a TicketState.
func ParseTicketState(raw string) (TicketState, bool) {
	switch TicketState(raw) {
	case StateUnassigned, StateInProgress, StateClosed:
		return TicketState(raw), true
	}
	return "", false
}

// TicketCategory is the fixed classification of a ticket.
type TicketCategory string

const (
	CategoryAccountManagement TicketCategory = "ACCOUNT_MANAGEMENT"
	CategoryHardware          TicketCategory = "HARDWARE"
	CategoryProgramsTools     TicketCategory = "PROGRAMS_TOOLS"
	CategoryNetwork           TicketCategory = "NETWORK"
	CategoryOther             TicketCategory = "OTHER"
)

// ParseTicketCategory maps a raw category string to a TicketCategory.
func ParseTicketCategory(raw string) (TicketCategory, bool) {
	switch TicketCategory(raw) {
	case CategoryAccountManagement, CategoryHardware, CategoryProgramsTools,
		CategoryNetwork, CategoryOther:
		return TicketCategory(raw), true
	}
	return "", false
}

// Ticket represents a support request.
type Ticket struct {
	// ID is the system-assigned sequential identifier.
	ID int64 `json:"ticketId" db:"ticket_id"`

	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	State       TicketState    `json:"ticketState" db:"ticket_state"`
	Category    TicketCategory `json:"ticketCategory" db:"ticket_category"`

	// CreatorEmail references the account that filed the ticket.
	// It is set at creation and never changes.
	CreatorEmail string `json:"creatorEmail" db:"creator_email"`

	// AssignedSupportEmail is nil while no support user is assigned.
	AssignedSupportEmail *string `json:"assignedSupportEmail" db:"assigned_support_email"`

	CreateDate time.Time  `json:"createDate" db:"create_date"`
	UpdateDate time.Time  `json:"updateDate" db:"update_date"`
	ClosedDate *time.Time `json:"closedDate" db:"closed_date"`
}

// Sort fields accepted by the ticket list query. Anything else silently
// falls back to SortByUpdateDate.
const (
	SortByCreateDate = "createDate"
	SortByUpdateDate = "updateDate"
)

// Sort directions accepted by the ticket list query. Anything else
// silently falls back to SortDesc.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// TicketQuery carries the optional search, filter, and sort parameters of
// the ticket list operation.
type TicketQuery struct {
	// Search is matched as a case-sensitive substring of the ticket
	// title, the creator username, or the assigned-support username.
	// Blank (empty after trimming) means no search narrowing.
	Search string

	// State and Category are optional equality filters; nil matches
	// everything.
	State    *TicketState
	Category *TicketCategory

	// CreatorEmail restricts the result to tickets filed by one account.
	// Used by the my-tickets scope; never populated from request input.
	CreatorEmail string

	Sort      string
	Direction string
}

// TicketSummary is the list-item projection of a ticket.
type TicketSummary struct {
	ID                      int64          `json:"ticketId"`
	Title                   string         `json:"title"`
	State                   TicketState    `json:"ticketState"`
	Category                TicketCategory `json:"ticketCategory"`
	CreateDate              time.Time      `json:"createDate"`
	UpdateDate              time.Time      `json:"updateDate"`
	ClosedDate              *time.Time     `json:"closedDate"`
	CreatorUsername         string         `json:"creatorUsername"`
	CreatorEmail            string         `json:"creatorEmail"`
	AssignedSupportUsername *string        `json:"assignedSupportUsername"`
}

// TicketDetail is the single-ticket projection including its comments.
type TicketDetail struct {
	ID                      int64           `json:"ticketId"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	State                   TicketState     `json:"ticketState"`
	Category                TicketCategory  `json:"ticketCategory"`
	CreateDate              time.Time       `json:"createDate"`
	UpdateDate              time.Time       `json:"updateDate"`
	ClosedDate              *time.Time      `json:"closedDate"`
	CreatorUsername         string          `json:"creatorUsername"`
	CreatorEmail            string          `json:"creatorEmail"`
	AssignedSupportUsername *string         `json:"assignedSupportUsername"`
	Comments                []CommentDetail `json:"comments"`
}
