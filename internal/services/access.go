package services

import "github.com/helpdesk-io/apiserver/types"

// Pure access-control decisions applied by every ticket and comment
// operation. Reading comments carries no ownership restriction for any
// role; writing a comment is ownership-gated for end users. That
// read/write asymmetry is deliberate and must stay.

// canCreateTicket allows only end users to file tickets.
func canCreateTicket(role types.Role) bool {
	return role == types.RoleEndUser
}

// canUseOwnScope gates the my-tickets routes. Support and admin accounts
// never file tickets, so the own-ticket scope is end-user only.
func canUseOwnScope(role types.Role) bool {
	return role == types.RoleEndUser
}

// ownsTicket reports whether the account created the ticket.
func ownsTicket(user types.User, ticket types.Ticket) bool {
	return ticket.CreatorEmail == user.Email
}

// canComment gates comment creation: support and admin users may comment on
// any ticket, end users only on their own.
func canComment(user types.User, ticket types.Ticket) bool {
	switch user.Role {
	case types.RoleSupportUser, types.RoleAdminUser:
		return true
	case types.RoleEndUser:
		return ownsTicket(user, ticket)
	}
	return false
}
