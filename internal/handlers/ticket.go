package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helpdesk-io/apiserver/internal/services"
	"github.com/helpdesk-io/apiserver/types"
)

// TicketHandler provides HTTP handlers for tickets and their comments.
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler constructs a handler with the provided service.
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// TicketRouter registers ticket routes on the given router. Every route
// requires authentication.
func TicketRouter(r chi.Router, ticketService *services.TicketService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTicketHandler(ticketService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateTicket)
	r.Get("/", handler.ListTickets)
	r.Get("/my", handler.MyTickets)
	r.Get("/my/{ticketID}", handler.MyTicketByID)
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", handler.GetTicket)
		r.Get("/comments", handler.TicketComments)
		r.Post("/comments", handler.CreateComment)
	})
}

// CreateTicket files a new ticket for the authenticated end user.
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	fields := map[string]string{}
	if req.Title == "" {
		fields["title"] = "Title is required"
	}
	if req.Description == "" {
		fields["description"] = "Description is required"
	}
	category, ok := types.ParseTicketCategory(req.Category)
	if !ok {
		fields["ticketCategory"] = "Unknown ticket category"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	detail, err := h.ticketService.CreateTicket(r.Context(), claims.Email, req.Title, req.Description, category)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

// ListTickets returns all tickets, narrowed by the optional search, state,
// and category parameters and ordered by the requested sort field.
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query, err := parseTicketQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.ticketService.ListTickets(r.Context(), claims.Email, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// MyTickets returns the tickets filed by the authenticated user.
func (h *TicketHandler) MyTickets(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := h.ticketService.MyTickets(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// MyTicketByID returns one of the authenticated user's own tickets.
func (h *TicketHandler) MyTicketByID(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTicketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.ticketService.MyTicketByID(r.Context(), claims.Email, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// GetTicket returns any ticket by id, including its comments.
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTicketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.ticketService.GetTicketByID(r.Context(), claims.Email, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// TicketComments returns the comments of a ticket.
func (h *TicketHandler) TicketComments(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTicketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.ticketService.TicketComments(r.Context(), claims.Email, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// CreateComment attaches a comment to a ticket.
func (h *TicketHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTicketID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" {
		writeFieldErrors(w, map[string]string{"comment": "Comment is required"})
		return
	}

	detail, err := h.ticketService.CreateComment(r.Context(), claims.Email, id, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"ticketCategory"`
}

type CreateCommentRequest struct {
	Comment string `json:"comment"`
}

func parseTicketID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "ticketID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid ticket id")
	}
	return id, nil
}

// parseTicketQuery extracts the list parameters. State and category must be
// known values when present; sort and direction are passed through and
// normalized by the service.
func parseTicketQuery(r *http.Request) (types.TicketQuery, error) {
	values := r.URL.Query()

	query := types.TicketQuery{
		Search:    values.Get("search"),
		Sort:      strings.TrimSpace(values.Get("sort")),
		Direction: strings.TrimSpace(values.Get("direction")),
	}

	if raw := strings.TrimSpace(values.Get("state")); raw != "" {
		state, ok := types.ParseTicketState(raw)
		if !ok {
			return types.TicketQuery{}, errors.New("invalid state")
		}
		query.State = &state
	}
	if raw := strings.TrimSpace(values.Get("category")); raw != "" {
		category, ok := types.ParseTicketCategory(raw)
		if !ok {
			return types.TicketQuery{}, errors.New("invalid category")
		}
		query.Category = &category
	}

	return query, nil
}
