package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/middleware"
	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// BookingServiceInterface defines the seat purchase operation.
type BookingServiceInterface interface {
	Book(ctx context.Context, userID uuid.UUID, req *model.BookingRequest) (*model.BookingResult, error)
}

// CancellationServiceInterface defines the ticket cancellation operation.
type CancellationServiceInterface interface {
	Cancel(ctx context.Context, ticketID uuid.UUID) (*model.CancellationResult, error)
}

// TicketServiceInterface defines ticket queries.
type TicketServiceInterface interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.TicketView, error)
}

// TicketAuthorizer decides who may cancel a ticket.
type TicketAuthorizer interface {
	CanCancelTicket(ctx context.Context, p model.Principal, ticketID uuid.UUID) error
}

// TicketHandler handles HTTP requests for booking, listing and canceling tickets.
type TicketHandler struct {
	booking      BookingServiceInterface
	cancellation CancellationServiceInterface
	tickets      TicketServiceInterface
	auth         TicketAuthorizer
	validator    *validator.Validate
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(
	booking BookingServiceInterface,
	cancellation CancellationServiceInterface,
	tickets TicketServiceInterface,
	auth TicketAuthorizer,
	v *validator.Validate,
) *TicketHandler {
	return &TicketHandler{booking: booking, cancellation: cancellation, tickets: tickets, auth: auth, validator: v}
}

// Book handles POST /api/tickets.
//
// Request body:
//
//	{"trip_id": "<uuid>", "seats": [1, 2], "coupon_code": "SAVE10"}
//
// Responds 201 with the booking result.
func (h *TicketHandler) Book(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req model.BookingRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	res, err := h.booking.Book(c.Context(), p.UserID, &req)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("ticket_id", res.TicketID.String()).
		Str("trip_id", res.TripID.String()).
		Str("user_id", p.UserID.String()).
		Ints("seats", res.Seats).
		Int64("total_price", int64(res.TotalPrice)).
		Msg("ticket booked")

	return c.Status(fiber.StatusCreated).JSON(res)
}

// List handles GET /api/tickets and returns the caller's tickets, newest first.
func (h *TicketHandler) List(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	tickets, err := h.tickets.ListForUser(c.Context(), p.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tickets)
}

// Cancel handles DELETE /api/tickets/:id.
// The owner may always try; a company manager only for their own company's trips.
func (h *TicketHandler) Cancel(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	ticketID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	if err := h.auth.CanCancelTicket(c.Context(), p, ticketID); err != nil {
		return writeError(c, err)
	}

	res, err := h.cancellation.Cancel(c.Context(), ticketID)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("ticket_id", ticketID.String()).
		Str("canceled_by", p.UserID.String()).
		Int64("refunded", int64(res.Refunded)).
		Bool("coupon_restored", res.CouponRestore).
		Msg("ticket canceled")

	return c.JSON(res)
}
