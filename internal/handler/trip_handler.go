package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/middleware"
	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// TripServiceInterface defines trip management and seat queries.
type TripServiceInterface interface {
	Create(ctx context.Context, companyID uuid.UUID, req *model.CreateTripRequest) (*model.Trip, error)
	UpdateCapacity(ctx context.Context, tripID uuid.UUID, capacity int) (*model.Trip, error)
	Availability(ctx context.Context, tripID uuid.UUID) (*model.SeatAvailability, error)
	Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error)
}

// TripRefunder deletes a trip and refunds its riders.
type TripRefunder interface {
	DeleteTrip(ctx context.Context, tripID uuid.UUID) (*model.RefundSummary, error)
}

// TripAuthorizer resolves a manager's company and trip ownership.
type TripAuthorizer interface {
	CompanyOf(ctx context.Context, p model.Principal) (uuid.UUID, error)
	CanManageTrip(ctx context.Context, p model.Principal, tripID uuid.UUID) error
}

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	trips     TripServiceInterface
	refunds   TripRefunder
	auth      TripAuthorizer
	validator *validator.Validate
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips TripServiceInterface, refunds TripRefunder, auth TripAuthorizer, v *validator.Validate) *TripHandler {
	return &TripHandler{trips: trips, refunds: refunds, auth: auth, validator: v}
}

// Search handles GET /api/trips. Only upcoming trips are listed.
func (h *TripHandler) Search(c *fiber.Ctx) error {
	var q model.SearchTripsQuery
	if ok, err := bindQuery(c, h.validator, &q); !ok {
		return err
	}

	filter, err := tripFilter(&q)
	if err != nil {
		return badRequest(c, "INVALID_REQUEST", "invalid request: "+err.Error())
	}

	trips, err := h.trips.Search(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(trips)
}

// tripFilter converts a validated query into a search filter. A date selects
// trips departing on that UTC calendar day.
func tripFilter(q *model.SearchTripsQuery) (model.TripSearch, error) {
	filter := model.TripSearch{
		DepartureCity:   q.DepartureCity,
		DestinationCity: q.DestinationCity,
		SortBy:          q.SortBy,
	}
	if q.Date != "" {
		day, err := time.Parse(time.DateOnly, q.Date)
		if err != nil {
			return filter, err
		}
		until := day.AddDate(0, 0, 1)
		filter.DepartFrom = day
		filter.DepartUntil = &until
	}
	if q.CompanyID != "" {
		id, err := uuid.Parse(q.CompanyID)
		if err != nil {
			return filter, err
		}
		filter.CompanyID = &id
	}
	for _, p := range []struct {
		raw string
		dst **model.Money
	}{{q.MinPrice, &filter.MinPrice}, {q.MaxPrice, &filter.MaxPrice}} {
		if p.raw == "" {
			continue
		}
		n, err := strconv.ParseInt(p.raw, 10, 64)
		if err != nil {
			return filter, err
		}
		m := model.Money(n)
		*p.dst = &m
	}
	return filter, nil
}

// Seats handles GET /api/trips/:id/seats.
func (h *TripHandler) Seats(c *fiber.Ctx) error {
	tripID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	seats, err := h.trips.Availability(c.Context(), tripID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(seats)
}

// Create handles POST /api/trips for the caller's own company.
func (h *TripHandler) Create(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	var req model.CreateTripRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	companyID, err := h.auth.CompanyOf(c.Context(), p)
	if err != nil {
		return writeError(c, err)
	}

	trip, err := h.trips.Create(c.Context(), companyID, &req)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("trip_id", trip.ID.String()).
		Str("company_id", companyID.String()).
		Int("capacity", trip.Capacity).
		Msg("trip created")

	return c.Status(fiber.StatusCreated).JSON(trip)
}

// UpdateCapacity handles PATCH /api/trips/:id/capacity.
func (h *TripHandler) UpdateCapacity(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	tripID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	var req model.UpdateCapacityRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	if err := h.auth.CanManageTrip(c.Context(), p, tripID); err != nil {
		return writeError(c, err)
	}

	trip, err := h.trips.UpdateCapacity(c.Context(), tripID, *req.Capacity)
	if err != nil {
		return writeError(c, err)
	}

	log.Info().
		Str("request_id", requestID(c)).
		Str("trip_id", tripID.String()).
		Int("capacity", trip.Capacity).
		Msg("trip capacity updated")

	return c.JSON(trip)
}

// Delete handles DELETE /api/trips/:id, refunding every active ticket first.
func (h *TripHandler) Delete(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return unauthenticated(c)
	}
	tripID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "INVALID_REQUEST", "invalid request: id must be a UUID")
	}

	if err := h.auth.CanManageTrip(c.Context(), p, tripID); err != nil {
		return writeError(c, err)
	}

	summary, err := h.refunds.DeleteTrip(c.Context(), tripID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}
