package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
)

// errorMapping binds a domain error to its HTTP status and machine-readable code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{service.ErrTripNotFound, fiber.StatusNotFound, "TRIP_NOT_FOUND"},
	{service.ErrTicketNotFound, fiber.StatusNotFound, "TICKET_NOT_FOUND"},
	{service.ErrCouponNotFound, fiber.StatusNotFound, "COUPON_NOT_FOUND"},
	{service.ErrCompanyNotFound, fiber.StatusNotFound, "COMPANY_NOT_FOUND"},
	{service.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND"},

	{service.ErrTripDeparted, fiber.StatusGone, "TRIP_DEPARTED"},
	{service.ErrCouponExpired, fiber.StatusGone, "COUPON_EXPIRED"},
	{service.ErrCouponExhausted, fiber.StatusGone, "COUPON_EXHAUSTED"},

	{service.ErrInvalidSeat, fiber.StatusBadRequest, "INVALID_SEAT"},
	{service.ErrNoSeatsRequested, fiber.StatusBadRequest, "NO_SEATS"},
	{service.ErrCouponScopeMismatch, fiber.StatusBadRequest, "COUPON_SCOPE_MISMATCH"},
	{service.ErrInvalidTrip, fiber.StatusBadRequest, "INVALID_TRIP"},
	{service.ErrInvalidDiscount, fiber.StatusBadRequest, "INVALID_DISCOUNT"},
	{service.ErrInvalidRequest, fiber.StatusBadRequest, "INVALID_REQUEST"},
	{service.ErrPriceOutOfRange, fiber.StatusUnprocessableEntity, "PRICE_OUT_OF_RANGE"},

	{service.ErrSeatConflict, fiber.StatusConflict, "SEAT_CONFLICT"},
	{service.ErrCouponAlreadyUsed, fiber.StatusConflict, "COUPON_ALREADY_USED"},
	{service.ErrTicketNotCancelable, fiber.StatusConflict, "TICKET_NOT_CANCELABLE"},
	{service.ErrCapacityDecrease, fiber.StatusConflict, "CAPACITY_DECREASE"},
	{service.ErrCapacityBelowBooked, fiber.StatusConflict, "CAPACITY_BELOW_BOOKED"},
	{service.ErrCouponExists, fiber.StatusConflict, "COUPON_EXISTS"},

	{service.ErrInsufficientBalance, fiber.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},

	{service.ErrTooLateToCancel, fiber.StatusForbidden, "TOO_LATE_TO_CANCEL"},
	{service.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// writeError renders err as {"error", "code"} with the mapped status.
// Seat errors carry the offending seat numbers. Anything unmapped is a 500.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		body := fiber.Map{"error": err.Error(), "code": m.code}

		var conflict *service.SeatConflictError
		if errors.As(err, &conflict) {
			body["seats"] = conflict.Seats
		}
		var invalid *service.InvalidSeatError
		if errors.As(err, &invalid) {
			body["seat"] = invalid.Seat
			body["capacity"] = invalid.Capacity
		}

		log.Info().
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("code", m.code).
			Msg("request rejected")
		return c.Status(m.status).JSON(body)
	}

	log.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"code":  "STORAGE_FAILURE",
	})
}

// badRequest renders a 400 with the given message.
func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": code})
}

// formatValidationError converts the first validator failure into a message and code.
// Field names are the JSON names registered by internal/validator.
func formatValidationError(err error) (code, msg string) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "INVALID_REQUEST", "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	if field == "discount_percent" && (fe.Tag() == "gte" || fe.Tag() == "lte") {
		return "INVALID_DISCOUNT", "invalid request: discount_percent must be between 0 and 50"
	}

	switch fe.Tag() {
	case "required":
		return "INVALID_REQUEST", "invalid request: " + field + " is required"
	case "notblank":
		return "INVALID_REQUEST", "invalid request: " + field + " cannot be blank"
	case "gte", "min":
		return "INVALID_REQUEST", "invalid request: " + field + " must be at least " + fe.Param()
	case "lte", "max":
		return "INVALID_REQUEST", "invalid request: " + field + " must be at most " + fe.Param()
	default:
		return "INVALID_REQUEST", "invalid request: " + field + " is invalid"
	}
}

// bindJSON parses and validates the request body into dst.
// When it reports false the 400 response has already been written.
func bindJSON(c *fiber.Ctx, v *validator.Validate, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, badRequest(c, "INVALID_REQUEST", "invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		code, msg := formatValidationError(err)
		return false, badRequest(c, code, msg)
	}
	return true, nil
}

// bindQuery parses and validates the query string into dst.
// When it reports false the 400 response has already been written.
func bindQuery(c *fiber.Ctx, v *validator.Validate, dst any) (bool, error) {
	if err := c.QueryParser(dst); err != nil {
		return false, badRequest(c, "INVALID_REQUEST", "invalid query string")
	}
	if err := v.Struct(dst); err != nil {
		code, msg := formatValidationError(err)
		return false, badRequest(c, code, msg)
	}
	return true, nil
}

// unauthenticated is written when a route lost its Authenticate middleware.
func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required", "code": "UNAUTHENTICATED"})
}

// parseID reads a UUID route parameter.
func parseID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	return id, err == nil
}

// requestID returns the id assigned by the requestid middleware, if any.
func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
