package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/middleware"
	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// asPrincipal stands in for Authenticate in handler tests.
func asPrincipal(p model.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.WithPrincipal(c, p)
		return c.Next()
	}
}

type mockBookingService struct {
	bookFn func(ctx context.Context, userID uuid.UUID, req *model.BookingRequest) (*model.BookingResult, error)
}

func (m *mockBookingService) Book(ctx context.Context, userID uuid.UUID, req *model.BookingRequest) (*model.BookingResult, error) {
	if m.bookFn != nil {
		return m.bookFn(ctx, userID, req)
	}
	return &model.BookingResult{}, nil
}

type mockCancellationService struct {
	cancelFn func(ctx context.Context, ticketID uuid.UUID) (*model.CancellationResult, error)
}

func (m *mockCancellationService) Cancel(ctx context.Context, ticketID uuid.UUID) (*model.CancellationResult, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, ticketID)
	}
	return &model.CancellationResult{TicketID: ticketID, Status: model.TicketCanceled}, nil
}

type mockTicketService struct {
	listFn func(ctx context.Context, userID uuid.UUID) ([]model.TicketView, error)
}

func (m *mockTicketService) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.TicketView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []model.TicketView{}, nil
}

type mockTripService struct {
	createFn         func(ctx context.Context, companyID uuid.UUID, req *model.CreateTripRequest) (*model.Trip, error)
	updateCapacityFn func(ctx context.Context, tripID uuid.UUID, capacity int) (*model.Trip, error)
	availabilityFn   func(ctx context.Context, tripID uuid.UUID) (*model.SeatAvailability, error)
	searchFn         func(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error)
}

func (m *mockTripService) Create(ctx context.Context, companyID uuid.UUID, req *model.CreateTripRequest) (*model.Trip, error) {
	if m.createFn != nil {
		return m.createFn(ctx, companyID, req)
	}
	return &model.Trip{ID: uuid.New(), CompanyID: companyID}, nil
}

func (m *mockTripService) UpdateCapacity(ctx context.Context, tripID uuid.UUID, capacity int) (*model.Trip, error) {
	if m.updateCapacityFn != nil {
		return m.updateCapacityFn(ctx, tripID, capacity)
	}
	return &model.Trip{ID: tripID, Capacity: capacity}, nil
}

func (m *mockTripService) Availability(ctx context.Context, tripID uuid.UUID) (*model.SeatAvailability, error) {
	if m.availabilityFn != nil {
		return m.availabilityFn(ctx, tripID)
	}
	return &model.SeatAvailability{TripID: tripID}, nil
}

func (m *mockTripService) Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return []model.TripListing{}, nil
}

type mockRefundService struct {
	deleteTripFn    func(ctx context.Context, tripID uuid.UUID) (*model.RefundSummary, error)
	deleteCompanyFn func(ctx context.Context, companyID uuid.UUID) (*model.RefundSummary, error)
}

func (m *mockRefundService) DeleteTrip(ctx context.Context, tripID uuid.UUID) (*model.RefundSummary, error) {
	if m.deleteTripFn != nil {
		return m.deleteTripFn(ctx, tripID)
	}
	return &model.RefundSummary{TripsDeleted: 1}, nil
}

func (m *mockRefundService) DeleteCompany(ctx context.Context, companyID uuid.UUID) (*model.RefundSummary, error) {
	if m.deleteCompanyFn != nil {
		return m.deleteCompanyFn(ctx, companyID)
	}
	return &model.RefundSummary{}, nil
}

type mockAuthorizer struct {
	companyOfFn       func(ctx context.Context, p model.Principal) (uuid.UUID, error)
	canManageTripFn   func(ctx context.Context, p model.Principal, tripID uuid.UUID) error
	canCancelTicketFn func(ctx context.Context, p model.Principal, ticketID uuid.UUID) error
}

func (m *mockAuthorizer) CompanyOf(ctx context.Context, p model.Principal) (uuid.UUID, error) {
	if m.companyOfFn != nil {
		return m.companyOfFn(ctx, p)
	}
	return uuid.New(), nil
}

func (m *mockAuthorizer) CanManageTrip(ctx context.Context, p model.Principal, tripID uuid.UUID) error {
	if m.canManageTripFn != nil {
		return m.canManageTripFn(ctx, p, tripID)
	}
	return nil
}

func (m *mockAuthorizer) CanCancelTicket(ctx context.Context, p model.Principal, ticketID uuid.UUID) error {
	if m.canCancelTicketFn != nil {
		return m.canCancelTicketFn(ctx, p, ticketID)
	}
	return nil
}

type mockCouponService struct {
	createFn func(ctx context.Context, p model.Principal, req *model.CreateCouponRequest) (*model.Coupon, error)
	updateFn func(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error)
	checkFn  func(ctx context.Context, userID uuid.UUID, req *model.CheckCouponRequest) (*model.Coupon, error)
}

func (m *mockCouponService) Create(ctx context.Context, p model.Principal, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, req)
	}
	return &model.Coupon{ID: uuid.New(), Code: req.Code}, nil
}

func (m *mockCouponService) Update(ctx context.Context, p model.Principal, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, p, id, req)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponService) Check(ctx context.Context, userID uuid.UUID, req *model.CheckCouponRequest) (*model.Coupon, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, userID, req)
	}
	return &model.Coupon{Code: req.Code}, nil
}
