package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// TripService manages trips and answers seat availability.
type TripService struct {
	pool    TxBeginner
	trips   TripRepositoryInterface
	seatMap *SeatMap
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewTripService creates a TripService from the shared dependencies.
func NewTripService(d Deps) *TripService {
	d = d.withDefaults()
	return &TripService{
		pool:    d.Pool,
		trips:   d.Trips,
		seatMap: NewSeatMap(d.Seats),
		now:     d.Now,
		newID:   d.NewID,
	}
}

// Create publishes a new trip for companyID.
// Returns ErrInvalidRequest for missing fields, ErrInvalidTrip when the
// arrival is not after the departure or the capacity is outside
// [1, MaxTripCapacity], and ErrPriceOutOfRange for a price outside
// [1, MaxTripPrice].
func (s *TripService) Create(ctx context.Context, companyID uuid.UUID, req *model.CreateTripRequest) (*model.Trip, error) {
	if req == nil || req.Price == nil || req.Capacity == nil {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(req.DepartureCity) == "" || strings.TrimSpace(req.DestinationCity) == "" {
		return nil, ErrInvalidRequest
	}
	if !req.ArrivalTime.After(req.DepartureTime) || !validCapacity(*req.Capacity) {
		return nil, ErrInvalidTrip
	}
	if *req.Price < 1 || *req.Price > model.MaxTripPrice {
		return nil, ErrPriceOutOfRange
	}

	trip := &model.Trip{
		ID:              s.newID(),
		CompanyID:       companyID,
		DepartureCity:   strings.TrimSpace(req.DepartureCity),
		DestinationCity: strings.TrimSpace(req.DestinationCity),
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		Price:           model.Money(*req.Price),
		Capacity:        *req.Capacity,
		CreatedAt:       s.now(),
	}
	if err := s.trips.Insert(ctx, trip); err != nil {
		return nil, storageErr("insert trip", err)
	}
	return trip, nil
}

// Get returns the trip or ErrTripNotFound.
func (s *TripService) Get(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get trip", err)
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// UpdateCapacity raises the capacity of a trip. The trip row is locked so no
// booking can add seats between the count and the update.
// Returns ErrInvalidTrip above MaxTripCapacity, ErrCapacityDecrease for a smaller capacity and
// ErrCapacityBelowBooked when active seats exceed it.
func (s *TripService) UpdateCapacity(ctx context.Context, tripID uuid.UUID, capacity int) (*model.Trip, error) {
	if !validCapacity(capacity) {
		return nil, ErrInvalidTrip
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	trip, err := s.trips.GetForUpdate(ctx, tx, tripID)
	if err != nil {
		return nil, storageErr("lock trip", err)
	}
	if capacity < trip.Capacity {
		return nil, ErrCapacityDecrease
	}

	held, err := s.seatMap.HeldCount(ctx, tx, trip.ID)
	if err != nil {
		return nil, err
	}
	if capacity < held {
		return nil, ErrCapacityBelowBooked
	}

	if capacity != trip.Capacity {
		if err := s.trips.UpdateCapacity(ctx, tx, trip.ID, capacity); err != nil {
			return nil, storageErr("update capacity", err)
		}
		trip.Capacity = capacity
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit capacity", err)
	}
	return trip, nil
}

// Availability returns the seat map of a trip.
func (s *TripService) Availability(ctx context.Context, tripID uuid.UUID) (*model.SeatAvailability, error) {
	trip, err := s.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.seatMap.Availability(ctx, trip)
}

// Search lists upcoming trips matching the filter with their free seat counts.
// Departed trips are never listed; a DepartFrom in the past is raised to now.
// Returns ErrInvalidRequest for an inverted price range or an unknown order.
func (s *TripService) Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, ErrInvalidRequest
	}
	switch filter.SortBy {
	case "":
		filter.SortBy = model.SortByDepartureTime
	case model.SortByDepartureTime, model.SortByPrice:
	default:
		return nil, ErrInvalidRequest
	}
	filter.DepartureCity = strings.TrimSpace(filter.DepartureCity)
	filter.DestinationCity = strings.TrimSpace(filter.DestinationCity)
	if now := s.now(); filter.DepartFrom.Before(now) {
		filter.DepartFrom = now
	}

	trips, err := s.trips.Search(ctx, filter)
	if err != nil {
		return nil, storageErr("search trips", err)
	}
	for i := range trips {
		trips[i].AvailableSeats = AvailableCount(trips[i].Capacity, trips[i].BookedSeats)
	}
	return trips, nil
}

func validCapacity(capacity int) bool {
	return capacity >= 1 && capacity <= model.MaxTripCapacity
}
