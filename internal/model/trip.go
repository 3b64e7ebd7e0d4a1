package model

import (
	"time"

	"github.com/google/uuid"
)

// Money is an amount in integer currency units.
type Money int64

const (
	// MaxTripPrice is the highest per-seat price a trip may carry.
	MaxTripPrice = 1_000_000_000

	// MaxTripCapacity is the largest number of seats a trip may have.
	MaxTripCapacity = 1000
)

// Trip is a scheduled bus trip owned by a company.
type Trip struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"company_id"`
	DepartureCity   string    `json:"departure_city"`
	DestinationCity string    `json:"destination_city"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	Price           Money     `json:"price"`
	Capacity        int       `json:"capacity"`
	CreatedAt       time.Time `json:"-"`
}

// SeatStatus describes a single seat of a trip.
type SeatStatus struct {
	SeatNumber int  `json:"seat_number"`
	Booked     bool `json:"booked"`
}

// SeatAvailability is the seat map of a trip.
type SeatAvailability struct {
	TripID    uuid.UUID    `json:"trip_id"`
	Capacity  int          `json:"capacity"`
	Available int          `json:"available_seats"`
	Seats     []SeatStatus `json:"seats"`
}

// CreateTripRequest is the DTO for creating a trip
type CreateTripRequest struct {
	DepartureCity   string    `json:"departure_city" validate:"required,notblank,max=128"`
	DestinationCity string    `json:"destination_city" validate:"required,notblank,max=128"`
	DepartureTime   time.Time `json:"departure_time" validate:"required"`
	ArrivalTime     time.Time `json:"arrival_time" validate:"required"`
	Price           *int64    `json:"price" validate:"required,gte=1,lte=1000000000"`
	Capacity        *int      `json:"capacity" validate:"required,gte=1,lte=1000"`
}

// UpdateCapacityRequest is the DTO for raising a trip's capacity
type UpdateCapacityRequest struct {
	Capacity *int `json:"capacity" validate:"required,gte=1,lte=1000"`
}

// SearchTripsQuery is the query string of the public trip listing.
type SearchTripsQuery struct {
	DepartureCity   string `query:"departure_city" json:"departure_city" validate:"max=128"`
	DestinationCity string `query:"destination_city" json:"destination_city" validate:"max=128"`
	Date            string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	CompanyID       string `query:"company_id" json:"company_id" validate:"omitempty,uuid"`
	MinPrice        string `query:"min_price" json:"min_price" validate:"omitempty,number"`
	MaxPrice        string `query:"max_price" json:"max_price" validate:"omitempty,number"`
	SortBy          string `query:"sort_by" json:"sort_by" validate:"omitempty,oneof=departure_time price"`
}

// TripSearch filters the public trip listing. Empty fields match everything.
// City filters are case-insensitive substring matches.
type TripSearch struct {
	DepartureCity   string
	DestinationCity string
	CompanyID       *uuid.UUID
	MinPrice        *Money
	MaxPrice        *Money
	// DepartFrom and DepartUntil bound departure_time as [from, until).
	DepartFrom  time.Time
	DepartUntil *time.Time
	SortBy      string
}

// Trip listing orders.
const (
	SortByDepartureTime = "departure_time"
	SortByPrice         = "price"
)

// TripListing is a trip together with its seat counts.
type TripListing struct {
	Trip
	BookedSeats    int `json:"booked_seats"`
	AvailableSeats int `json:"available_seats"`
}
