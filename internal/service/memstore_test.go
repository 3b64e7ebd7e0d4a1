package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

// memStore is an in-memory stand-in for the PostgreSQL schema. Transactions
// are serialized: Begin takes the store lock and snapshots the state, and
// Rollback restores the snapshot. Constraint behavior mirrors the schema
// (unique seats per trip, unique coupon use, cascades, non-negative balance).
// Since no two transactions ever overlap here, row locks and the seat unique
// key are only exercised against PostgreSQL by the integration tests.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   memState
	fail map[string]error
	now  time.Time
}

type memSeat struct {
	TicketID uuid.UUID
	TripID   uuid.UUID
	Number   int
}

type useKey struct {
	CouponID uuid.UUID
	UserID   uuid.UUID
}

type memState struct {
	Companies map[uuid.UUID]bool
	Users     map[uuid.UUID]model.User
	Trips     map[uuid.UUID]model.Trip
	Tickets   map[uuid.UUID]model.Ticket
	Seats     map[uuid.UUID]memSeat
	Coupons   map[uuid.UUID]model.Coupon
	Uses      map[useKey]bool
}

func (s memState) clone() memState {
	return memState{
		Companies: cloneMap(s.Companies),
		Users:     cloneMap(s.Users),
		Trips:     cloneMap(s.Trips),
		Tickets:   cloneMap(s.Tickets),
		Seats:     cloneMap(s.Seats),
		Coupons:   cloneMap(s.Coupons),
		Uses:      cloneMap(s.Uses),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			Companies: map[uuid.UUID]bool{},
			Users:     map[uuid.UUID]model.User{},
			Trips:     map[uuid.UUID]model.Trip{},
			Tickets:   map[uuid.UUID]model.Ticket{},
			Seats:     map[uuid.UUID]memSeat{},
			Coupons:   map[uuid.UUID]model.Coupon{},
			Uses:      map[useKey]bool{},
		},
		fail: map[string]error{},
		now:  t0,
	}
}

func (s *memStore) deps() Deps {
	return Deps{
		Pool:       s,
		Trips:      &memTrips{s},
		Tickets:    &memTickets{s},
		Seats:      &memSeats{s},
		Coupons:    &memCoupons{s},
		CouponUses: &memUses{s},
		Users:      &memUsers{s},
		Companies:  &memCompanies{s},
		Now:        func() time.Time { return s.now },
	}
}

// snapshot returns a copy of the current state for before/after comparisons.
func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

func (s *memStore) failOn(op string, err error) {
	s.fail[op] = err
}

// lock guards state access and reports an injected failure for op.
func (s *memStore) lock(op string) error {
	s.mu.Lock()
	if err, ok := s.fail[op]; ok {
		s.mu.Unlock()
		return err
	}
	return nil
}

// seed helpers

func (s *memStore) addCompany() uuid.UUID {
	id := uuid.New()
	s.st.Companies[id] = true
	return id
}

func (s *memStore) addUser(balance model.Money) uuid.UUID {
	id := uuid.New()
	s.st.Users[id] = model.User{ID: id, Role: model.RoleUser, Balance: balance}
	return id
}

func (s *memStore) addManager(companyID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.st.Users[id] = model.User{ID: id, Role: model.RoleCompany, CompanyID: &companyID}
	return id
}

func (s *memStore) addTrip(companyID uuid.UUID, price model.Money, capacity int, departIn time.Duration) uuid.UUID {
	id := uuid.New()
	s.st.Trips[id] = model.Trip{
		ID:              id,
		CompanyID:       companyID,
		DepartureCity:   "Istanbul",
		DestinationCity: "Ankara",
		DepartureTime:   s.now.Add(departIn),
		ArrivalTime:     s.now.Add(departIn + 6*time.Hour),
		Price:           price,
		Capacity:        capacity,
	}
	return id
}

func (s *memStore) addCoupon(code string, pct model.Percent, limit int, companyID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.st.Coupons[id] = model.Coupon{
		ID:              id,
		Code:            code,
		DiscountPercent: pct,
		CompanyID:       companyID,
		UsageLimit:      limit,
		ExpireDate:      s.now.Add(30 * 24 * time.Hour),
	}
	return id
}

func (s *memStore) balance(userID uuid.UUID) model.Money {
	return s.snapshot().Users[userID].Balance
}

func (s *memStore) coupon(id uuid.UUID) model.Coupon {
	return s.snapshot().Coupons[id]
}

func (s *memStore) seatsOf(ticketID uuid.UUID) []int {
	var out []int
	for _, seat := range s.snapshot().Seats {
		if seat.TicketID == ticketID {
			out = append(out, seat.Number)
		}
	}
	sort.Ints(out)
	return out
}

// Begin implements TxBeginner.
func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	if err, ok := s.fail["Begin"]; ok {
		return nil, err
	}
	s.txMu.Lock()
	return &memTx{store: s, saved: s.snapshot()}, nil
}

// memTx implements pgx.Tx over memStore.
type memTx struct {
	store *memStore
	saved memState
	done  bool
}

func (m *memTx) finish(restore bool) {
	if m.done {
		return
	}
	if restore {
		m.store.mu.Lock()
		m.store.st = m.saved
		m.store.mu.Unlock()
	}
	m.done = true
	m.store.txMu.Unlock()
}

func (m *memTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *memTx) Commit(ctx context.Context) error {
	if err, ok := m.store.fail["Commit"]; ok {
		m.finish(true)
		return err
	}
	m.finish(false)
	return nil
}

func (m *memTx) Rollback(ctx context.Context) error {
	m.finish(true)
	return nil
}

func (m *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *memTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *memTx) Conn() *pgx.Conn {
	return nil
}

// cascade helpers; callers hold s.mu

func (s *memStore) deleteTicketLocked(id uuid.UUID) {
	delete(s.st.Tickets, id)
	for sid, seat := range s.st.Seats {
		if seat.TicketID == id {
			delete(s.st.Seats, sid)
		}
	}
}

func (s *memStore) deleteTripLocked(id uuid.UUID) {
	delete(s.st.Trips, id)
	for tid, t := range s.st.Tickets {
		if t.TripID == id {
			s.deleteTicketLocked(tid)
		}
	}
}

// memTrips implements TripRepositoryInterface.
type memTrips struct{ s *memStore }

func (r *memTrips) Insert(ctx context.Context, trip *model.Trip) error {
	if err := r.s.lock("Trips.Insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if !r.s.st.Companies[trip.CompanyID] {
		return ErrCompanyNotFound
	}
	r.s.st.Trips[trip.ID] = *trip
	return nil
}

func (r *memTrips) GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	if err := r.s.lock("Trips.GetByID"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	trip, ok := r.s.st.Trips[id]
	if !ok {
		return nil, nil
	}
	return &trip, nil
}

func (r *memTrips) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Trip, error) {
	if err := r.s.lock("Trips.GetForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	trip, ok := r.s.st.Trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	return &trip, nil
}

func (r *memTrips) Search(ctx context.Context, filter model.TripSearch) ([]model.TripListing, error) {
	if err := r.s.lock("Trips.Search"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	contains := func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	out := []model.TripListing{}
	for _, t := range r.s.st.Trips {
		switch {
		case filter.DepartureCity != "" && !contains(t.DepartureCity, filter.DepartureCity),
			filter.DestinationCity != "" && !contains(t.DestinationCity, filter.DestinationCity),
			filter.CompanyID != nil && t.CompanyID != *filter.CompanyID,
			filter.MinPrice != nil && t.Price < *filter.MinPrice,
			filter.MaxPrice != nil && t.Price > *filter.MaxPrice,
			t.DepartureTime.Before(filter.DepartFrom),
			filter.DepartUntil != nil && !t.DepartureTime.Before(*filter.DepartUntil):
			continue
		}
		booked := 0
		for _, seat := range r.s.st.Seats {
			if seat.TripID == t.ID {
				booked++
			}
		}
		out = append(out, model.TripListing{Trip: t, BookedSeats: booked})
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.SortBy == model.SortByPrice && out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].DepartureTime.Before(out[j].DepartureTime)
	})
	return out, nil
}

func (r *memTrips) ListUpcomingByCompanyForUpdate(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID, now time.Time) ([]model.Trip, error) {
	if err := r.s.lock("Trips.ListUpcomingByCompanyForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []model.Trip
	for _, t := range r.s.st.Trips {
		if t.CompanyID == companyID && t.DepartureTime.After(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTrips) UpdateCapacity(ctx context.Context, tx database.TxQuerier, id uuid.UUID, capacity int) error {
	if err := r.s.lock("Trips.UpdateCapacity"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	trip, ok := r.s.st.Trips[id]
	if !ok {
		return ErrTripNotFound
	}
	trip.Capacity = capacity
	r.s.st.Trips[id] = trip
	return nil
}

func (r *memTrips) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Trips.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.Trips[id]; !ok {
		return ErrTripNotFound
	}
	r.s.deleteTripLocked(id)
	return nil
}

func (r *memTrips) DeleteByCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error) {
	if err := r.s.lock("Trips.DeleteByCompany"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.st.Trips {
		if t.CompanyID == companyID {
			r.s.deleteTripLocked(id)
			n++
		}
	}
	return n, nil
}

// memTickets implements TicketRepositoryInterface.
type memTickets struct{ s *memStore }

func (r *memTickets) Insert(ctx context.Context, tx database.TxQuerier, ticket *model.Ticket) error {
	if err := r.s.lock("Tickets.Insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.st.Tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTickets) detail(id uuid.UUID) (*model.TicketDetail, error) {
	t, ok := r.s.st.Tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	trip := r.s.st.Trips[t.TripID]
	return &model.TicketDetail{Ticket: t, TripCompanyID: trip.CompanyID, TripDepartureTime: trip.DepartureTime}, nil
}

func (r *memTickets) GetDetail(ctx context.Context, id uuid.UUID) (*model.TicketDetail, error) {
	if err := r.s.lock("Tickets.GetDetail"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.detail(id)
}

func (r *memTickets) GetDetailForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.TicketDetail, error) {
	if err := r.s.lock("Tickets.GetDetailForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.detail(id)
}

func (r *memTickets) ListActiveByTripsForUpdate(ctx context.Context, tx database.TxQuerier, tripIDs []uuid.UUID) ([]model.Ticket, error) {
	if err := r.s.lock("Tickets.ListActiveByTripsForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.s.st.Tickets {
		if t.Status == model.TicketActive && slices.Contains(tripIDs, t.TripID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTickets) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error) {
	if err := r.s.lock("Tickets.ListByUser"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := []model.Ticket{}
	for _, t := range r.s.st.Tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTickets) MarkCanceled(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Tickets.MarkCanceled"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	t, ok := r.s.st.Tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	t.Status = model.TicketCanceled
	r.s.st.Tickets[id] = t
	return nil
}

func (r *memTickets) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Tickets.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.deleteTicketLocked(id)
	return nil
}

// memSeats implements SeatRepositoryInterface.
type memSeats struct{ s *memStore }

func (r *memSeats) ListOccupied(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	if err := r.s.lock("Seats.ListOccupied"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := []int{}
	for _, seat := range r.s.st.Seats {
		if seat.TripID == tripID {
			out = append(out, seat.Number)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *memSeats) FindConflicts(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID, seats []int) ([]int, error) {
	if err := r.s.lock("Seats.FindConflicts"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []int
	for _, seat := range r.s.st.Seats {
		if seat.TripID == tripID && slices.Contains(seats, seat.Number) {
			out = append(out, seat.Number)
		}
	}
	return out, nil
}

func (r *memSeats) CountActive(ctx context.Context, tx database.TxQuerier, tripID uuid.UUID) (int, error) {
	if err := r.s.lock("Seats.CountActive"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	n := 0
	for _, seat := range r.s.st.Seats {
		if seat.TripID == tripID {
			n++
		}
	}
	return n, nil
}

func (r *memSeats) InsertAll(ctx context.Context, tx database.TxQuerier, ticketID, tripID uuid.UUID, seats []int, newID func() uuid.UUID) error {
	if err := r.s.lock("Seats.InsertAll"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, n := range seats {
		for _, seat := range r.s.st.Seats {
			if seat.TripID == tripID && seat.Number == n {
				return &SeatConflictError{Seats: []int{n}}
			}
		}
		r.s.st.Seats[newID()] = memSeat{TicketID: ticketID, TripID: tripID, Number: n}
	}
	return nil
}

func (r *memSeats) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]int, error) {
	if err := r.s.lock("Seats.ListByTicket"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	out := []int{}
	for _, seat := range r.s.st.Seats {
		if seat.TicketID == ticketID {
			out = append(out, seat.Number)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *memSeats) DeleteByTicket(ctx context.Context, tx database.TxQuerier, ticketID uuid.UUID) (int64, error) {
	if err := r.s.lock("Seats.DeleteByTicket"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, seat := range r.s.st.Seats {
		if seat.TicketID == ticketID {
			delete(r.s.st.Seats, id)
			n++
		}
	}
	return n, nil
}

// memCoupons implements CouponRepositoryInterface.
type memCoupons struct{ s *memStore }

func (r *memCoupons) Insert(ctx context.Context, coupon *model.Coupon) error {
	if err := r.s.lock("Coupons.Insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, c := range r.s.st.Coupons {
		if c.Code == coupon.Code {
			return ErrCouponExists
		}
	}
	r.s.st.Coupons[coupon.ID] = *coupon
	return nil
}

func (r *memCoupons) byCode(code string) *model.Coupon {
	for _, c := range r.s.st.Coupons {
		if c.Code == code {
			return &c
		}
	}
	return nil
}

func (r *memCoupons) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if err := r.s.lock("Coupons.GetByCode"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.byCode(code), nil
}

func (r *memCoupons) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	if err := r.s.lock("Coupons.GetByCodeForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	c := r.byCode(code)
	if c == nil {
		return nil, ErrCouponNotFound
	}
	return c, nil
}

func (r *memCoupons) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Coupon, error) {
	if err := r.s.lock("Coupons.GetByIDForUpdate"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	c, ok := r.s.st.Coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

func (r *memCoupons) Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error {
	if err := r.s.lock("Coupons.Update"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.Coupons[coupon.ID]; !ok {
		return ErrCouponNotFound
	}
	for id, c := range r.s.st.Coupons {
		if id != coupon.ID && c.Code == coupon.Code {
			return ErrCouponExists
		}
	}
	r.s.st.Coupons[coupon.ID] = *coupon
	return nil
}

func (r *memCoupons) adjust(id uuid.UUID, delta int) error {
	c, ok := r.s.st.Coupons[id]
	if !ok {
		return ErrCouponNotFound
	}
	c.UsageLimit += delta
	r.s.st.Coupons[id] = c
	return nil
}

func (r *memCoupons) DecrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Coupons.DecrementUsage"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	return r.adjust(id, -1)
}

func (r *memCoupons) IncrementUsage(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Coupons.IncrementUsage"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	return r.adjust(id, 1)
}

// memUses implements CouponUseRepositoryInterface.
type memUses struct{ s *memStore }

func (r *memUses) HasUsed(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	if err := r.s.lock("Uses.HasUsed"); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	return r.s.st.Uses[useKey{couponID, userID}], nil
}

func (r *memUses) Insert(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) error {
	if err := r.s.lock("Uses.Insert"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	k := useKey{couponID, userID}
	if r.s.st.Uses[k] {
		return ErrCouponAlreadyUsed
	}
	r.s.st.Uses[k] = true
	return nil
}

func (r *memUses) Delete(ctx context.Context, tx database.TxQuerier, couponID, userID uuid.UUID) (int64, error) {
	if err := r.s.lock("Uses.Delete"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	k := useKey{couponID, userID}
	if !r.s.st.Uses[k] {
		return 0, nil
	}
	delete(r.s.st.Uses, k)
	return 1, nil
}

// memUsers implements UserRepositoryInterface.
type memUsers struct{ s *memStore }

var errBalanceCheck = errors.New(`new row for relation "users" violates check constraint "users_balance_check"`)

func (r *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := r.s.lock("Users.GetByID"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.st.Users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memUsers) GetBalanceForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (model.Money, error) {
	if err := r.s.lock("Users.GetBalanceForUpdate"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.st.Users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.Balance, nil
}

func (r *memUsers) AdjustBalance(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta model.Money) error {
	if err := r.s.lock("Users.AdjustBalance"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.st.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	if u.Balance+delta < 0 {
		return errBalanceCheck
	}
	u.Balance += delta
	r.s.st.Users[id] = u
	return nil
}

func (r *memUsers) DetachCompany(ctx context.Context, tx database.TxQuerier, companyID uuid.UUID) (int64, error) {
	if err := r.s.lock("Users.DetachCompany"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.st.Users {
		if u.CompanyID != nil && *u.CompanyID == companyID {
			u.CompanyID = nil
			u.Role = model.RoleUser
			r.s.st.Users[id] = u
			n++
		}
	}
	return n, nil
}

// memCompanies implements CompanyRepositoryInterface.
type memCompanies struct{ s *memStore }

func (r *memCompanies) Lock(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Companies.Lock"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if !r.s.st.Companies[id] {
		return ErrCompanyNotFound
	}
	return nil
}

func (r *memCompanies) Delete(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	if err := r.s.lock("Companies.Delete"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if !r.s.st.Companies[id] {
		return ErrCompanyNotFound
	}
	delete(r.s.st.Companies, id)
	for cid, c := range r.s.st.Coupons {
		if c.CompanyID == nil || *c.CompanyID != id {
			continue
		}
		delete(r.s.st.Coupons, cid)
		for k := range r.s.st.Uses {
			if k.CouponID == cid {
				delete(r.s.st.Uses, k)
			}
		}
		for tid, t := range r.s.st.Tickets {
			if t.CouponID != nil && *t.CouponID == cid {
				t.CouponID = nil
				r.s.st.Tickets[tid] = t
			}
		}
	}
	return nil
}
