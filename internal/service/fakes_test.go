package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/inventory"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/payment"
	"gigfinder-ticketing/internal/queue"
	apperrors "gigfinder-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// fakeStore stands in for Postgres. WithinTx runs one transaction at a time, which is
// the serialization the event and booking row locks give the real database, and
// restores the previous state when fn fails.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	events        map[int]*model.Event
	bookings      map[int]*model.Booking
	nextEventID   int
	nextBookingID int

	// hideRefOnce makes the next FindByPaymentRef miss, as if a concurrent
	// transaction inserted the row after our lookup.
	hideRefOnce bool
}

type fakeSnapshot struct {
	events        map[int]model.Event
	bookings      map[int]model.Booking
	nextBookingID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[int]*model.Event),
		bookings: make(map[int]*model.Booking),
	}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) snapshot() fakeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := fakeSnapshot{
		events:        make(map[int]model.Event, len(s.events)),
		bookings:      make(map[int]model.Booking, len(s.bookings)),
		nextBookingID: s.nextBookingID,
	}
	for id, e := range s.events {
		snap.events[id] = *e
	}
	for id, b := range s.bookings {
		snap.bookings[id] = *b
	}
	return snap
}

func (s *fakeStore) restore(snap fakeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[int]*model.Event, len(snap.events))
	for id, e := range snap.events {
		e := e
		s.events[id] = &e
	}
	s.bookings = make(map[int]*model.Booking, len(snap.bookings))
	for id, b := range snap.bookings {
		b := b
		s.bookings[id] = &b
	}
	s.nextBookingID = snap.nextBookingID
}

func (s *fakeStore) seedEvent(e model.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextEventID++
		e.ID = s.nextEventID
	} else if e.ID > s.nextEventID {
		s.nextEventID = e.ID
	}
	if e.Name == "" {
		e.Name = fmt.Sprintf("Gig %d", e.ID)
	}
	s.events[e.ID] = &e
	return e.ID
}

func (s *fakeStore) event(id int) model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.events[id]
}

func (s *fakeStore) booking(id int) model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.bookings[id]
}

func (s *fakeStore) bookingsWithRef(ref string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bookings {
		if b.ExternalPaymentRef != nil && *b.ExternalPaymentRef == ref {
			n++
		}
	}
	return n
}

func (s *fakeStore) bookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *fakeStore) confirmedQuantity(eventID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, b := range s.bookings {
		if b.EventID == eventID && b.Status == model.BookingStatusConfirmed {
			total += b.Quantity
		}
	}
	return total
}

// fakeEvents implements repository.EventRepository on fakeStore.
type fakeEvents struct{ s *fakeStore }

func (r fakeEvents) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	id := r.s.seedEvent(*event)
	e := r.s.event(id)
	return &e, nil
}

func (r fakeEvents) FindByID(ctx context.Context, id int) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (r fakeEvents) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Event, error) {
	return r.FindByID(ctx, id)
}

func (r fakeEvents) IncrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int, capacity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if e.TicketsSold+quantity > capacity {
		return apperrors.ErrCapacityExceeded
	}
	e.TicketsSold += quantity
	return nil
}

func (r fakeEvents) DecrementSold(ctx context.Context, tx pgx.Tx, id int, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	e.TicketsSold -= quantity
	if e.TicketsSold < 0 {
		e.TicketsSold = 0
	}
	return nil
}

// fakeBookings implements repository.BookingRepository on fakeStore.
type fakeBookings struct{ s *fakeStore }

func (r fakeBookings) find(id int) (*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r fakeBookings) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	return r.find(id)
}

func (r fakeBookings) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error) {
	return r.find(id)
}

func (r fakeBookings) ListByEventID(ctx context.Context, eventID int) ([]*model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Booking, 0)
	for _, b := range r.s.bookings {
		if b.EventID == eventID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeBookings) Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if booking.ExternalPaymentRef != nil {
		for _, b := range r.s.bookings {
			if b.ExternalPaymentRef != nil && *b.ExternalPaymentRef == *booking.ExternalPaymentRef {
				return nil, apperrors.ErrDuplicatePaymentRef
			}
		}
	}
	r.s.nextBookingID++
	cp := *booking
	cp.ID = r.s.nextBookingID
	cp.CreatedAt = time.Now().UTC()
	r.s.bookings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r fakeBookings) FindByPaymentRef(ctx context.Context, tx pgx.Tx, ref string) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.hideRefOnce {
		r.s.hideRefOnce = false
		return nil, apperrors.ErrBookingNotFound
	}
	for _, b := range r.s.bookings {
		if b.ExternalPaymentRef != nil && *b.ExternalPaymentRef == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperrors.ErrBookingNotFound
}

func (r fakeBookings) SetCredential(ctx context.Context, tx pgx.Tx, id int, credential string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.Credential != nil && *b.Credential == credential {
			return fmt.Errorf("credential %s already issued", credential)
		}
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	b.Credential = &credential
	return nil
}

func (r fakeBookings) MarkRefunded(ctx context.Context, tx pgx.Tx, id int, refundRef string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	if b.Status != model.BookingStatusConfirmed {
		return apperrors.ErrAlreadyRefunded
	}
	b.Status = model.BookingStatusRefunded
	b.RefundRef = &refundRef
	b.RefundedAt = &at
	return nil
}

func (r fakeBookings) SetRefundRef(ctx context.Context, tx pgx.Tx, id int, refundRef string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != model.BookingStatusRefunded || b.RefundRef != nil {
		return apperrors.ErrAlreadyRefunded
	}
	b.RefundRef = &refundRef
	return nil
}

func (r fakeBookings) MarkRedeemed(ctx context.Context, tx pgx.Tx, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	if b.RedeemedAt != nil {
		return apperrors.ErrDuplicateScan
	}
	b.RedeemedAt = &at
	return nil
}

const validSignature = "t=1,v1=valid"

type fakeProcessor struct {
	mu          sync.Mutex
	checkouts   []payment.CheckoutRequest
	refundKeys  []string
	refundErr   error
	checkoutErr error
}

func (p *fakeProcessor) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	p.checkouts = append(p.checkouts, req)
	id := fmt.Sprintf("cs_test_%d", len(p.checkouts))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (p *fakeProcessor) Refund(ctx context.Context, paymentRef string, idempotencyKey string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return "", p.refundErr
	}
	p.refundKeys = append(p.refundKeys, idempotencyKey)
	return "re_" + paymentRef, nil
}

func (p *fakeProcessor) ParseWebhook(payload []byte, signature string) (*payment.CompletedPayment, error) {
	if signature != validSignature {
		return nil, apperrors.ErrInvalidSignature
	}
	var paid payment.CompletedPayment
	if err := json.Unmarshal(payload, &paid); err != nil {
		return nil, err
	}
	if paid.PaymentRef == "" {
		return nil, nil
	}
	return &paid, nil
}

func (p *fakeProcessor) refundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refundKeys)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []model.NotificationJob
	err  error
}

func (q *fakeQueue) PublishNotification(ctx context.Context, job *model.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, *job)
	return nil
}

func (q *fakeQueue) SubscribeNotifications(ctx context.Context) (<-chan queue.Delivery, error) {
	return nil, fmt.Errorf("not supported")
}

func (q *fakeQueue) count(kind model.NotificationKind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, j := range q.jobs {
		if j.Kind == kind {
			n++
		}
	}
	return n
}

type harness struct {
	store          *fakeStore
	queue          *fakeQueue
	processor      *fakeProcessor
	cfg            config.BookingConfig
	issuer         *credential.Issuer
	bookings       BookingService
	reconciliation ReconciliationService
	redemption     RedemptionService
	refunds        RefundService
}

func newHarness() *harness {
	store := newFakeStore()
	events := fakeEvents{s: store}
	bookingRepo := fakeBookings{s: store}
	cfg := config.DefaultBookingConfig()
	q := &fakeQueue{}
	processor := &fakeProcessor{}
	issuer := credential.NewIssuer(cfg.CredentialNamespace)
	ledger := inventory.NewLedger(events, nil, cfg)

	bookings := NewBookingService(store, events, bookingRepo, ledger, issuer, q, cfg)
	return &harness{
		store:          store,
		queue:          q,
		processor:      processor,
		cfg:            cfg,
		issuer:         issuer,
		bookings:       bookings,
		reconciliation: NewReconciliationService(events, bookings, processor, cfg),
		redemption:     NewRedemptionService(store, bookingRepo, issuer),
		refunds:        NewRefundService(store, events, bookingRepo, ledger, processor, q, cfg),
	}
}

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }
func strPtr(s string) *string { return &s }
