package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"openshelf/internal/adapters/persistence/models"
	"openshelf/internal/core/domain"
)

// ============================================================
// Books
// ============================================================

type bookRepo struct {
	st *state
	lk sync.Locker
}

func (r *bookRepo) Create(_ context.Context, book *models.Book) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if book.ID == 0 {
		book.ID = r.st.nextID()
	}
	stampCreate(&book.CreatedAt)
	if book.Availability == "" {
		book.Availability = domain.StatusAvailable
	}
	r.st.books[book.ID] = *book
	return nil
}

func (r *bookRepo) GetByID(_ context.Context, id uint) (*models.Book, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	book, ok := r.st.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

// GetByIDForUpdate is identical to GetByID here: the Atomic mutex already
// serializes writers, which is the property the row lock provides.
func (r *bookRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Book, error) {
	return r.GetByID(ctx, id)
}

func (r *bookRepo) UpdateAvailability(_ context.Context, bookID uint, availability domain.Availability) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	book, ok := r.st.books[bookID]
	if !ok {
		return domain.ErrNotFound
	}
	book.Availability = availability
	book.UpdatedAt = time.Now()
	r.st.books[bookID] = book
	return nil
}

func (r *bookRepo) Count(_ context.Context) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	return int64(len(r.st.books)), nil
}

// ============================================================
// Borrows
// ============================================================

type borrowRepo struct {
	st *state
	lk sync.Locker
}

func (r *borrowRepo) Create(_ context.Context, borrow *models.Borrow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if borrow.ID == 0 {
		borrow.ID = r.st.nextID()
	}
	stampCreate(&borrow.CreatedAt)
	if borrow.Status == "" {
		borrow.Status = models.BorrowActive
	}
	r.st.borrows[borrow.ID] = *borrow
	return nil
}

func (r *borrowRepo) GetByID(_ context.Context, id uint) (*models.Borrow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	borrow, ok := r.st.borrows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &borrow, nil
}

func (r *borrowRepo) Update(_ context.Context, borrow *models.Borrow) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.borrows[borrow.ID]; !ok {
		return domain.ErrNotFound
	}
	borrow.UpdatedAt = time.Now()
	r.st.borrows[borrow.ID] = *borrow
	return nil
}

func (r *borrowRepo) GetOpenByBook(_ context.Context, bookID uint) (*models.Borrow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, b := range r.st.borrows {
		if b.BookID == bookID && b.IsOpen() {
			borrow := b
			return &borrow, nil
		}
	}
	return nil, nil
}

func (r *borrowRepo) GetOpenByBookAndPatron(_ context.Context, bookID, patronID uint) (*models.Borrow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, b := range r.st.borrows {
		if b.BookID == bookID && b.PatronID == patronID && b.IsOpen() {
			borrow := b
			return &borrow, nil
		}
	}
	return nil, nil
}

func (r *borrowRepo) CountOpenByPatron(_ context.Context, patronID uint) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var count int64
	for _, b := range r.st.borrows {
		if b.PatronID == patronID && b.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *borrowRepo) HasOverdueByPatron(_ context.Context, patronID uint, asOf time.Time) (bool, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, b := range r.st.borrows {
		if b.PatronID == patronID && b.IsOpen() && (b.Status == models.BorrowOverdue || b.DueAt.Before(asOf)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *borrowRepo) FindOpenDueBefore(_ context.Context, cutoff time.Time) ([]*models.Borrow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []*models.Borrow
	for _, b := range r.st.borrows {
		if b.IsOpen() && b.DueAt.Before(cutoff) {
			borrow := b
			out = append(out, &borrow)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (r *borrowRepo) ListOpenByPatron(_ context.Context, patronID uint) ([]*models.Borrow, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []*models.Borrow
	for _, b := range r.st.borrows {
		if b.PatronID == patronID && b.IsOpen() {
			borrow := b
			out = append(out, &borrow)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

// ============================================================
// Reservations
// ============================================================

type reservationRepo struct {
	st *state
	lk sync.Locker
}

func (r *reservationRepo) Create(_ context.Context, reservation *models.Reservation) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if reservation.ID == 0 {
		reservation.ID = r.st.nextID()
	}
	stampCreate(&reservation.CreatedAt)
	if reservation.Status == "" {
		reservation.Status = models.ReservationActive
	}
	r.st.reservations[reservation.ID] = *reservation
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id uint) (*models.Reservation, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	reservation, ok := r.st.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reservation, nil
}

func (r *reservationRepo) Update(_ context.Context, reservation *models.Reservation) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.reservations[reservation.ID]; !ok {
		return domain.ErrNotFound
	}
	reservation.UpdatedAt = time.Now()
	r.st.reservations[reservation.ID] = *reservation
	return nil
}

func (r *reservationRepo) HeadOf(_ context.Context, bookID uint) (*models.Reservation, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	now := time.Now()
	var head *models.Reservation
	for _, res := range r.st.reservations {
		if res.BookID != bookID || !res.IsActive() || !res.ExpiresAt.After(now) {
			continue
		}
		candidate := res
		if head == nil ||
			candidate.CreatedAt.Before(head.CreatedAt) ||
			(candidate.CreatedAt.Equal(head.CreatedAt) && candidate.ID < head.ID) {
			head = &candidate
		}
	}
	return head, nil
}

func (r *reservationRepo) GetActiveByBookAndPatron(_ context.Context, bookID, patronID uint) (*models.Reservation, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	now := time.Now()
	for _, res := range r.st.reservations {
		if res.BookID == bookID && res.PatronID == patronID && res.IsActive() && res.ExpiresAt.After(now) {
			reservation := res
			return &reservation, nil
		}
	}
	return nil, nil
}

func (r *reservationRepo) CountActiveByBook(_ context.Context, bookID uint) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	now := time.Now()
	var count int64
	for _, res := range r.st.reservations {
		if res.BookID == bookID && res.IsActive() && res.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *reservationRepo) CountActiveByPatron(_ context.Context, patronID uint) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	now := time.Now()
	var count int64
	for _, res := range r.st.reservations {
		if res.PatronID == patronID && res.IsActive() && res.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *reservationRepo) FindActiveExpiredBefore(_ context.Context, asOf time.Time) ([]*models.Reservation, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []*models.Reservation
	for _, res := range r.st.reservations {
		if res.IsActive() && res.ExpiresAt.Before(asOf) {
			reservation := res
			out = append(out, &reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// ============================================================
// Fines
// ============================================================

type fineRepo struct {
	st *state
	lk sync.Locker
}

func (r *fineRepo) Create(_ context.Context, fine *models.Fine) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if fine.ID == 0 {
		fine.ID = r.st.nextID()
	}
	stampCreate(&fine.CreatedAt)
	if fine.Status == "" {
		fine.Status = models.FinePending
	}
	r.st.fines[fine.ID] = *fine
	return nil
}

func (r *fineRepo) GetByID(_ context.Context, id uint) (*models.Fine, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	fine, ok := r.st.fines[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fine, nil
}

func (r *fineRepo) Update(_ context.Context, fine *models.Fine) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if _, ok := r.st.fines[fine.ID]; !ok {
		return domain.ErrNotFound
	}
	fine.UpdatedAt = time.Now()
	r.st.fines[fine.ID] = *fine
	return nil
}

func (r *fineRepo) OutstandingTotalByPatron(_ context.Context, patronID uint) (float64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var total float64
	for _, f := range r.st.fines {
		if f.PatronID == patronID && (f.Status == models.FinePending || f.Status == models.FinePartial) {
			total += f.Amount - f.PaidAmount
		}
	}
	return total, nil
}

func (r *fineRepo) HasOverdueFineSince(_ context.Context, borrowID uint, since time.Time) (bool, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, f := range r.st.fines {
		if f.BorrowID != nil && *f.BorrowID == borrowID &&
			f.Reason == models.FineReasonOverdue && f.Status != models.FineCancelled &&
			!f.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fineRepo) AddPayment(_ context.Context, payment *models.FinePayment) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if payment.ID == 0 {
		payment.ID = r.st.nextID()
	}
	stampCreate(&payment.CreatedAt)
	r.st.payments[payment.ID] = *payment
	return nil
}

func (r *fineRepo) ListPayments(_ context.Context, fineID uint) ([]*models.FinePayment, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	var out []*models.FinePayment
	for _, p := range r.st.payments {
		if p.FineID == fineID {
			payment := p
			out = append(out, &payment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out, nil
}

// ============================================================
// Patrons
// ============================================================

type patronRepo struct {
	st *state
	lk sync.Locker
}

func (r *patronRepo) Create(_ context.Context, patron *models.Patron) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	if patron.ID == 0 {
		patron.ID = r.st.nextID()
	}
	stampCreate(&patron.CreatedAt)
	if patron.Card != nil {
		card := *patron.Card
		if card.ID == 0 {
			card.ID = r.st.nextID()
		}
		card.PatronID = patron.ID
		stampCreate(&card.CreatedAt)
		r.st.cards[card.ID] = card
		patron.Card = &card
	}
	stored := *patron
	stored.Card = nil
	r.st.patrons[patron.ID] = stored
	return nil
}

func (r *patronRepo) GetByID(_ context.Context, id uint) (*models.Patron, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	patron, ok := r.st.patrons[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, c := range r.st.cards {
		if c.PatronID == id {
			card := c
			patron.Card = &card
			break
		}
	}
	return &patron, nil
}

func (r *patronRepo) GetCardByPatron(_ context.Context, patronID uint) (*models.LibraryCard, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	for _, c := range r.st.cards {
		if c.PatronID == patronID {
			card := c
			return &card, nil
		}
	}
	return nil, nil
}

func (r *patronRepo) SuspendCard(_ context.Context, cardID uint, at time.Time) error {
	r.lk.Lock()
	defer r.lk.Unlock()
	card, ok := r.st.cards[cardID]
	if !ok {
		return domain.ErrNotFound
	}
	card.Status = models.CardSuspended
	suspendedAt := at
	card.SuspendedAt = &suspendedAt
	card.UpdatedAt = time.Now()
	r.st.cards[cardID] = card
	return nil
}

func (r *patronRepo) Count(_ context.Context) (int64, error) {
	r.lk.Lock()
	defer r.lk.Unlock()
	return int64(len(r.st.patrons)), nil
}
