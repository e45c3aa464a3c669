package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/hallbook/internal/auth"
	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/schedule"
)

// Cache holds read views. Implementations must tolerate concurrent use.
type Cache interface {
	ReferenceData(ctx context.Context, load func(ctx context.Context) (domain.ReferenceData, error)) (domain.ReferenceData, error)
	Booking(ctx context.Context, id int64, load func(ctx context.Context) (domain.Booking, error)) (domain.Booking, error)
	InvalidateBooking(ctx context.Context, id int64) error
}

// Notifier receives booking events after commit.
type Notifier interface {
	PublishBookingEvent(ctx context.Context, ev domain.BookingEvent) error
}

type Config struct {
	// Location is the single reference timezone of every hall.
	Location *time.Location
	// SkipPreCheck disables the FindOverlaps query that runs before inserting
	// occurrences. The store constraint still rejects overlaps.
	SkipPreCheck bool
}

type Service struct {
	uow       repository.UnitOfWork
	cache     Cache
	notifiers []Notifier
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func New(
	uow repository.UnitOfWork,
	cache Cache,
	logger *slog.Logger,
	cfg Config,
	notifiers ...Notifier,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if logger == nil {
		logger = slog.Default()
	}

	var ns []Notifier
	for _, n := range notifiers {
		if n != nil {
			ns = append(ns, n)
		}
	}

	return &Service{
		uow:       uow,
		cache:     cache,
		notifiers: ns,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) Location() *time.Location { return s.cfg.Location }

// Create validates p, stores the booking header and inserts its full
// occurrence expansion in one transaction.
//
// Parameters:
//   - ctx: request-scoped context; must carry the authenticated actor.
//   - p: booking fields.
//
// Returns:
//   - int64: the new booking id.
//   - error: *Error of kind UNAUTHORIZED, VALIDATION, LOOKUP_FAILED, CONFLICT or STORAGE_FAILURE.
//     Nothing is stored on error.
func (s *Service) Create(ctx context.Context, p CreateParams) (int64, error) {
	const op = "service.booking.Create"

	actorID, ok := auth.ActorFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("%s:%w", op, newError(KindUnauthorized, "an authenticated actor is required", nil))
	}

	b := p.booking()
	b.CreatedBy = actorID
	normalize(b)

	if b.Status == domain.StatusCancelled {
		return 0, fmt.Errorf("%s:%w", op, validationError("a booking cannot be created cancelled"))
	}
	if err := validate(b); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var id int64

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		repos repository.Repos,
		after func(repository.AfterCommit),
	) error {
		occs, err := s.expand(ctx, repos, b)
		if err != nil {
			return err
		}

		id, err = repos.Bookings().Insert(ctx, b)
		if err != nil {
			return err
		}

		if err := s.placeOccurrences(ctx, repos, id, occs, true); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.publish(ctx, domain.ActionCreated, id, b.Status, b.HallIDs, actorID)
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, classify(err))
	}

	return id, nil
}

// Update merges p over the stored booking and, when scheduling fields
// change, replaces every occurrence. The whole update runs in one
// transaction: on any error the previous header and occurrences remain.
//
// Returns:
//   - error: *Error of kind VALIDATION, NOT_FOUND, LOOKUP_FAILED, CONFLICT or STORAGE_FAILURE.
func (s *Service) Update(ctx context.Context, id int64, p UpdateParams) error {
	const op = "service.booking.Update"

	if p.empty() {
		return fmt.Errorf("%s:%w", op, validationError("no fields to update"))
	}

	actorID, _ := auth.ActorFromContext(ctx)

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		repos repository.Repos,
		after func(repository.AfterCommit),
	) error {
		cur, err := repos.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		next := p.merge(cur)
		normalize(next)

		if !cur.Status.CanTransition(next.Status) {
			return validationError("status cannot change from %s to %s", cur.Status, next.Status)
		}
		if err := validate(next); err != nil {
			return err
		}

		rescheduled := schedulingChanged(cur, next)
		if rescheduled && !cur.Active() {
			return validationError("a cancelled booking cannot be rescheduled")
		}

		var occs []domain.Occurrence
		if rescheduled {
			if occs, err = s.expand(ctx, repos, next); err != nil {
				return err
			}
		}

		if err := repos.Bookings().Update(ctx, next); err != nil {
			return err
		}

		switch {
		case rescheduled:
			if _, err := repos.Occurrences().DeleteByBooking(ctx, id); err != nil {
				return err
			}
			if err := s.placeOccurrences(ctx, repos, id, occs, next.Active()); err != nil {
				return err
			}
		case cur.Active() != next.Active():
			if err := repos.Occurrences().SetActive(ctx, id, next.Active()); err != nil {
				return err
			}
		}

		action := domain.ActionUpdated
		if cur.Active() && !next.Active() {
			action = domain.ActionCancelled
		}
		after(func(ctx context.Context) {
			s.invalidate(ctx, id)
			s.publish(ctx, action, id, next.Status, unionIDs(cur.HallIDs, next.HallIDs), actorID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, classify(err))
	}

	return nil
}

// Cancel moves a booking to cancelled, releasing its halls.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	const op = "service.booking.Cancel"

	status := domain.StatusCancelled
	if err := s.Update(ctx, id, UpdateParams{Status: &status}); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Delete removes a booking and all of its occurrences atomically.
//
// Returns:
//   - error: *Error of kind NOT_FOUND or STORAGE_FAILURE.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.booking.Delete"

	actorID, _ := auth.ActorFromContext(ctx)

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		repos repository.Repos,
		after func(repository.AfterCommit),
	) error {
		cur, err := repos.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		if _, err := repos.Occurrences().DeleteByBooking(ctx, id); err != nil {
			return err
		}
		if err := repos.Bookings().Delete(ctx, id); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.invalidate(ctx, id)
			s.publish(ctx, domain.ActionDeleted, id, cur.Status, cur.HallIDs, actorID)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, classify(err))
	}

	return nil
}

// Get returns one booking header.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "service.booking.Get"

	load := func(ctx context.Context) (domain.Booking, error) {
		var b domain.Booking
		err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
			got, err := repos.Bookings().Get(ctx, id)
			if err != nil {
				return err
			}
			b = *got
			return nil
		})
		return b, err
	}

	var (
		b   domain.Booking
		err error
	)
	if s.cache != nil {
		b, err = s.cache.Booking(ctx, id, load)
	} else {
		b, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return &b, nil
}

// List returns bookings matching f. Limit is capped at 500.
func (s *Service) List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, error) {
	const op = "service.booking.List"

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, validationError("unknown status %q", f.Status))
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, fmt.Errorf("%s:%w", op, validationError("to must not be before from"))
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var out []domain.Booking
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
		var err error
		out, err = repos.Bookings().List(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return out, nil
}

// Occurrences returns the stored expansion of one booking.
func (s *Service) Occurrences(ctx context.Context, id int64) ([]domain.Occurrence, error) {
	const op = "service.booking.Occurrences"

	var out []domain.Occurrence
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
		if _, err := repos.Bookings().Get(ctx, id); err != nil {
			return err
		}
		var err error
		out, err = repos.Occurrences().ListByBooking(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return out, nil
}

// ExpandParams are the scheduling inputs of a preview.
type ExpandParams struct {
	StartDate domain.Date
	EventDays int
	PreDays   int
	PostDays  int
	HallIDs   []int64
	SlotCodes []domain.SlotCode
}

// Expand computes the occurrences a booking with p would occupy without
// storing anything.
func (s *Service) Expand(ctx context.Context, p ExpandParams) ([]domain.Occurrence, error) {
	const op = "service.booking.Expand"

	b := &domain.Booking{
		StartDate: p.StartDate,
		EventDays: p.EventDays,
		PreDays:   p.PreDays,
		PostDays:  p.PostDays,
		HallIDs:   p.HallIDs,
		SlotCodes: p.SlotCodes,
	}
	normalize(b)

	if err := scheduleParams(b).Validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	ref, err := s.ReferenceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if missing := missingHalls(b.HallIDs, ref.Halls); len(missing) > 0 {
		return nil, fmt.Errorf("%s:%w", op, newError(KindLookupFailed, fmt.Sprintf("unknown hall ids %v", missing), nil))
	}

	expander, err := s.expander(ref.Slots)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	occs, err := expander.Expand(scheduleParams(b))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return occs, nil
}

// Conflicts returns the active occurrences of other bookings that occs would
// collide with. excludeBookingID lets an existing booking check its own reschedule.
func (s *Service) Conflicts(ctx context.Context, excludeBookingID int64, occs []domain.Occurrence) ([]domain.Occurrence, error) {
	const op = "service.booking.Conflicts"

	var out []domain.Occurrence
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
		var err error
		out, err = repos.Occurrences().FindOverlaps(ctx, excludeBookingID, occs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return out, nil
}

// HallSchedule returns the active occurrences on a hall between two dates
// (inclusive), as seen in the reference timezone.
func (s *Service) HallSchedule(ctx context.Context, hallID int64, from, to domain.Date) ([]domain.Occurrence, error) {
	const op = "service.booking.HallSchedule"

	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%s:%w", op, validationError("from and to are required"))
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%s:%w", op, validationError("to must not be before from"))
	}
	if !to.Before(from.AddDays(366)) {
		return nil, fmt.Errorf("%s:%w", op, validationError("window must not exceed one year"))
	}

	start := from.In(s.cfg.Location, domain.TimeOfDay{})
	end := to.AddDays(1).In(s.cfg.Location, domain.TimeOfDay{})

	var out []domain.Occurrence
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
		halls, err := repos.Catalog().HallsByIDs(ctx, []int64{hallID})
		if err != nil {
			return err
		}
		if len(halls) == 0 {
			return newError(KindLookupFailed, fmt.Sprintf("unknown hall id %d", hallID), nil)
		}

		out, err = repos.Occurrences().ListByHall(ctx, hallID, start.UTC(), end.UTC())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, classify(err))
	}

	return out, nil
}

// ReferenceData returns the hall and slot catalog.
func (s *Service) ReferenceData(ctx context.Context) (domain.ReferenceData, error) {
	const op = "service.booking.ReferenceData"

	load := func(ctx context.Context) (domain.ReferenceData, error) {
		var ref domain.ReferenceData
		err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repos, _ func(repository.AfterCommit)) error {
			var err error
			if ref.Halls, err = repos.Catalog().Halls(ctx); err != nil {
				return err
			}
			ref.Slots, err = repos.Catalog().Slots(ctx)
			return err
		})
		return ref, err
	}

	var (
		ref domain.ReferenceData
		err error
	)
	if s.cache != nil {
		ref, err = s.cache.ReferenceData(ctx, load)
	} else {
		ref, err = load(ctx)
	}
	if err != nil {
		return domain.ReferenceData{}, fmt.Errorf("%s:%w", op, classify(err))
	}

	return ref, nil
}

// expand resolves halls and slots inside the transaction and expands b.
func (s *Service) expand(ctx context.Context, repos repository.Repos, b *domain.Booking) ([]domain.Occurrence, error) {
	halls, err := repos.Catalog().HallsByIDs(ctx, b.HallIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingHalls(b.HallIDs, halls); len(missing) > 0 {
		return nil, newError(KindLookupFailed, fmt.Sprintf("unknown hall ids %v", missing), nil)
	}

	slots, err := repos.Catalog().Slots(ctx)
	if err != nil {
		return nil, err
	}

	expander, err := s.expander(slots)
	if err != nil {
		return nil, err
	}

	return expander.Expand(scheduleParams(b))
}

func (s *Service) expander(slots []domain.TimeSlot) (*schedule.Expander, error) {
	catalog, err := schedule.NewCatalog(slots)
	if err != nil {
		return nil, newError(KindStorage, "slot catalog is inconsistent", err)
	}
	if catalog.Len() == 0 {
		return nil, newError(KindLookupFailed, schedule.ErrNoApplicableSlots.Error(), schedule.ErrNoApplicableSlots)
	}

	return schedule.NewExpander(catalog, s.cfg.Location), nil
}

// placeOccurrences inserts occs for bookingID. Active sets go through the
// overlap pre-check first so the caller learns which occurrences collide;
// the store's constraint decides in the end.
func (s *Service) placeOccurrences(
	ctx context.Context,
	repos repository.Repos,
	bookingID int64,
	occs []domain.Occurrence,
	active bool,
) error {
	for i := range occs {
		occs[i].BookingID = bookingID
	}

	if active && !s.cfg.SkipPreCheck {
		existing, err := repos.Occurrences().FindOverlaps(ctx, bookingID, occs)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return &Error{
				Kind:      KindConflict,
				Message:   conflictMessage(existing),
				Conflicts: existing,
				Err:       repository.ErrOverlap,
			}
		}
	}

	return repos.Occurrences().InsertBatch(ctx, bookingID, occs, active)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.InvalidateBooking(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate booking cache", "op", "service.booking.invalidate", "booking_id", id, "error", err)
	}
}

func (s *Service) publish(
	ctx context.Context,
	action domain.BookingAction,
	id int64,
	status domain.BookingStatus,
	hallIDs []int64,
	actorID int64,
) {
	ev := domain.BookingEvent{
		Action:    action,
		BookingID: id,
		Status:    status,
		HallIDs:   hallIDs,
		ActorID:   actorID,
		At:        s.now().UTC(),
	}

	for _, n := range s.notifiers {
		if err := n.PublishBookingEvent(ctx, ev); err != nil {
			s.logger.Warn("failed to publish booking event",
				"op", "service.booking.publish",
				"booking_id", id,
				"action", action,
				"error", err,
			)
		}
	}
}

func conflictMessage(existing []domain.Occurrence) string {
	first := existing[0]
	msg := fmt.Sprintf("hall %d is already booked by booking %d from %s to %s",
		first.HallID, first.BookingID,
		first.StartsAt.Format(time.RFC3339), first.EndsAt.Format(time.RFC3339))
	if n := len(existing) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func missingHalls(ids []int64, found []domain.Hall) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, h := range found {
		have[h.ID] = struct{}{}
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func unionIDs(a, b []int64) []int64 {
	return uniqueIDs(append(append([]int64(nil), a...), b...))
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
