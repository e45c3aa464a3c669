package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/hallbook/internal/repository"
	"github.com/kirinyoku/hallbook/internal/schedule"
)

func TestClassify(t *testing.T) {
	cases := map[Kind][]error{
		KindValidation:   {schedule.ErrEventDays, fmt.Errorf("x:%w", schedule.ErrNoHalls)},
		KindLookupFailed: {schedule.ErrNoApplicableSlots, repository.ErrReference},
		KindConflict:     {repository.ErrOverlap, repository.ErrTxAborted},
		KindNotFound:     {fmt.Errorf("memory.BookingRepo.Get:%w", repository.ErrNotFound)},
		KindStorage:      {errors.New("connection reset")},
	}

	for kind, errs := range cases {
		for _, err := range errs {
			got := classify(err)
			assert.Equal(t, kind, KindOf(got), "%v", err)
			assert.ErrorIs(t, got, err)
		}
	}

	assert.Nil(t, classify(nil))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("service.booking.Create:%w", newError(KindConflict, "taken", repository.ErrOverlap))

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, repository.ErrOverlap)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, IsKind(err, KindConflict))
}
