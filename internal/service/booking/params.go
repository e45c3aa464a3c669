package booking

import (
	"regexp"
	"slices"
	"strings"

	"github.com/kirinyoku/hallbook/internal/domain"
	"github.com/kirinyoku/hallbook/internal/schedule"
)

// CreateParams is the input of Service.Create. Status defaults to hold.
type CreateParams struct {
	Title       string
	ClientName  *string
	ClientPhone *string
	Notes       *string
	Status      domain.BookingStatus
	Type        domain.BookingType
	Amount      *int64
	Currency    *string
	StartDate   domain.Date
	EventDays   int
	PreDays     int
	PostDays    int
	HallIDs     []int64
	SlotCodes   []domain.SlotCode
}

func (p CreateParams) booking() *domain.Booking {
	status := p.Status
	if status == "" {
		status = domain.StatusHold
	}

	return &domain.Booking{
		Title:       p.Title,
		ClientName:  p.ClientName,
		ClientPhone: p.ClientPhone,
		Notes:       p.Notes,
		Status:      status,
		Type:        p.Type,
		Amount:      p.Amount,
		Currency:    p.Currency,
		StartDate:   p.StartDate,
		EventDays:   p.EventDays,
		PreDays:     p.PreDays,
		PostDays:    p.PostDays,
		HallIDs:     p.HallIDs,
		SlotCodes:   p.SlotCodes,
	}
}

// UpdateParams is a partial update: nil keeps the stored value. Optional text
// fields are cleared by sending an empty string.
type UpdateParams struct {
	Title       *string
	ClientName  *string
	ClientPhone *string
	Notes       *string
	Status      *domain.BookingStatus
	Type        *domain.BookingType
	Amount      *int64
	Currency    *string
	StartDate   *domain.Date
	EventDays   *int
	PreDays     *int
	PostDays    *int
	HallIDs     *[]int64
	SlotCodes   *[]domain.SlotCode
}

func (p UpdateParams) empty() bool {
	return p == UpdateParams{}
}

// merge applies p over cur and returns the result. cur is not modified.
func (p UpdateParams) merge(cur *domain.Booking) *domain.Booking {
	next := *cur
	next.HallIDs = slices.Clone(cur.HallIDs)
	next.SlotCodes = slices.Clone(cur.SlotCodes)

	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.ClientName != nil {
		next.ClientName = p.ClientName
	}
	if p.ClientPhone != nil {
		next.ClientPhone = p.ClientPhone
	}
	if p.Notes != nil {
		next.Notes = p.Notes
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.Amount != nil {
		next.Amount = p.Amount
	}
	if p.Currency != nil {
		next.Currency = p.Currency
	}
	if p.StartDate != nil {
		next.StartDate = *p.StartDate
	}
	if p.EventDays != nil {
		next.EventDays = *p.EventDays
	}
	if p.PreDays != nil {
		next.PreDays = *p.PreDays
	}
	if p.PostDays != nil {
		next.PostDays = *p.PostDays
	}
	if p.HallIDs != nil {
		next.HallIDs = slices.Clone(*p.HallIDs)
	}
	if p.SlotCodes != nil {
		next.SlotCodes = slices.Clone(*p.SlotCodes)
	}

	return &next
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// normalize trims text, turns empty optional fields into nil and removes
// duplicate hall ids and slot codes.
func normalize(b *domain.Booking) {
	b.Title = strings.TrimSpace(b.Title)
	b.ClientName = trimOptional(b.ClientName)
	b.ClientPhone = trimOptional(b.ClientPhone)
	b.Notes = trimOptional(b.Notes)
	if b.Currency = trimOptional(b.Currency); b.Currency != nil {
		upper := strings.ToUpper(*b.Currency)
		b.Currency = &upper
	}
	b.HallIDs = uniqueIDs(b.HallIDs)
	b.SlotCodes = uniqueCodes(b.SlotCodes)
}

func validate(b *domain.Booking) error {
	if b.Title == "" {
		return validationError("title is required")
	}
	if !b.Status.Valid() {
		return validationError("unknown status %q", b.Status)
	}
	if !b.Type.Valid() {
		return validationError("booking_type must be one of death, mawlid, fatiha, wedding, special")
	}
	if b.Amount != nil && *b.Amount < 0 {
		return validationError("amount must not be negative")
	}
	if b.Currency != nil && !currencyRe.MatchString(*b.Currency) {
		return validationError("currency must be a 3-letter ISO code")
	}
	if b.Currency != nil && b.Amount == nil {
		return validationError("currency requires amount")
	}
	for _, id := range b.HallIDs {
		if id <= 0 {
			return validationError("hall id %d is invalid", id)
		}
	}

	if err := scheduleParams(b).Validate(); err != nil {
		return classify(err)
	}

	return nil
}

func scheduleParams(b *domain.Booking) schedule.Params {
	return schedule.Params{
		StartDate: b.StartDate,
		EventDays: b.EventDays,
		PreDays:   b.PreDays,
		PostDays:  b.PostDays,
		HallIDs:   b.HallIDs,
		SlotCodes: b.SlotCodes,
	}
}

// schedulingChanged reports whether the occurrence expansion of a and b differ.
func schedulingChanged(a, b *domain.Booking) bool {
	return a.StartDate != b.StartDate ||
		a.EventDays != b.EventDays ||
		a.PreDays != b.PreDays ||
		a.PostDays != b.PostDays ||
		!slices.Equal(a.HallIDs, b.HallIDs) ||
		!slices.Equal(a.SlotCodes, b.SlotCodes)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func uniqueCodes(codes []domain.SlotCode) []domain.SlotCode {
	out := make([]domain.SlotCode, 0, len(codes))
	for _, c := range codes {
		c = domain.SlotCode(strings.TrimSpace(string(c)))
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
