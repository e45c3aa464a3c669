package redisx

import "fmt"

const ns = "hallbook:v1"

func KeyReferenceData() string {
	return ns + ":catalog"
}

func KeyBooking(bookingID int64) string {
	return fmt.Sprintf("%s:booking:%d", ns, bookingID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemCreate(actorID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, actorID, idemKey)
}

func ChannelBookingsChanged() string {
	return ns + ":bookings:changed"
}
