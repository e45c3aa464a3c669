package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/hallbook/internal/auth"
	"github.com/kirinyoku/hallbook/internal/domain"
	redisx "github.com/kirinyoku/hallbook/internal/redis"
	"github.com/kirinyoku/hallbook/internal/repository"
	redisrepo "github.com/kirinyoku/hallbook/internal/repository/redis"
	"github.com/kirinyoku/hallbook/internal/service/booking"
)

// Idempotency is satisfied by redisrepo.IdempotencyStore.
type Idempotency interface {
	Begin(ctx context.Context, key string) (*redisrepo.IdempotentResponse, bool, error)
	Complete(ctx context.Context, key string, resp redisrepo.IdempotentResponse) error
	Release(ctx context.Context, key string) error
}

// Options are the optional collaborators of the router. Nil fields disable
// the matching feature.
type Options struct {
	Idempotency Idempotency
	Limiter     Limiter
	Logger      *slog.Logger
}

func NewRouter(
	svc *booking.Service,
	verifier TokenVerifier,
	opts Options,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// One canonical request schema: unknown JSON fields are rejected.
	binding.EnableDecoderDisallowUnknownFields = true

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/catalog", handleGetCatalog(svc))
	r.GET("/halls/:id/schedule", handleHallSchedule(svc))

	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if opts.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{RateLimitMiddleware(opts.Limiter, "bookings", logger), h}
	}

	bookings := r.Group("/bookings", AuthMiddleware(verifier))
	{
		bookings.POST("/preview", handlePreview(svc))
		bookings.POST("", write(handleCreateBooking(svc, opts.Idempotency))...)
		bookings.GET("", handleListBookings(svc))
		bookings.GET("/:id", handleGetBooking(svc))
		bookings.GET("/:id/occurrences", handleListOccurrences(svc))
		bookings.PATCH("/:id", write(handleUpdateBooking(svc))...)
		bookings.POST("/:id/cancel", write(handleCancelBooking(svc))...)
		bookings.DELETE("/:id", write(handleDeleteBooking(svc))...)
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Hall and slot catalog
// @Success  200  {object}  domain.ReferenceData
// @Router   /catalog [get]
func handleGetCatalog(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, err := svc.ReferenceData(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, ref, "public, max-age=60", true)
	}
}

// @Summary  Active occurrences of a hall
// @Param    id    path   int     true  "Hall ID"
// @Param    from  query  string  true  "first day (YYYY-MM-DD)"
// @Param    to    query  string  true  "last day (YYYY-MM-DD), inclusive"
// @Success  200  {array}   domain.Occurrence
// @Failure  400  {object}  ErrorResponse
// @Failure  422  {object}  ErrorResponse "unknown hall"
// @Router   /halls/{id}/schedule [get]
func handleHallSchedule(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		hallID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		from, ok := parseDateQuery(c, "from")
		if !ok {
			return
		}
		to, ok := parseDateQuery(c, "to")
		if !ok {
			return
		}

		occs, err := svc.HallSchedule(c.Request.Context(), hallID, from, to)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, nonNil(occs), "private, max-age=5", true)
	}
}

// @Summary  Preview the occurrences and conflicts of a booking
// @Param    req body  PreviewRequest true "payload"
// @Success  200 {object} PreviewResponse
// @Failure  400 {object} ErrorResponse
// @Failure  422 {object} ErrorResponse
// @Router   /bookings/preview [post]
func handlePreview(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		occs, err := svc.Expand(c.Request.Context(), req.params())
		if err != nil {
			respondErr(c, err)
			return
		}

		conflicts, err := svc.Conflicts(c.Request.Context(), req.ExcludeBookingID, occs)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, PreviewResponse{
			Occurrences: nonNil(occs),
			Conflicts:   nonNil(conflicts),
		})
	}
}

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "hall already booked / idem in progress"
// @Failure  422 {object} ErrorResponse "unknown hall or slot"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(svc *booking.Service, idem Idempotency) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			actorID, _ := auth.ActorFromContext(ctx)
			idemStorageKey = redisx.KeyIdemCreate(actorID, idemKey)

			saved, locked, err := idem.Begin(ctx, idemStorageKey)
			switch {
			case err != nil:
				respondErr(c, err)
				return
			case saved != nil:
				c.Header("Idempotency-Key", idemKey)
				c.Data(saved.Status, "application/json; charset=utf-8", saved.Body)
				return
			case locked:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		id, err := svc.Create(ctx, req.params())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{BookingID: id}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.Complete(ctx, idemStorageKey, redisrepo.IdempotentResponse{
				Status: http.StatusCreated,
				Body:   b,
			})
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List bookings
// @Param    hall_id query int    false "hall filter"
// @Param    status  query string false "hold, confirmed or cancelled"
// @Param    from    query string false "occupies a day on or after (YYYY-MM-DD)"
// @Param    to      query string false "occupies a day on or before (YYYY-MM-DD)"
// @Param    limit   query int    false "page size"
// @Param    offset  query int    false "offset"
// @Success  200 {array} domain.Booking
// @Router   /bookings [get]
func handleListBookings(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := repository.BookingFilter{
			Status: domain.BookingStatus(c.Query("status")),
			Limit:  parseIntDefault(c.Query("limit"), 100),
			Offset: parseIntDefault(c.Query("offset"), 0),
		}

		if s := c.Query("hall_id"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				badRequest(c, "invalid hall_id")
				return
			}
			f.HallID = id
		}

		for name, dst := range map[string]*domain.Date{"from": &f.From, "to": &f.To} {
			s := c.Query(name)
			if s == "" {
				continue
			}
			d, err := domain.ParseDate(s)
			if err != nil {
				badRequest(c, "invalid "+name+": "+err.Error())
				return
			}
			*dst = d
		}

		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(list))
	}
}

// @Summary  Get booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		b, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Occurrences of a booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {array}   domain.Occurrence
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id}/occurrences [get]
func handleListOccurrences(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		occs, err := svc.Occurrences(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, nonNil(occs))
	}
}

// @Summary  Update booking (partial)
// @Param    id  path  int  true  "Booking ID"
// @Param    req body  UpdateBookingRequest true "payload"
// @Success  200 {object} domain.Booking
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /bookings/{id} [patch]
func handleUpdateBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svc.Update(c.Request.Context(), id, req.params()); err != nil {
			respondErr(c, err)
			return
		}
		respondBooking(c, svc, id)
	}
}

// @Summary  Cancel booking
// @Param    id  path  int  true  "Booking ID"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svc.Cancel(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		respondBooking(c, svc, id)
	}
}

// @Summary  Delete booking and its occurrences
// @Param    id  path  int  true  "Booking ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [delete]
func handleDeleteBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func respondBooking(c *gin.Context, svc *booking.Service, id int64) {
	b, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseDateQuery(c *gin.Context, name string) (domain.Date, bool) {
	d, err := domain.ParseDate(c.Query(name))
	if err != nil {
		badRequest(c, "invalid "+name+": "+err.Error())
		return domain.Date{}, false
	}
	return d, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: booking.KindValidation})
}

var statusByKind = map[booking.Kind]int{
	booking.KindValidation:   http.StatusBadRequest,
	booking.KindLookupFailed: http.StatusUnprocessableEntity,
	booking.KindUnauthorized: http.StatusUnauthorized,
	booking.KindNotFound:     http.StatusNotFound,
	booking.KindConflict:     http.StatusConflict,
	booking.KindStorage:      http.StatusInternalServerError,
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var e *booking.Error
	if !errors.As(err, &e) || e.Kind == booking.KindStorage {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Kind:  booking.KindStorage,
		})
		return
	}

	status, ok := statusByKind[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Error:     e.Message,
		Kind:      e.Kind,
		Conflicts: e.Conflicts,
	})
}
