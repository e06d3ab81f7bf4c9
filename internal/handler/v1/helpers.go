package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/service"
	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// FailureResponse carries every message of a failed operation, in order.
type FailureResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
	Code    string   `json:"code,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, messages ...string) {
	c.JSON(status, FailureResponse{Errors: messages})
}

func statusForKind(k service.ErrorKind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidState, service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondResult renders a mutation outcome. Successful values are written with
// okStatus; failures keep the full ordered message list.
func respondResult[T any](c *gin.Context, r service.Result[T], okStatus int) {
	if r.IsSuccess() {
		c.JSON(okStatus, APIResponse[T]{Data: r.Value})
		return
	}
	c.JSON(statusForKind(r.Kind), FailureResponse{Errors: r.Errors, Code: r.Kind.String()})
}

// respondServiceError maps query and auth errors onto HTTP responses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrWeakPassword):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied")

	case errors.Is(err, service.ErrAccountInactive):
		respondError(c, http.StatusForbidden, "account is inactive")

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, FailureResponse{
			Errors: []string{"account temporarily locked"},
			Code:   "ACCOUNT_LOCKED",
		})

	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a positive integer")
		return 0, false
	}
	return id, true
}

// bindOptionalJSON binds a body that may be absent. Chunked requests report
// no content length, so an empty body is detected by the decoder instead.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
	return false
}

// queryID reads an optional positive id from the query string.
func queryID(c *gin.Context, key string) (*int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid "+key+": must be a positive integer")
		return nil, false
	}
	return &id, true
}

// queryTime reads an optional RFC 3339 timestamp or YYYY-MM-DD date. Plain
// dates are shifted by dateOffset.
func queryTime(c *gin.Context, key string, dateOffset time.Duration) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+key+": use YYYY-MM-DD or RFC 3339")
		return nil, false
	}
	t = t.Add(dateOffset)
	return &t, true
}

// sessionOf returns the caller's session. Routes behind Authenticate always
// have one; anything else gets the least privileged view.
func sessionOf(c *gin.Context) domain.Session {
	if s, ok := middleware.SessionFrom(c); ok {
		return s
	}
	return domain.SessionFromClaims(nil)
}
