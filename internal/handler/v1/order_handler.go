package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders OrderService
	now    func() time.Time
}

func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders, now: time.Now}
}

type claimRequest struct {
	DoctorID *int64 `json:"doctor_id"`
}

// GET /orders?filter=&patient_id=&doctor_id=
func (h *OrderHandler) List(c *gin.Context) {
	q := order.ListOrdersQuery{NameFilter: strings.TrimSpace(c.Query("filter"))}
	var ok bool
	if q.PatientID, ok = queryID(c, "patient_id"); !ok {
		return
	}
	if q.DoctorID, ok = queryID(c, "doctor_id"); !ok {
		return
	}

	orders, err := h.orders.List(c.Request.Context(), q, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetByID(c.Request.Context(), id, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, o)
}

func (h *OrderHandler) ListByDocument(c *gin.Context) {
	orders, err := h.orders.ListByPatientDocument(c.Request.Context(), c.Param("document"), sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, orders)
}

// Create stamps the issue date here; clients cannot backdate an order.
func (h *OrderHandler) Create(c *gin.Context) {
	var in order.OrderInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = nil
	in.IssuedAt = h.now()
	service.PrepareOrder(&in)

	respondResult(c, h.orders.Add(c.Request.Context(), &in, sessionOf(c)), http.StatusCreated)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in order.OrderInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = &id
	service.PrepareOrder(&in)

	respondResult(c, h.orders.Modify(c.Request.Context(), &in, sessionOf(c)), http.StatusOK)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.orders.Delete(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}

// Claim accepts an empty body; doctors always claim for themselves.
func (h *OrderHandler) Claim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req claimRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	respondResult(c, h.orders.Claim(c.Request.Context(), id, req.DoctorID, sessionOf(c)), http.StatusOK)
}

func (h *OrderHandler) BeginTreatment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.orders.BeginTreatment(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}

func (h *OrderHandler) CompleteTreatment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.orders.CompleteTreatment(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}
