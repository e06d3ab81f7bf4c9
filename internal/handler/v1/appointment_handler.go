package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	appointments AppointmentService
}

func NewAppointmentHandler(appointments AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// List returns the caller's view: all for admins, their agenda for doctors,
// their own bookings for patients.
//
//	GET /appointments?status=&from=&to=&patient_id=&doctor_id=
//
// from and to take RFC 3339 timestamps or plain dates; a plain to date
// includes the whole day.
func (h *AppointmentHandler) List(c *gin.Context) {
	var q appointment.ListAppointmentsQuery
	var ok bool
	if q.PatientID, ok = queryID(c, "patient_id"); !ok {
		return
	}
	if q.DoctorID, ok = queryID(c, "doctor_id"); !ok {
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := appointment.Status(raw)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, appointment.ErrInvalidStatus.Error())
			return
		}
		q.Status = &status
	}
	if q.DateFrom, ok = queryTime(c, "from", 0); !ok {
		return
	}
	if q.DateTo, ok = queryTime(c, "to", 24*time.Hour); !ok {
		return
	}

	list, err := h.appointments.List(c.Request.Context(), q, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.appointments.GetByID(c.Request.Context(), id, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) ListByPatient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.appointments.ListByPatient(c.Request.Context(), id, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *AppointmentHandler) ListByDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.appointments.ListByDoctor(c.Request.Context(), id, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var in appointment.AppointmentInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = nil
	respondResult(c, h.appointments.Add(c.Request.Context(), &in, sessionOf(c)), http.StatusCreated)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in appointment.AppointmentInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = &id
	respondResult(c, h.appointments.Modify(c.Request.Context(), &in, sessionOf(c)), http.StatusOK)
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.appointments.Delete(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}
