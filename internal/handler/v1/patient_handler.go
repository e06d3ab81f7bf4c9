package v1

import (
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	patients PatientService
}

func NewPatientHandler(patients PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

// GET /patients?search= matches name or document number.
func (h *PatientHandler) List(c *gin.Context) {
	list, err := h.patients.List(c.Request.Context(), strings.TrimSpace(c.Query("search")), sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.patients.GetByID(c.Request.Context(), id, sessionOf(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *PatientHandler) HealthInsurers(c *gin.Context) {
	respondOK(c, h.patients.HealthInsurers())
}

func (h *PatientHandler) Create(c *gin.Context) {
	var in patient.PatientInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = nil
	respondResult(c, h.patients.Add(c.Request.Context(), &in, sessionOf(c)), http.StatusCreated)
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in patient.PatientInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = &id
	respondResult(c, h.patients.Modify(c.Request.Context(), &in, sessionOf(c)), http.StatusOK)
}

func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.patients.Delete(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}

type DoctorHandler struct {
	doctors DoctorService
}

func NewDoctorHandler(doctors DoctorService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors}
}

func (h *DoctorHandler) List(c *gin.Context) {
	list, err := h.doctors.List(c.Request.Context(), strings.TrimSpace(c.Query("filter")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.doctors.GetByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, d)
}

func (h *DoctorHandler) Create(c *gin.Context) {
	var in doctor.DoctorInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = nil
	respondResult(c, h.doctors.Add(c.Request.Context(), &in, sessionOf(c)), http.StatusCreated)
}

func (h *DoctorHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in doctor.DoctorInput
	if !bindJSON(c, &in) {
		return
	}
	in.ID = &id
	respondResult(c, h.doctors.Modify(c.Request.Context(), &in, sessionOf(c)), http.StatusOK)
}

func (h *DoctorHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	respondResult(c, h.doctors.Delete(c.Request.Context(), id, sessionOf(c)), http.StatusOK)
}
