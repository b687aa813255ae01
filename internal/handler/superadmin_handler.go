package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudsanalytics/appointment-api/internal/service"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
	"github.com/cloudsanalytics/appointment-api/pkg/response"
)

// SuperadminHandler exposes admin account management and global appointment
// oversight.
type SuperadminHandler struct {
	admins       *service.AdminService
	appointments *service.AppointmentService
}

// NewSuperadminHandler constructs SuperadminHandler.
func NewSuperadminHandler(admins *service.AdminService, appointments *service.AppointmentService) *SuperadminHandler {
	return &SuperadminHandler{admins: admins, appointments: appointments}
}

// ListAdmins godoc
// @Summary List admin accounts
// @Tags Superadmin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /superadmin/admins [get]
func (h *SuperadminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.admins.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admins, nil)
}

// CreateAdmin godoc
// @Summary Create an admin account
// @Tags Superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Router /superadmin/admins [post]
func (h *SuperadminHandler) CreateAdmin(c *gin.Context) {
	var req service.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.admins.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admin)
}

// UpdateAdmin godoc
// @Summary Update an admin account
// @Tags Superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID"
// @Param payload body service.UpdateAdminRequest true "Admin payload"
// @Success 200 {object} response.Envelope
// @Router /superadmin/admins/{id} [put]
func (h *SuperadminHandler) UpdateAdmin(c *gin.Context) {
	var req service.UpdateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.admins.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admin, nil)
}

// DeleteAdmin godoc
// @Summary Delete an admin account
// @Tags Superadmin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID"
// @Success 204
// @Router /superadmin/admins/{id} [delete]
func (h *SuperadminHandler) DeleteAdmin(c *gin.Context) {
	if err := h.admins.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAdminSlots godoc
// @Summary List an admin's slots
// @Tags Superadmin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID"
// @Param available query bool false "Only available slots"
// @Success 200 {object} response.Envelope
// @Router /superadmin/admins/{id}/slots [get]
func (h *SuperadminHandler) ListAdminSlots(c *gin.Context) {
	onlyAvailable := c.Query("available") == "true"
	slots, err := h.admins.ListSlots(c.Request.Context(), c.Param("id"), onlyAvailable)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// ListAppointments godoc
// @Summary List all appointments
// @Tags Superadmin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /superadmin/appointments [get]
func (h *SuperadminHandler) ListAppointments(c *gin.Context) {
	appointments, err := h.appointments.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, nil)
}

// ReassignAppointment godoc
// @Summary Move an appointment to another slot
// @Tags Superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body service.ReassignRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Router /superadmin/appointments/{id}/reassign [put]
func (h *SuperadminHandler) ReassignAppointment(c *gin.Context) {
	var req service.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.appointments.Reassign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// UpdateAppointmentStatus godoc
// @Summary Change an appointment's status
// @Tags Superadmin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param payload body service.StatusRequest true "Status payload"
// @Success 204
// @Router /superadmin/appointments/{id}/status [put]
func (h *SuperadminHandler) UpdateAppointmentStatus(c *gin.Context) {
	var req service.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.appointments.SetStatus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAppointment godoc
// @Summary Cancel any appointment and free its slot
// @Tags Superadmin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 204
// @Router /superadmin/appointments/{id} [delete]
func (h *SuperadminHandler) DeleteAppointment(c *gin.Context) {
	if err := h.appointments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
