package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudsanalytics/appointment-api/internal/service"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
	"github.com/cloudsanalytics/appointment-api/pkg/response"
)

// BookingHandler exposes the public booking surface: open windows and
// booking placement. No authentication required.
type BookingHandler struct {
	slots    *service.SlotService
	bookings *service.BookingService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(slots *service.SlotService, bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{slots: slots, bookings: bookings}
}

// ListSlots godoc
// @Summary List bookable time windows
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *BookingHandler) ListSlots(c *gin.Context) {
	windows, err := h.slots.ListOpenWindows(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Book an appointment in a time window
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.BookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.bookings.Book(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListByContact godoc
// @Summary List bookings placed under an email or mobile number
// @Tags Bookings
// @Produce json
// @Param email query string false "Email used when booking"
// @Param mobile query string false "Mobile number used when booking"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) ListByContact(c *gin.Context) {
	email := c.Query("email")
	mobile := c.Query("mobile")
	bookings, err := h.bookings.ListByContact(c.Request.Context(), email, mobile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}
