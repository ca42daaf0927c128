package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

// TimetableHandler serves generated timetables.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// GetByClass godoc
// @Summary Get the timetable for one class
// @Tags Timetables
// @Produce json
// @Param batch path string true "Batch"
// @Param section path string true "Section"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{batch}/{section} [get]
func (h *TimetableHandler) GetByClass(c *gin.Context) {
	batch := strings.TrimSpace(c.Param("batch"))
	section := strings.ToUpper(strings.TrimSpace(c.Param("section")))
	timetable, err := h.service.GetByClass(c.Request.Context(), batch, section)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// MySchedule godoc
// @Summary Get the authenticated teacher's weekly schedule
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/my-schedule [get]
func (h *TimetableHandler) MySchedule(c *gin.Context) {
	slots, err := h.service.MySchedule(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
