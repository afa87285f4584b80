package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carepulse-dev/carepulse/internal/admin"
	"github.com/carepulse-dev/carepulse/internal/credentials"
	"github.com/carepulse-dev/carepulse/internal/models"
)

// scheduleInputLayout is what <input type="datetime-local"> submits
const scheduleInputLayout = "2006-01-02T15:04"

// ScheduleForm confirms an appointment time
type ScheduleForm struct {
	Schedule string `form:"schedule" binding:"required"`
}

// CancelForm cancels an appointment
type CancelForm struct {
	Reason string `form:"reason" binding:"required,max=500"`
}

// adminView is rendered by admin.html
type adminView struct {
	User         *models.Identity
	Appointments []models.Appointment
	Stats        models.AppointmentStats
	Notice       string
	Error        string
}

func (s *Server) adminDashboard(c *gin.Context) {
	res := s.guard.AdminPage(c.Request.Context(), credentials.CookieHeader(c.Request))
	if res.Denied() {
		c.Redirect(http.StatusSeeOther, res.RedirectTo)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "admin.html", adminView{
		User:         res.Identity,
		Appointments: res.Dashboard.Appointments,
		Stats:        res.Dashboard.Stats,
		Notice:       c.Query("notice"),
		Error:        c.Query("error"),
	})
}

func (s *Server) scheduleAppointment(c *gin.Context) {
	var form ScheduleForm
	if err := c.ShouldBind(&form); err != nil {
		backToDashboard(c, "error", "Please choose a date and time.")
		return
	}

	when, err := parseSchedule(form.Schedule)
	if err != nil {
		backToDashboard(c, "error", "Invalid date and time.")
		return
	}

	auth, err := s.guard.ScheduleAppointment(c.Request.Context(), credentials.CookieHeader(c.Request), c.Param("id"), when)
	s.finishAction(c, auth, err, "Appointment scheduled.")
}

func (s *Server) cancelAppointment(c *gin.Context) {
	var form CancelForm
	if err := c.ShouldBind(&form); err != nil {
		backToDashboard(c, "error", "A cancellation reason is required.")
		return
	}

	auth, err := s.guard.CancelAppointment(c.Request.Context(), credentials.CookieHeader(c.Request), c.Param("id"), strings.TrimSpace(form.Reason))
	s.finishAction(c, auth, err, "Appointment cancelled.")
}

func (s *Server) finishAction(c *gin.Context, auth admin.Authorization, err error, notice string) {
	if auth.Denied() {
		c.Redirect(http.StatusSeeOther, auth.RedirectTo)
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", c.Param("id")).Msg("Appointment action failed")
		backToDashboard(c, "error", "The appointment could not be updated. Please try again.")
		return
	}
	backToDashboard(c, "notice", notice)
}

func backToDashboard(c *gin.Context, key, message string) {
	c.Redirect(http.StatusSeeOther, "/admin?"+url.Values{key: {message}}.Encode())
}

func parseSchedule(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(scheduleInputLayout, v, time.Local)
}
