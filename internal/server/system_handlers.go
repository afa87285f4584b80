package server

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/models"
)

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "carepulse-web",
		"version":   s.version,
		"upstream":  s.probe.Status(),
	})
}

// @Router /ready [get]
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
func (s *Server) readinessCheck(c *gin.Context) {
	status := s.probe.Status()
	code := http.StatusOK
	if !s.probe.Ready() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"ready": status.Ready, "upstream": status})
}

var templateFuncs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	},
	"statusClass": func(status models.AppointmentStatus) string {
		return "status-" + strings.ToLower(string(status))
	},
	"isCancelled": func(status models.AppointmentStatus) bool {
		return status == models.StatusCancelled
	},
}
