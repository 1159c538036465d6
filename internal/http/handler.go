package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"incident-dashboard/internal/service"
)

type Handler struct {
	incidentService *service.IncidentService
	ready           func(context.Context) error
	log             zerolog.Logger
}

// NewHandler wires the incident routes. ready backs /readyz and is usually a
// database ping.
func NewHandler(
	incidentService *service.IncidentService,
	ready func(context.Context) error,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		ready:           ready,
		log:             log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)

	public := r.Group("/incidents")
	{
		public.GET("", h.listIncidents)
	}

	protected := r.Group("/incidents")
	protected.Use(authMiddleware)
	{
		protected.PATCH("/:id/resolve", h.resolveIncident)
	}
}

func (h *Handler) listIncidents(c *gin.Context) {
	var resolved *bool
	if raw := strings.TrimSpace(c.Query("resolved")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid resolved filter"))
			return
		}
		resolved = &parsed
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), resolved)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to fetch incidents")
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to fetch incidents"))
		return
	}

	c.JSON(http.StatusOK, incidents)
}

func (h *Handler) resolveIncident(c *gin.Context) {
	updated, err := h.incidentService.ResolveIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, errorResponse("Invalid incident ID"))
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse("Incident not found"))
		default:
			h.log.Error().Err(err).Str("incident_id", c.Param("id")).Msg("failed to update incident")
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to update incident"))
		}
		return
	}

	ev := h.log.Info().
		Str("incident_id", updated.ID).
		Bool("resolved", updated.Resolved)
	if sub := c.GetString(subjectKey); sub != "" {
		ev = ev.Str("subject", sub)
	}
	ev.Msg("incident resolve accepted")

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) readyz(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Msg("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, errorResponse("database not reachable"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
