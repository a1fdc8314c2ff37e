package web

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "page not available"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Controller.State())
}

func (s *Server) handleDashboard(c *gin.Context) {
	if s.deps.Dashboard == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "dashboard not available"})
		return
	}
	var user *domain.User
	if s.deps.Session != nil {
		user = s.deps.Session.User()
	}
	calendarID := ""
	if cal := s.deps.Controller.State().Calendar; cal != nil {
		calendarID = cal.ID
	}
	d, err := s.deps.Dashboard.Load(c.Request.Context(), user, calendarID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Notifications.Drain())
}

type calendarsResponse struct {
	Calendars []domain.Calendar `json:"calendars"`
	Selected  string            `json:"selected"`
}

func (s *Server) handleListCalendars(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := s.deps.Controller.LoadCalendars(c.Request.Context(), ""); err != nil {
			respondError(c, err)
			return
		}
	}
	state := s.deps.Controller.State()
	resp := calendarsResponse{Calendars: state.Calendars}
	if state.Calendar != nil {
		resp.Selected = state.Calendar.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateCalendar(c *gin.Context) {
	var f form.CalendarForm
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req, err := s.deps.Validator.CreateCalendar(f)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	cal, err := s.deps.Calendars.CreateCalendar(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.deps.Controller.OpenCalendar(ctx, cal.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}

func (s *Server) handleUpdateCalendar(c *gin.Context) {
	var f form.CalendarForm
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req, err := s.deps.Validator.UpdateCalendar(f)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.authorize(ctx, c.Param("id"), domain.UserRole.CanManageCalendar); err != nil {
		respondError(c, err)
		return
	}
	cal, err := s.deps.Calendars.UpdateCalendar(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.deps.Controller.LoadCalendars(ctx, ""); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (s *Server) handleInvite(c *gin.Context) {
	var f form.InviteForm
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req, err := s.deps.Validator.Invite(f)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.authorize(ctx, c.Param("id"), domain.UserRole.CanManageCalendar); err != nil {
		respondError(c, err)
		return
	}
	if err := s.deps.Calendars.AddVisitor(ctx, c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// authorize checks the user's role in a calendar, fetching the roles first
// when the calendar is not known yet
func (s *Server) authorize(ctx context.Context, calendarID string, allowed func(domain.UserRole) bool) error {
	if _, ok := s.deps.Controller.Role(calendarID); !ok {
		if err := s.deps.Controller.RefreshCalendars(ctx); err != nil {
			return err
		}
	}
	return s.deps.Controller.Authorize(calendarID, allowed)
}

type selectCalendarRequest struct {
	ID string `json:"id" binding:"required"`
}

func (s *Server) handleSelectCalendar(c *gin.Context) {
	var req selectCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "id is required"})
		return
	}
	if err := s.deps.Controller.Select(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Controller.State())
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDeleteCalendar(c *gin.Context) {
	deleted, err := s.deps.Controller.DeleteCalendar(c.Request.Context(), c.Param("id"), confirmer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleteResponse{Deleted: deleted})
}

func (s *Server) handleFeed(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Controller.Items())
}

type selectRangeRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end"`
	AllDay bool   `json:"allDay"`
}

func (s *Server) handleSelectRange(c *gin.Context) {
	var req selectRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "start is required"})
		return
	}
	f, err := s.deps.Controller.SelectRange(c.Request.Context(), req.Start, req.End, req.AllDay)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var f form.EventForm
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	event, err := s.deps.Controller.Submit(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (s *Server) handleActivateEvent(c *gin.Context) {
	deleted, err := s.deps.Controller.ActivateEvent(c.Request.Context(), c.Param("id"), confirmer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleteResponse{Deleted: deleted})
}

func (s *Server) handleExport(c *gin.Context) {
	if s.deps.Export == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "export not available"})
		return
	}
	cal := s.deps.Controller.State().Calendar
	if cal == nil {
		respondError(c, domain.ErrNoCalendar)
		return
	}
	var buf bytes.Buffer
	if err := s.deps.Export.Export(c.Request.Context(), cal.ID, &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+cal.ID+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
