// Package web serves the calendar screen and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
	"github.com/tazhate/calclient/internal/logger"
	"github.com/tazhate/calclient/internal/notify"
	"github.com/tazhate/calclient/internal/service"
	"github.com/tazhate/calclient/internal/session"
	"github.com/tazhate/calclient/internal/view"
)

//go:embed static
var static embed.FS

// CalendarWriter covers the calendar edits not driven by the view controller
type CalendarWriter interface {
	CreateCalendar(ctx context.Context, req calendarapi.CreateCalendarRequest) (*domain.Calendar, error)
	UpdateCalendar(ctx context.Context, id string, req calendarapi.UpdateCalendarRequest) (*domain.Calendar, error)
	AddVisitor(ctx context.Context, calendarID string, req calendarapi.AddVisitorRequest) error
}

type Deps struct {
	Controller    *view.Controller
	Validator     *form.Validator
	Calendars     CalendarWriter
	Dashboard     *service.DashboardService
	Export        *service.CalendarService
	Session       *session.Session
	Notifications *notify.Recorder
	Logger        logger.Logger
}

type Server struct {
	deps   Deps
	log    logger.Logger
	engine *gin.Engine
}

func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	if deps.Notifications == nil {
		deps.Notifications = notify.NewRecorder(0)
	}
	s := &Server{deps: deps, log: log, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/", s.handleIndex)

	api := s.engine.Group("/api")
	api.Use(s.requireSession())
	api.GET("/state", s.handleState)
	api.GET("/dashboard", s.handleDashboard)
	api.GET("/notifications", s.handleNotifications)

	api.GET("/calendars", s.handleListCalendars)
	api.POST("/calendars", s.handleCreateCalendar)
	api.POST("/calendars/select", s.handleSelectCalendar)
	api.PATCH("/calendars/:id", s.handleUpdateCalendar)
	api.DELETE("/calendars/:id", s.handleDeleteCalendar)
	api.POST("/calendars/:id/visitors", s.handleInvite)

	api.GET("/feed", s.handleFeed)
	api.POST("/select", s.handleSelectRange)
	api.POST("/events", s.handleCreateEvent)
	api.POST("/events/:id/activate", s.handleActivateEvent)
	api.GET("/export.ics", s.handleExport)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), s.log))
		c.Next()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Session != nil && !s.deps.Session.Present() {
			respondError(c, session.ErrNotLoggedIn)
			c.Abort()
			return
		}
		c.Next()
	}
}

type errorResponse struct {
	Error  string           `json:"error"`
	Fields form.FieldErrors `json:"fields,omitempty"`
}

// statusFor maps an error to an HTTP status
func statusFor(err error) int {
	var fields form.FieldErrors
	switch {
	case errors.As(err, &fields), errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNoCalendar), errors.Is(err, domain.ErrCanceled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRejected), errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	resp := errorResponse{Error: domain.UserMessage(err)}
	var fields form.FieldErrors
	if errors.As(err, &fields) {
		resp.Error = "validation failed"
		resp.Fields = fields
	}
	c.JSON(statusFor(err), resp)
}

func confirmer(c *gin.Context) view.Confirmer {
	if c.Query("confirm") == "true" {
		return view.AlwaysConfirm
	}
	return view.NeverConfirm
}
