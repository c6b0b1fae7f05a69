// Package app holds the HTTP handlers and the PostgreSQL store of the
// Ignite Call API.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"ignite-call/internal/apperr"
	"ignite-call/internal/availability"
	"ignite-call/internal/logging"
	"ignite-call/internal/metrics"
	"ignite-call/internal/ratelimit"
)

// Repository is everything the handlers need from the datastore.
type Repository interface {
	availability.Repository

	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *User) error
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	UpdateBio(ctx context.Context, userID, bio string) error
	ReplaceTimeIntervals(ctx context.Context, userID string, intervals []availability.TimeInterval) error
	CreateScheduling(ctx context.Context, s *Scheduling) error
	CalendarToken(ctx context.Context, userID string) (*oauth2.Token, error)
}

type App struct {
	Repo         Repository
	Availability *availability.Resolver
	// Calendar is nil when Google Calendar is not configured.
	Calendar     EventPublisher
	Limiter      ratelimit.Limiter
	JWTSecret    string
	CookieMaxAge time.Duration
	Logger       *slog.Logger
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// log returns the request scoped logger.
func (a *App) log(c *gin.Context) *slog.Logger {
	return logging.FromContext(c.Request.Context(), a.logger())
}

func (a *App) fail(c *gin.Context, err error, opts ...apperr.Option) {
	apperr.Respond(c, a.log(c), err, opts...)
}

// Routes registers every endpoint on router.
func (a *App) Routes(router *gin.Engine) {
	registerValidators()

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/readyz", a.ReadyHandler)
	router.GET("/metrics", metrics.Handler())

	throttle := func(scope string) gin.HandlerFunc {
		if a.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return ratelimit.Middleware(a.Limiter, scope, a.logger())
	}

	api := router.Group("/api")
	users := api.Group("/users")
	{
		users.POST("", throttle("register"), a.RegisterHandler)

		authed := users.Group("", AuthMiddleware(a.JWTSecret))
		authed.PUT("/profile", a.UpdateProfileHandler)
		authed.POST("/time-intervals", a.SetTimeIntervalsHandler)
		authed.GET("/time-intervals", a.ListTimeIntervalsHandler)

		users.GET("/:username", a.ProfileHandler)
		users.GET("/:username/blocked-dates", a.BlockedDatesHandler)
		users.GET("/:username/calendar", a.CalendarHandler)
		users.GET("/:username/availability", a.AvailabilityHandler)
		users.POST("/:username/schedule", throttle("schedule"), a.CreateSchedulingHandler)
	}
}

// GET /readyz
func (a *App) ReadyHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.Repo.Ping(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, "db: "+err.Error())
		return
	}
	c.String(http.StatusOK, "ok")
}
