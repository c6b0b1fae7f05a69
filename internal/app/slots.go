package app

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ignite-call/internal/apperr"
	"ignite-call/internal/calendar"
	"ignite-call/internal/metrics"
)

const (
	msgMonthRequired = "Ano e mês devem ser informados."
	msgDateInPast    = "A data informada já passou."
	msgOutsideWindow = "Horário fora da disponibilidade do usuário."
	msgSlotTaken     = "Já existe um agendamento neste horário."
)

// Unknown usernames on the public booking endpoints answer 400, like a bad
// query parameter.
var publicNotFound = apperr.NotFoundAs(http.StatusBadRequest)

// GET /api/users/:username/availability?date=YYYY-MM-DD
func (a *App) AvailabilityHandler(c *gin.Context) {
	res, err := a.Availability.Resolve(c.Request.Context(), c.Param("username"), c.Query("date"))
	if err != nil {
		a.fail(c, err, publicNotFound)
		return
	}
	metrics.ObserveAvailableSlots(len(res.AvailableTimes))
	c.JSON(http.StatusOK, res)
}

// GET /api/users/:username/blocked-dates?year=Y&month=M
func (a *App) BlockedDatesHandler(c *gin.Context) {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	blocked, err := a.Availability.BlockedDates(c.Request.Context(), c.Param("username"), year, month)
	if err != nil {
		a.fail(c, err, publicNotFound)
		return
	}
	c.JSON(http.StatusOK, blocked)
}

// GET /api/users/:username/calendar?year=Y&month=M
// Returns the month grid with each day's disabled flag and reason.
func (a *App) CalendarHandler(c *gin.Context) {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	blocked, err := a.Availability.BlockedDates(c.Request.Context(), c.Param("username"), year, month)
	if err != nil {
		a.fail(c, err, publicNotFound)
		return
	}
	weeks := calendar.BuildMonth(year, time.Month(month), a.Availability.Location(), a.Availability.Now(), blocked)
	c.JSON(http.StatusOK, gin.H{
		"year":  year,
		"month": month,
		"weeks": weeks,
	})
}

// POST /api/users/:username/schedule
// Books one hour on the user's calendar.
func (a *App) CreateSchedulingHandler(c *gin.Context) {
	var req createSchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, bindingError(err))
		return
	}
	ctx := c.Request.Context()

	owner, err := a.Repo.UserByUsername(ctx, strings.ToLower(c.Param("username")))
	if errors.Is(err, ErrNotFound) {
		a.fail(c, apperr.NewNotFound(msgUserNotFound), publicNotFound)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	loc := a.Availability.Location()
	local := req.Date.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	if start.Before(a.Availability.Now().Truncate(time.Hour)) {
		a.fail(c, apperr.NewValidation(msgDateInPast))
		return
	}

	day, err := a.Availability.ResolveForUser(ctx, owner.ID, start)
	if err != nil {
		a.fail(c, err)
		return
	}
	hour := start.Hour()
	if !slices.Contains(day.PossibleTimes, hour) {
		a.fail(c, apperr.NewValidation(msgOutsideWindow))
		return
	}
	if !slices.Contains(day.AvailableTimes, hour) {
		a.fail(c, apperr.NewConflict(msgSlotTaken))
		return
	}

	sc := &Scheduling{
		ID:           uuid.NewString(),
		UserID:       owner.ID,
		Date:         start,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Observations: strings.TrimSpace(req.Observations),
	}
	err = a.Repo.CreateScheduling(ctx, sc)
	if errors.Is(err, ErrSlotTaken) {
		a.fail(c, apperr.NewConflict(msgSlotTaken))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	metrics.RecordSchedulingCreated()
	a.log(c).Info("scheduling created", "user_id", owner.ID, "scheduling_id", sc.ID, "date", sc.Date)

	resp := gin.H{"scheduling": sc}
	if eventID := a.publishScheduling(c, owner, sc); eventID != "" {
		resp["calendar_event_id"] = eventID
	}
	c.JSON(http.StatusCreated, resp)
}

// publishScheduling mirrors the booking on the owner's Google Calendar.
// Failures are logged and never undo the booking.
func (a *App) publishScheduling(c *gin.Context, owner *User, sc *Scheduling) string {
	if a.Calendar == nil {
		return ""
	}
	ctx := c.Request.Context()
	token, err := a.Repo.CalendarToken(ctx, owner.ID)
	if err != nil {
		metrics.RecordCalendarPublishError()
		a.log(c).Warn("calendar token lookup failed", "user_id", owner.ID, "error", err)
		return ""
	}
	if token == nil {
		return ""
	}
	eventID, err := a.Calendar.PublishScheduling(ctx, token, owner, sc)
	if err != nil {
		metrics.RecordCalendarPublishError()
		a.log(c).Warn("calendar event not created", "user_id", owner.ID, "scheduling_id", sc.ID, "error", err)
		return ""
	}
	return eventID
}

func yearMonthQuery(c *gin.Context) (int, int, error) {
	yearStr, monthStr := c.Query("year"), c.Query("month")
	if yearStr == "" || monthStr == "" {
		return 0, 0, apperr.NewValidation(msgMonthRequired)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, apperr.NewValidation(msgMonthRequired)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return 0, 0, apperr.NewValidation(msgMonthRequired)
	}
	return year, month, nil
}
