package app

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ignite-call/internal/apperr"
	"ignite-call/internal/availability"
)

const userIDCookie = "ignitecall_userId"

const (
	msgUsernameTaken     = "Usuário já existente"
	msgUsernameReserved  = "Nome de usuário indisponível."
	msgUserNotFound      = "Usuário não encontrado ou não cadastrado."
	msgDuplicateWeekDay  = "Cada dia da semana só pode ser informado uma vez."
	msgIntervalTooShort  = "O horário de término deve ser pelo menos 1h distante do início."
	minIntervalInMinutes = 60
)

// POST /api/users
// Claims a username and creates the user.
func (a *App) RegisterHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, bindingError(err))
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if reservedUsernames[username] {
		a.fail(c, apperr.NewValidation(msgUsernameReserved))
		return
	}

	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Name:     strings.TrimSpace(req.Name),
	}
	err := a.Repo.CreateUser(c.Request.Context(), u)
	if errors.Is(err, ErrUsernameTaken) {
		a.fail(c, apperr.NewConflict(msgUsernameTaken))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	a.log(c).Info("user registered", "user_id", u.ID, "username", u.Username)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(userIDCookie, u.ID, int(a.CookieMaxAge.Seconds()), "/", "", false, true)
	c.JSON(http.StatusCreated, u)
}

// GET /api/users/:username
func (a *App) ProfileHandler(c *gin.Context) {
	u, err := a.Repo.UserByUsername(c.Request.Context(), strings.ToLower(c.Param("username")))
	if errors.Is(err, ErrNotFound) {
		a.fail(c, apperr.NewNotFound(msgUserNotFound))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProfile{
		Username:  u.Username,
		Name:      u.Name,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
	})
}

// PUT /api/users/profile
func (a *App) UpdateProfileHandler(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, bindingError(err))
		return
	}

	err := a.Repo.UpdateBio(c.Request.Context(), currentUserID(c), strings.TrimSpace(req.Bio))
	if errors.Is(err, ErrNotFound) {
		a.fail(c, apperr.NewNotFound(msgUserNotFound))
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/users/time-intervals
// Replaces the caller's weekly availability.
func (a *App) SetTimeIntervalsHandler(c *gin.Context) {
	var req timeIntervalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, bindingError(err))
		return
	}

	intervals, verr := toTimeIntervals(req.Intervals)
	if verr != nil {
		a.fail(c, verr)
		return
	}

	if err := a.Repo.ReplaceTimeIntervals(c.Request.Context(), currentUserID(c), intervals); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"intervals": intervals})
}

// GET /api/users/time-intervals
func (a *App) ListTimeIntervalsHandler(c *gin.Context) {
	intervals, err := a.Repo.ListTimeIntervals(c.Request.Context(), currentUserID(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	if intervals == nil {
		intervals = []availability.TimeInterval{}
	}
	c.JSON(http.StatusOK, gin.H{"intervals": intervals})
}

func toTimeIntervals(in []timeIntervalInput) ([]availability.TimeInterval, *apperr.AppError) {
	seen := make(map[int]bool, len(in))
	out := make([]availability.TimeInterval, 0, len(in))
	for _, iv := range in {
		weekDay, start, end := *iv.WeekDay, *iv.StartTimeInMinutes, *iv.EndTimeInMinutes
		if seen[weekDay] {
			return nil, apperr.NewValidation(msgDuplicateWeekDay)
		}
		seen[weekDay] = true
		if end-start < minIntervalInMinutes {
			return nil, apperr.NewValidation(msgIntervalTooShort)
		}
		out = append(out, availability.TimeInterval{WeekDay: weekDay, StartMinutes: start, EndMinutes: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekDay < out[j].WeekDay })
	return out, nil
}
