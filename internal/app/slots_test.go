package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"ignite-call/internal/availability"
)

func seededRepo() *memRepo {
	repo := newMemRepo()
	repo.addUser("u1", "diego")
	repo.intervals["u1"] = []availability.TimeInterval{
		{WeekDay: 3, StartMinutes: 540, EndMinutes: 1080},
		{WeekDay: 4, StartMinutes: 540, EndMinutes: 1080},
	}
	return repo
}

func TestAvailabilityEndpoint(t *testing.T) {
	repo := seededRepo()
	repo.schedulings = append(repo.schedulings, &Scheduling{UserID: "u1", Date: time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)})
	r := newRouter(newTestApp(repo))

	rec := do(t, r, http.MethodGet, "/api/users/diego/availability?date=2026-10-21", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"possibleTimes":[9,10,11,12,13,14,15,16,17],
		"availableTimes":[9,11,12,13,14,15,16,17]
	}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/users/diego/availability?date=2026-10-15", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"possibleTimes":[9,10,11,12,13,14,15,16,17],
		"availableTimes":[12,13,14,15,16,17]
	}`, rec.Body.String(), "hours already gone today are not offered")

	rec = do(t, r, http.MethodGet, "/api/users/diego/availability?date=2026-10-18", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"possibleTimes":[],"availableTimes":[]}`, rec.Body.String())
}

func TestAvailabilityEndpointErrors(t *testing.T) {
	r := newRouter(newTestApp(seededRepo()))

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"missing date", "/api/users/diego/availability", "A data deve ser informada."},
		{"bad date", "/api/users/diego/availability?date=21/10/2026", "Data inválida."},
		{"unknown user", "/api/users/nobody/availability?date=2026-10-21", "Usuário não encontrado ou não cadastrado."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["message"])
		})
	}
}

func TestBlockedDatesEndpoint(t *testing.T) {
	repo := seededRepo()
	// Wednesday 2026-10-21 fully booked.
	for h := 9; h < 18; h++ {
		repo.schedulings = append(repo.schedulings, &Scheduling{UserID: "u1", Date: time.Date(2026, 10, 21, h, 0, 0, 0, time.UTC)})
	}
	r := newRouter(newTestApp(repo))

	rec := do(t, r, http.MethodGet, "/api/users/diego/blocked-dates?year=2026&month=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blockedWeekDays":[0,1,2,5,6],"blockedDates":[21]}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/users/diego/blocked-dates?year=2026", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/users/diego/blocked-dates?year=2026&month=13", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/users/nobody/blocked-dates?year=2026&month=10", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarEndpoint(t *testing.T) {
	r := newRouter(newTestApp(seededRepo()))

	rec := do(t, r, http.MethodGet, "/api/users/diego/calendar?year=2026&month=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Weeks []struct {
			Week int `json:"week"`
			Days []struct {
				Date     time.Time `json:"date"`
				Disabled bool      `json:"disabled"`
				Reason   string    `json:"reason"`
			} `json:"days"`
		} `json:"weeks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2026, body.Year)
	assert.Equal(t, 10, body.Month)
	require.Len(t, body.Weeks, 5)

	// October 2026 starts on a Thursday.
	first := body.Weeks[0].Days
	require.Len(t, first, 7)
	assert.True(t, first[0].Disabled)
	assert.Equal(t, "fill_day", first[0].Reason)

	// Wednesday 2026-10-21 is open, Friday 2026-10-23 is not configured.
	wed := body.Weeks[3].Days[3]
	assert.Equal(t, 21, wed.Date.Day())
	assert.False(t, wed.Disabled)
	fri := body.Weeks[3].Days[5]
	assert.True(t, fri.Disabled)
	assert.Equal(t, "blocked_week_day", fri.Reason)

	// 2026-10-14 is a Wednesday already gone.
	past := body.Weeks[2].Days[3]
	assert.Equal(t, 14, past.Date.Day())
	assert.Equal(t, "past", past.Reason)
}

func schedulingBody(date time.Time) map[string]any {
	return map[string]any{
		"name":         "Mayk Brito",
		"email":        "mayk@example.com",
		"observations": "Mentoria",
		"date":         date.Format(time.RFC3339),
	}
}

func TestCreateScheduling(t *testing.T) {
	repo := seededRepo()
	a := newTestApp(repo)
	r := newRouter(a)

	slot := time.Date(2026, 10, 21, 14, 0, 0, 0, time.UTC)
	rec := do(t, r, http.MethodPost, "/api/users/diego/schedule", schedulingBody(slot.Add(25*time.Minute)), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.schedulings, 1)
	assert.True(t, repo.schedulings[0].Date.Equal(slot), "booked at the start of the hour")
	assert.Equal(t, "u1", repo.schedulings[0].UserID)

	rec = do(t, r, http.MethodPost, "/api/users/diego/schedule", schedulingBody(slot), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/users/diego/availability?date=2026-10-21", nil, "")
	assert.NotContains(t, decode(t, rec)["availableTimes"], float64(14))
}

func TestCreateSchedulingRejections(t *testing.T) {
	r := newRouter(newTestApp(seededRepo()))

	tests := []struct {
		name string
		user string
		body map[string]any
		want int
	}{
		{"past", "diego", schedulingBody(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)), http.StatusBadRequest},
		{"earlier today", "diego", schedulingBody(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)), http.StatusBadRequest},
		{"outside window", "diego", schedulingBody(time.Date(2026, 10, 21, 19, 0, 0, 0, time.UTC)), http.StatusBadRequest},
		{"unconfigured day", "diego", schedulingBody(time.Date(2026, 10, 23, 10, 0, 0, 0, time.UTC)), http.StatusBadRequest},
		{"unknown user", "nobody", schedulingBody(time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)), http.StatusBadRequest},
		{"missing email", "diego", map[string]any{"name": "Mayk Brito", "date": "2026-10-21T10:00:00Z"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/users/"+tt.user+"/schedule", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateSchedulingPublishesEvent(t *testing.T) {
	repo := seededRepo()
	repo.tokens["u1"] = &oauth2.Token{AccessToken: "access"}
	pub := &fakePublisher{}
	a := newTestApp(repo)
	a.Calendar = pub
	r := newRouter(a)

	rec := do(t, r, http.MethodPost, "/api/users/diego/schedule", schedulingBody(time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, "evt-1", decode(t, rec)["calendar_event_id"])
}

func TestCreateSchedulingSurvivesPublishFailure(t *testing.T) {
	repo := seededRepo()
	repo.tokens["u1"] = &oauth2.Token{AccessToken: "access"}
	a := newTestApp(repo)
	a.Calendar = &fakePublisher{err: errors.New("googleapi: 401")}
	r := newRouter(a)

	rec := do(t, r, http.MethodPost, "/api/users/diego/schedule", schedulingBody(time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, repo.schedulings, 1)
	assert.NotContains(t, decode(t, rec), "calendar_event_id")
}

func TestCreateSchedulingWithoutLinkedCalendar(t *testing.T) {
	pub := &fakePublisher{}
	a := newTestApp(seededRepo())
	a.Calendar = pub
	r := newRouter(a)

	rec := do(t, r, http.MethodPost, "/api/users/diego/schedule", schedulingBody(time.Date(2026, 10, 22, 9, 0, 0, 0, time.UTC)), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Zero(t, pub.calls)
}
