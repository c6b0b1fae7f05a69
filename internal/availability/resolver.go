// Package availability resolves which hours of a day a user can be booked
// for, and which days of a month are fully unavailable.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ignite-call/internal/apperr"
	"ignite-call/internal/calendar"
)

const dateLayout = "2006-01-02"

var (
	// ErrUserNotFound is returned by Repository.LookupUserID for unknown usernames.
	ErrUserNotFound = errors.New("availability: user not found")

	msgDateRequired = "A data deve ser informada."
	msgDateInvalid  = "Data inválida."
	msgUserNotFound = "Usuário não encontrado ou não cadastrado."
	msgMonthInvalid = "Ano e mês devem ser informados corretamente."
)

// TimeInterval is a weekly working window expressed in minutes since midnight.
type TimeInterval struct {
	WeekDay      int `json:"weekDay"`
	StartMinutes int `json:"startTimeInMinutes"`
	EndMinutes   int `json:"endTimeInMinutes"`
}

// Hours returns the whole hours offered by the interval, [start, end).
// Minutes past the hour are dropped.
func (t TimeInterval) Hours() []int {
	startHour := t.StartMinutes / 60
	endHour := t.EndMinutes / 60
	hours := make([]int, 0, max(endHour-startHour, 0))
	for h := startHour; h < endHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Repository is the read side the resolver needs from the datastore.
type Repository interface {
	LookupUserID(ctx context.Context, username string) (string, error)
	FindTimeInterval(ctx context.Context, userID string, weekDay int) (*TimeInterval, error)
	ListTimeIntervals(ctx context.Context, userID string) ([]TimeInterval, error)
	ListSchedulingDates(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error)
}

// Result is the availability of one day.
type Result struct {
	PossibleTimes  []int `json:"possibleTimes"`
	AvailableTimes []int `json:"availableTimes"`
}

func emptyResult() Result {
	return Result{PossibleTimes: []int{}, AvailableTimes: []int{}}
}

// Resolver computes availability against a Repository and a clock.
type Resolver struct {
	repo   Repository
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a Resolver. Calendar dates are interpreted in loc.
func NewResolver(repo Repository, loc *time.Location, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	r := &Resolver{repo: repo, loc: loc, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the zone calendar dates are interpreted in.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the resolver's current instant.
func (r *Resolver) Now() time.Time { return r.now() }

// ParseDate parses a YYYY-MM-DD query value into midnight of that day.
func (r *Resolver) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.NewValidation(msgDateRequired)
	}
	date, err := time.ParseInLocation(dateLayout, raw, r.loc)
	if err != nil {
		return time.Time{}, apperr.NewValidation(msgDateInvalid)
	}
	return date, nil
}

// Resolve returns the possible and available hours of rawDate for username.
func (r *Resolver) Resolve(ctx context.Context, username, rawDate string) (Result, error) {
	date, err := r.ParseDate(rawDate)
	if err != nil {
		return Result{}, err
	}

	userID, err := r.lookupUser(ctx, username)
	if err != nil {
		return Result{}, err
	}

	return r.ResolveForUser(ctx, userID, date)
}

// ResolveForUser is Resolve for an already resolved user and parsed date.
func (r *Resolver) ResolveForUser(ctx context.Context, userID string, date time.Time) (Result, error) {
	date = startOfDay(date.In(r.loc))
	now := r.now()

	if calendar.EndOfDay(date).Before(now) {
		return emptyResult(), nil
	}

	interval, err := r.repo.FindTimeInterval(ctx, userID, int(date.Weekday()))
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	if interval == nil {
		return emptyResult(), nil
	}

	possible := interval.Hours()
	startHour := interval.StartMinutes / 60
	endHour := interval.EndMinutes / 60

	// Upper bound is inclusive on purpose.
	booked, err := r.repo.ListSchedulingDates(ctx, userID, atHour(date, startHour), atHour(date, endHour))
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	taken := HourBuckets(booked, r.loc)

	available := make([]int, 0, len(possible))
	for _, hour := range possible {
		if _, ok := taken[hour]; ok {
			continue
		}
		if atHour(date, hour).Before(now) {
			continue
		}
		available = append(available, hour)
	}

	r.logger.DebugContext(ctx, "availability resolved",
		"user_id", userID,
		"date", date.Format(dateLayout),
		"possible", len(possible),
		"available", len(available),
	)

	return Result{PossibleTimes: possible, AvailableTimes: available}, nil
}

func (r *Resolver) lookupUser(ctx context.Context, username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", apperr.NewNotFound(msgUserNotFound)
	}
	userID, err := r.repo.LookupUserID(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", apperr.NewNotFound(msgUserNotFound)
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return userID, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atHour(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}
