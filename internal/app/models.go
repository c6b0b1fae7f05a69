package app

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("app: not found")
	ErrUsernameTaken = errors.New("app: username already taken")
	ErrSlotTaken     = errors.New("app: slot already booked")
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Scheduling is a booked hour on a user's calendar.
type Scheduling struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Observations string    `json:"observations,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type publicProfile struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Username string `json:"username" binding:"required,min=3,username"`
}

type updateProfileRequest struct {
	Bio string `json:"bio" binding:"max=500"`
}

type timeIntervalInput struct {
	WeekDay            *int `json:"weekDay" binding:"required,min=0,max=6"`
	StartTimeInMinutes *int `json:"startTimeInMinutes" binding:"required,min=0,max=1440"`
	EndTimeInMinutes   *int `json:"endTimeInMinutes" binding:"required,min=0,max=1440"`
}

type timeIntervalsRequest struct {
	Intervals []timeIntervalInput `json:"intervals" binding:"required,min=1,max=7,dive"`
}

type createSchedulingRequest struct {
	Name         string    `json:"name" binding:"required,min=3"`
	Email        string    `json:"email" binding:"required,email"`
	Observations string    `json:"observations" binding:"max=1000"`
	Date         time.Time `json:"date" binding:"required"`
}
