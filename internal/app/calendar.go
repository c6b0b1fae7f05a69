package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// EventPublisher mirrors a booking on the owner's external calendar.
type EventPublisher interface {
	PublishScheduling(ctx context.Context, token *oauth2.Token, owner *User, s *Scheduling) (string, error)
}

// GoogleCalendar inserts events on the owner's primary Google calendar using
// the credentials stored by the identity provider.
type GoogleCalendar struct {
	config     *oauth2.Config
	endpoint   string
	calendarID string
	duration   time.Duration
}

type GoogleCalendarOption func(*GoogleCalendar)

// WithCalendarEndpoint points the client at another API base URL.
func WithCalendarEndpoint(endpoint string) GoogleCalendarOption {
	return func(g *GoogleCalendar) { g.endpoint = endpoint }
}

func NewGoogleCalendar(clientID, clientSecret, redirectURL string, opts ...GoogleCalendarOption) *GoogleCalendar {
	g := &GoogleCalendar{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		calendarID: "primary",
		duration:   time.Hour,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PublishScheduling creates the event with a Meet link and returns its id.
func (g *GoogleCalendar) PublishScheduling(ctx context.Context, token *oauth2.Token, owner *User, s *Scheduling) (string, error) {
	opts := []option.ClientOption{option.WithHTTPClient(g.config.Client(ctx, token))}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("calendar service: %w", err)
	}

	event, err := srv.Events.Insert(g.calendarID, g.event(owner, s)).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return event.Id, nil
}

func (g *GoogleCalendar) event(owner *User, s *Scheduling) *gcal.Event {
	return &gcal.Event{
		Summary:     fmt.Sprintf("Ignite Call: %s", s.Name),
		Description: s.Observations,
		Start:       &gcal.EventDateTime{DateTime: s.Date.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: s.Date.Add(g.duration).Format(time.RFC3339)},
		Attendees: []*gcal.EventAttendee{
			{Email: s.Email, DisplayName: s.Name},
		},
		Organizer: &gcal.EventOrganizer{Email: owner.Email, DisplayName: owner.Name},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             s.ID,
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
}
