package monitor

import (
	"context"
	"fmt"

	"lookaway/internal/gaze"
	"lookaway/internal/service"
)

// ServiceSink records events in-process against a single session.
type ServiceSink struct {
	sessions *service.SessionService
	handle   service.SessionHandle
}

func NewServiceSink(sessions *service.SessionService, handle service.SessionHandle) *ServiceSink {
	return &ServiceSink{sessions: sessions, handle: handle}
}

func (s *ServiceSink) LookAway(ctx context.Context, _ gaze.Event) error {
	if _, err := s.sessions.RecordLookAway(ctx, &s.handle); err != nil {
		return fmt.Errorf("failed to record look-away: %w", err)
	}
	return nil
}

// HTTPSink posts events to a server with the session's bearer token.
type HTTPSink struct {
	client *Client
	token  string
}

func (s *HTTPSink) LookAway(ctx context.Context, _ gaze.Event) error {
	_, err := s.client.UpdateLookAway(ctx, s.token)
	return err
}
