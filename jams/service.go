// Package jams exposes the jam-session feature endpoints. Every call goes
// through the request pipeline; nothing here talks to the network directly.
package jams

import (
	"context"
	"fmt"
	"time"

	"github.com/jamsesh/go-jamsesh-client/poll"
	"github.com/jamsesh/go-jamsesh-client/transport"
	"github.com/pkg/errors"
)

type Service struct {
	client *transport.Client
}

func NewService(client *transport.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[jams.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// List returns all upcoming jams.
func (s *Service) List(ctx context.Context) ([]Jam, error) {
	var out []Jam
	if err := s.client.Get(ctx, "/jams/", &out); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return out, nil
}

// Mine returns the jams the current user owns or has joined.
func (s *Service) Mine(ctx context.Context) ([]Jam, error) {
	var out []Jam
	if err := s.client.Get(ctx, "/jams/mine/", &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Mine]")
	}
	return out, nil
}

// Get fetches a single jam.
func (s *Service) Get(ctx context.Context, id int64) (*Jam, error) {
	var out Jam
	if err := s.client.Get(ctx, fmt.Sprintf("/jams/%d/", id), &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Get]")
	}
	return &out, nil
}

// Create schedules a new jam owned by the current user.
func (s *Service) Create(ctx context.Context, jam NewJam) (*Jam, error) {
	var out Jam
	if err := s.client.Post(ctx, "/jams/", jam, &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return &out, nil
}

// Delete removes a jam the current user owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/jams/%d/", id)); err != nil {
		return errors.Wrap(err, "[Service.Delete]")
	}
	return nil
}

type joinRequest struct {
	JamSession int64 `json:"jam_session"`
}

// Join adds the current user to a jam's roster.
func (s *Service) Join(ctx context.Context, id int64) error {
	if err := s.client.Post(ctx, "/join/", joinRequest{JamSession: id}, nil); err != nil {
		return errors.Wrap(err, "[Service.Join]")
	}
	return nil
}

// Leave removes the current user from a jam's roster.
func (s *Service) Leave(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/jams/%d/leave/", id)); err != nil {
		return errors.Wrap(err, "[Service.Leave]")
	}
	return nil
}

// Participants fetches a jam's roster. Rosters refresh on demand (plus
// pull-to-refresh in the apps), not on a schedule.
func (s *Service) Participants(ctx context.Context, id int64) (*Participants, error) {
	var out Participants
	if err := s.client.Get(ctx, fmt.Sprintf("/jams/%d/participants/", id), &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Participants]")
	}
	return &out, nil
}

// Messages fetches a jam's chat thread, oldest first.
func (s *Service) Messages(ctx context.Context, id int64) ([]Message, error) {
	var out []Message
	if err := s.client.Get(ctx, fmt.Sprintf("/jams/%d/messages/", id), &out); err != nil {
		return nil, errors.Wrap(err, "[Service.Messages]")
	}
	return out, nil
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// PostMessage appends a message to a jam's chat thread.
func (s *Service) PostMessage(ctx context.Context, id int64, text string) error {
	if err := s.client.Post(ctx, fmt.Sprintf("/jams/%d/messages/", id), postMessageRequest{Text: text}, nil); err != nil {
		return errors.Wrap(err, "[Service.PostMessage]")
	}
	return nil
}

// PollMessages keeps a chat thread live for the duration of a screen: apply
// receives fresh messages immediately and then every interval, and is never
// called after the subscription is stopped or with a result that resolved
// after cancellation.
func (s *Service) PollMessages(ctx context.Context, id int64, interval time.Duration, apply func([]Message), options ...poll.Option) (*poll.Subscription, error) {
	if apply == nil {
		return nil, errors.New("[Service.PollMessages] apply function is required")
	}
	fetch := func(fetchCtx context.Context) error {
		messages, err := s.Messages(fetchCtx, id)
		if err != nil {
			return err
		}
		if fetchCtx.Err() != nil { // stopped while in flight, discard
			return nil
		}
		apply(messages)
		return nil
	}
	return poll.Start(ctx, fetch, interval, options...)
}
