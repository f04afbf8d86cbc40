package users

import (
	"context"

	"github.com/jamsesh/go-jamsesh-client/transport"
	"github.com/pkg/errors"
)

// MePath is the profile endpoint, shared with the session manager's restore
// and login flows.
const MePath = "/users/me/"

// Service exposes the profile endpoints on top of the request pipeline.
type Service struct {
	client *transport.Client
}

func NewService(client *transport.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[users.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// Me fetches the current profile.
func (s *Service) Me(ctx context.Context) (*User, error) {
	var user User
	if err := s.client.Get(ctx, MePath, &user); err != nil {
		return nil, errors.Wrap(err, "[Service.Me]")
	}
	return &user, nil
}

// UpdateProfile applies a partial profile mutation and returns the updated
// record. Callers holding a session manager should follow up with
// RefreshProfile so the observed session picks up the change.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var user User
	if err := s.client.Patch(ctx, MePath, update, &user); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateProfile]")
	}
	return &user, nil
}
