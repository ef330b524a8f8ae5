package session

import (
	"context"
	"strconv"

	"allinconnect/backoffice/internal/domain"
)

const (
	keyAuthToken  = "authToken"
	keyLoggedIn   = "finalIsLoggedIn"
	keyUserEmail  = "userEmail"
	keyUserID     = "userId"
	keyUserName   = "userName"
	loggedInValue = "true"
)

// Session is the operator's session over a Store. Login writes the whole
// identity in one pass; Logout clears every key it wrote.
type Session struct {
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

func (s *Session) Login(ctx context.Context, id domain.Identity) error {
	if err := s.store.Set(ctx, keyAuthToken, id.Token); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyLoggedIn, loggedInValue); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyUserEmail, id.Email); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyUserID, strconv.FormatInt(id.UserID, 10)); err != nil {
		return err
	}
	return s.store.Set(ctx, keyUserName, id.Name)
}

func (s *Session) Logout(ctx context.Context) error {
	return s.store.Delete(ctx, keyAuthToken, keyLoggedIn, keyUserEmail, keyUserID, keyUserName)
}

// Credential returns the stored bearer credential. It satisfies the token
// source the remote gateways read through.
func (s *Session) Credential(ctx context.Context) (string, bool) {
	token, ok, err := s.store.Get(ctx, keyAuthToken)
	if err != nil || !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *Session) IsLoggedIn(ctx context.Context) bool {
	v, ok, err := s.store.Get(ctx, keyLoggedIn)
	return err == nil && ok && v == loggedInValue
}

// Identity rebuilds the display identity from the store. Missing keys come
// back zero-valued; callers treat that as "not logged in".
func (s *Session) Identity(ctx context.Context) domain.Identity {
	var id domain.Identity
	if v, ok, err := s.store.Get(ctx, keyAuthToken); err == nil && ok {
		id.Token = v
	}
	if v, ok, err := s.store.Get(ctx, keyUserEmail); err == nil && ok {
		id.Email = v
	}
	if v, ok, err := s.store.Get(ctx, keyUserName); err == nil && ok {
		id.Name = v
	}
	if v, ok, err := s.store.Get(ctx, keyUserID); err == nil && ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			id.UserID = n
		}
	}
	return id
}
