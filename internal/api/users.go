package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"lostpets/client/internal/models"
)

// UserService handles login and user lookups, and caches the logged-in user
// for the rest of the client.
type UserService struct {
	client *Client

	mu     sync.Mutex
	logged *models.User
}

// NewUserService builds a UserService on the shared client.
func NewUserService(client *Client) *UserService {
	return &UserService{client: client}
}

// LogIn authenticates against the platform. The session token travels in the
// Authorization header of the response, not in the body; its absence means
// the credentials were rejected.
func (s *UserService) LogIn(ctx context.Context, account models.AccountCredentials) (*models.User, error) {
	req, err := s.client.newRequest(ctx, http.MethodPost, "/user/logIn", nil, account)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: log in: %w", err)
	}
	defer resp.Body.Close()

	token := resp.Header.Get("Authorization")
	if resp.StatusCode < 200 || resp.StatusCode > 299 || token == "" {
		return nil, fmt.Errorf("api: log in: invalid email or password")
	}
	s.client.tokens.SetToken(token)

	user, err := s.userDetails(ctx, account.Email)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.logged = user
	s.mu.Unlock()
	return user, nil
}

// LogOut forgets the session token and the cached user.
func (s *UserService) LogOut() {
	s.mu.Lock()
	s.logged = nil
	s.mu.Unlock()
	s.client.tokens.Clear()
}

// GetLoggedUser returns the user that logged in through this service.
func (s *UserService) GetLoggedUser(ctx context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logged == nil {
		return nil, fmt.Errorf("api: no user logged in")
	}
	return s.logged, nil
}

// GetUserByID fetches one user by its platform id.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.client.get(ctx, "/user/"+strconv.FormatInt(id, 10), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) userDetails(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := url.Values{"email": {email}}
	if err := s.client.get(ctx, "/user/userDetails", query, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
