// Package auth logs users in against the ERP API and keeps the issued token
// on the server side session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/retailhq/headoffice/internal/platform/httpx"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/upstream"
)

// ErrInvalidCredentials is returned when the ERP refuses the login or the
// account carries no usable role.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator is the API call that exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds upstream.Credentials) (upstream.LoginResult, error)
}

// Service wraps authentication business rules.
type Service struct {
	api  Authenticator
	rbac *rbac.Service
}

// NewService constructs a new Service.
func NewService(api Authenticator, roles *rbac.Service) *Service {
	return &Service{api: api, rbac: roles}
}

// Authenticate validates credentials with the API and resolves the role's
// permissions. Accounts whose role grants nothing are refused.
func (s *Service) Authenticate(ctx context.Context, username, password string) (upstream.LoginResult, []string, error) {
	result, err := s.api.Login(ctx, upstream.Credentials{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		var apiErr *upstream.APIError
		switch {
		case upstream.IsUnauthorized(err), errors.As(err, &apiErr):
			return upstream.LoginResult{}, nil, ErrInvalidCredentials
		case errors.Is(err, upstream.ErrUnavailable):
			return upstream.LoginResult{}, nil, fmt.Errorf("%w: login service", httpx.ErrUnavailable)
		}
		return upstream.LoginResult{}, nil, err
	}
	if result.Token == "" || result.User.ID == "" {
		return upstream.LoginResult{}, nil, ErrInvalidCredentials
	}
	result.User.Role = strings.ToLower(strings.TrimSpace(result.User.Role))
	perms, err := s.Permissions(ctx, result.User.Role)
	if err != nil {
		return upstream.LoginResult{}, nil, err
	}
	if len(perms) == 0 {
		return upstream.LoginResult{}, nil, fmt.Errorf("%w: role %q has no access", httpx.ErrForbidden, result.User.Role)
	}
	return result, perms, nil
}

// Permissions returns the permissions granted to role; unknown roles get none.
func (s *Service) Permissions(ctx context.Context, role string) ([]string, error) {
	perms, err := s.rbac.EffectivePermissions(ctx, role)
	if err != nil && !errors.Is(err, rbac.ErrUnknownRole) {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}
