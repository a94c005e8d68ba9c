package auth

import "github.com/retailhq/headoffice/internal/shared"

// loginRequest is the JSON body accepted by POST /auth/login.
type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// Me describes the logged in user to the front end.
type Me struct {
	User        shared.Principal `json:"user"`
	Permissions []string         `json:"permissions"`
	CSRFToken   string           `json:"csrfToken,omitempty"`
}
