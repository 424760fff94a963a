package auth

import (
	"errors"

	"talentr/internal/domain/onboarding"
)

const (
	DefaultAdminRole  = "talentr_admin"
	DefaultAdminScope = "admin:*"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type Authorizer struct {
	adminRole  string
	adminScope string
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{adminRole: DefaultAdminRole, adminScope: DefaultAdminScope}
}

func (a *Authorizer) Require(principal onboarding.Principal, permission string) error {
	if principal.Subject == "" {
		return onboarding.ErrUnauthorized
	}
	if permission == "" {
		return nil
	}
	if a.hasAdmin(principal) {
		return nil
	}
	if !hasScope(principal, permission) {
		return &AuthzError{Code: "MISSING_SCOPE", Err: onboarding.ErrForbidden}
	}
	return nil
}

func (a *Authorizer) hasAdmin(principal onboarding.Principal) bool {
	if hasRole(principal, a.adminRole) {
		return true
	}
	return hasScope(principal, a.adminScope)
}

func hasRole(principal onboarding.Principal, role string) bool {
	for _, r := range principal.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func hasScope(principal onboarding.Principal, scope string) bool {
	if scope == "" {
		return false
	}
	for _, s := range principal.Scopes {
		if s == scope || s == DefaultAdminScope {
			return true
		}
	}
	return false
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
