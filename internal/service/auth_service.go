package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
)

// StaffAccount is the login of an administrator or supervisor.
type StaffAccount struct {
	Username     string
	PasswordHash string
}

// AuthService turns credentials into sessions.
type AuthService struct {
	tenants *TenantService
	staff   map[auth.Role]StaffAccount
	limiter auth.LoginLimiter
	tokens  *auth.JWTService
}

// NewAuthService builds the login service. limiter may be nil.
func NewAuthService(tenants *TenantService, staff map[auth.Role]StaffAccount, limiter auth.LoginLimiter, tokens *auth.JWTService) *AuthService {
	return &AuthService{tenants: tenants, staff: staff, limiter: limiter, tokens: tokens}
}

// Login verifies the credentials of role and issues a session. identifier is
// the mobile number for tenants and the username for staff.
func (s *AuthService) Login(ctx context.Context, role auth.Role, identifier, password string) (*auth.Session, error) {
	if !role.Valid() {
		return nil, apperr.NewValidation("role", fmt.Sprintf("unknown role %q", role))
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.NewValidation("credentials", "identifier and password are required")
	}

	key := string(role) + ":" + identifier
	if s.limiter != nil {
		ok, wait, err := s.limiter.Allow(ctx, key)
		if err != nil {
			log.Printf("login limiter unavailable: %v", err)
		} else if !ok {
			return nil, apperr.NewTooManyRequests(fmt.Sprintf("too many login attempts, retry in %s", wait.Round(time.Second)))
		}
	}

	principal, err := s.verify(ctx, role, identifier, password)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, apperr.NewUnauthorized("invalid credentials")
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			log.Printf("reset login attempts for %s: %v", key, err)
		}
	}
	session, err := s.tokens.Issue(*principal)
	if err != nil {
		return nil, apperr.NewStorage(err)
	}
	return session, nil
}

func (s *AuthService) verify(ctx context.Context, role auth.Role, identifier, password string) (*auth.Principal, error) {
	if role == auth.RoleTenant {
		tenant, err := s.tenants.AuthenticateTenant(ctx, identifier, password)
		if err != nil || tenant == nil {
			return nil, err
		}
		p := auth.TenantPrincipal(tenant.ID, tenant.MobileNo)
		return &p, nil
	}

	account, ok := s.staff[role]
	if !ok || account.PasswordHash == "" {
		return nil, nil
	}
	if subtle.ConstantTimeCompare([]byte(account.Username), []byte(identifier)) != 1 {
		return nil, nil
	}
	if !auth.CheckPassword(password, account.PasswordHash) {
		return nil, nil
	}
	return &auth.Principal{Role: role, Subject: account.Username}, nil
}
