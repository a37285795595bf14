package employees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/auth"
	"github.com/mercaline/pos-backend/pkg/config"
	"github.com/mercaline/pos-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/logger"
	"github.com/mercaline/pos-backend/pkg/security"
)

// LoginResult carries the signed token and the authenticated employee.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Employee  *models.Employee
}

// Service authenticates employees and issues access tokens.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Register(ctx context.Context, employee *models.Employee, password string) error
}

type service struct {
	repo     Repository
	jwt      config.JWTConfig
	password config.PasswordConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds the employee auth service.
func NewService(repo Repository, jwt config.JWTConfig, password config.PasswordConfig, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("employee repository required")
	}
	if jwt.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		repo:     repo,
		jwt:      jwt,
		password: password,
		log:      log,
		now:      time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	employee, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	if !employee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(password, employee.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{
		EmployeeID: employee.ID,
		Role:       employee.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	if err := s.repo.TouchLastLogin(ctx, employee.ID, now); err != nil {
		// A stale last_login_at is not worth failing the login over.
		if s.log != nil {
			s.log.Warn(ctx, "failed to update last login timestamp")
		}
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
		Employee:  employee,
	}, nil
}

func (s *service) Register(ctx context.Context, employee *models.Employee, password string) error {
	if employee == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "employee required")
	}
	if employee.Email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(password) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if !employee.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid employee role")
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	employee.PasswordHash = hash
	employee.IsActive = true

	if err := s.repo.Create(ctx, employee); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create employee")
	}
	return nil
}
