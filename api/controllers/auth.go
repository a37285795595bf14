package controllers

import (
	"net/http"
	"time"

	"github.com/mercaline/pos-backend/api/responses"
	"github.com/mercaline/pos-backend/api/validators"
	"github.com/mercaline/pos-backend/internal/employees"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  employeeResponse `json:"employee"`
}

type employeeResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Login authenticates an employee and returns a signed access token.
func Login(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loginResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			Employee: employeeResponse{
				ID:        result.Employee.ID.String(),
				Email:     result.Employee.Email,
				FirstName: result.Employee.FirstName,
				LastName:  result.Employee.LastName,
				Role:      string(result.Employee.Role),
			},
		})
	}
}
