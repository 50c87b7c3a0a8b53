package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type callerKey struct{}

// Caller is the organization and user a request acts for.
type Caller struct {
	CompanyID string
	UserID    string
	IsAdmin   bool
}

// RequireCompany resolves the caller from token claims and rejects tokens
// that carry no company or user.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}

		companyID, _ := claims["company_id"].(string)
		userID, _ := claims["user_id"].(string)
		if companyID == "" || userID == "" {
			response.Forbidden(w, "Company membership required")
			return
		}
		isAdmin, _ := claims["is_admin"].(bool)

		ctx := context.WithValue(r.Context(), callerKey{}, Caller{
			CompanyID: companyID,
			UserID:    userID,
			IsAdmin:   isAdmin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the caller stored by RequireCompany.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
