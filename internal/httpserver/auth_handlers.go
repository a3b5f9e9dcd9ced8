package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"kairos_go/internal/domain"
	"kairos_go/internal/service"
)

type registerRequest struct {
	Username  *string `json:"username"`
	Anonymous bool    `json:"anonymous"`
	Password  string  `json:"password"`
}

// @Summary      Register a new user
// @Description  Register a named or anonymous user and return an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body registerRequest true "Register input"
// @Success      201  {object}  service.TokenResponse
// @Failure      400  {object}  map[string]string
// @Router       /auth/register [post]
func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		resp, err := authSvc.Register(r.Context(), service.RegisterInput{
			Username:  req.Username,
			Anonymous: req.Anonymous,
			Password:  req.Password,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrConflict):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username already exists"})
			case errors.Is(err, domain.ErrInvalidInput):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
			}
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      Login
// @Description  Exchange form-encoded username/password for an access token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username formData string true "Username"
// @Param        password formData string true "Password"
// @Success      200  {object}  service.TokenResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/token [post]
func handleToken(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form body"})
			return
		}
		username := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")
		if username == "" || password == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
			return
		}

		resp, err := authSvc.Login(r.Context(), username, password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to login"})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
