package httpserver

import (
	"net/http"
	"time"

	"kairos_go/internal/domain"
)

type userProfile struct {
	ID                string  `json:"id"`
	Username          *string `json:"username"`
	Email             *string `json:"email"`
	IsAnonymous       bool    `json:"is_anonymous"`
	Provider          string  `json:"provider"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	CreatedAt         string  `json:"created_at"`
}

func toProfile(u *domain.User) userProfile {
	return userProfile{
		ID:                u.ID.Hex(),
		Username:          u.Username,
		Email:             u.Email,
		IsAnonymous:       u.IsAnonymous,
		Provider:          u.Provider,
		ProfilePictureURL: u.ProfilePictureURL,
		CreatedAt:         u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// @Summary      Get Current User
// @Description  Get the profile of the authenticated user
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  userProfile
// @Failure      401  {object}  map[string]string
// @Router       /users/me [get]
func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, toProfile(user))
	}
}
