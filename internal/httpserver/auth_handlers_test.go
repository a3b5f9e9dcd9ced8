package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kairos_go/internal/domain"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
)

type fakeUserRepo struct {
	byUsername map[string]*domain.User
	created    []*domain.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	u.ID = primitive.NewObjectID()
	r.created = append(r.created, u)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.byUsername[username], nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *domain.User) error { return nil }

func (r *fakeUserRepo) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func newRegisterHandler(repo *fakeUserRepo) http.HandlerFunc {
	authSvc := service.NewAuthService(
		repo,
		security.NewTokenService("secret", time.Hour),
		security.NewPasswordHasher(4),
	)
	return handleRegister(authSvc)
}

func TestHandleRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := &fakeUserRepo{byUsername: map[string]*domain.User{}}
		h := newRegisterHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"username":"newuser","password":"Password1!"}`))
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), "access_token")
		assert.Len(t, repo.created, 1)
	})

	// Duplicate usernames are an input error, not a conflict status.
	t.Run("DuplicateUsernameIs400", func(t *testing.T) {
		name := "taken"
		repo := &fakeUserRepo{byUsername: map[string]*domain.User{
			name: {ID: primitive.NewObjectID(), Username: &name},
		}}
		h := newRegisterHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"username":"taken","password":"Password1!"}`))
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "username already exists")
		assert.Empty(t, repo.created)
	})

	t.Run("MissingPasswordIs400", func(t *testing.T) {
		repo := &fakeUserRepo{byUsername: map[string]*domain.User{}}
		h := newRegisterHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"username":"someone"}`))
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
