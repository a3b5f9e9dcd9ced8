package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kairos_go/internal/domain"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil && u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	args := m.Called(ctx, googleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	return nil, nil // not used in auth tests
}

func (m *MockUserRepo) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func newAuthService(repo *MockUserRepo) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(repo, tokenSvc, hasher)
}

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByUsername", mock.Anything, "newuser").Return(nil, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username != nil && *u.Username == "newuser" && u.Provider == domain.ProviderLocal
		})).Return(nil)

		svc := newAuthService(repo)
		resp, err := svc.Register(context.Background(), service.RegisterInput{
			Username:  strPtr("newuser"),
			Anonymous: false,
			Password:  "Password1!",
		})
		assert.NoError(t, err)
		assert.NotNil(t, resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.NotEmpty(t, resp.UserID)
	})

	t.Run("AnonymousWithoutPassword", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.IsAnonymous && u.HashedPassword == nil
		})).Return(nil)

		svc := newAuthService(repo)
		resp, err := svc.Register(context.Background(), service.RegisterInput{Anonymous: true})
		assert.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("NonAnonymousNeedsPassword", func(t *testing.T) {
		svc := newAuthService(new(MockUserRepo))
		resp, err := svc.Register(context.Background(), service.RegisterInput{Anonymous: false})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, resp)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		repo := new(MockUserRepo)
		existing := &domain.User{ID: primitive.NewObjectID(), Username: strPtr("existing")}
		repo.On("GetByUsername", mock.Anything, "existing").Return(existing, nil)

		svc := newAuthService(repo)
		resp, err := svc.Register(context.Background(), service.RegisterInput{
			Username:  strPtr("existing"),
			Anonymous: false,
			Password:  "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Nil(t, resp)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hashed, _ := hasher.Hash("CorrectHorse1!")
	knownUser := &domain.User{
		ID:             primitive.NewObjectID(),
		Username:       strPtr("alice"),
		HashedPassword: &hashed,
		Provider:       domain.ProviderLocal,
	}

	t.Run("Success", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByUsername", mock.Anything, "alice").Return(knownUser, nil)

		svc := newAuthService(repo)
		resp, err := svc.Login(context.Background(), "alice", "CorrectHorse1!")
		assert.NoError(t, err)
		assert.Equal(t, knownUser.ID.Hex(), resp.UserID)
	})

	// Wrong password and unknown username must be indistinguishable.
	t.Run("WrongPassword", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByUsername", mock.Anything, "alice").Return(knownUser, nil)

		svc := newAuthService(repo)
		resp, err := svc.Login(context.Background(), "alice", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Nil(t, resp)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByUsername", mock.Anything, "nobody").Return(nil, nil)

		svc := newAuthService(repo)
		resp, err := svc.Login(context.Background(), "nobody", "whatever")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Nil(t, resp)
	})

	t.Run("PasswordlessAccount", func(t *testing.T) {
		repo := new(MockUserRepo)
		anon := &domain.User{ID: primitive.NewObjectID(), IsAnonymous: true}
		repo.On("GetByUsername", mock.Anything, "ghost").Return(anon, nil)

		svc := newAuthService(repo)
		resp, err := svc.Login(context.Background(), "ghost", "anything")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		assert.Nil(t, resp)
	})
}

func TestGetOrCreateGoogleUser(t *testing.T) {
	info := service.GoogleUserInfo{
		Sub:     "google-sub-1",
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://example.com/alice.png",
	}

	t.Run("ExistingGoogleUser", func(t *testing.T) {
		repo := new(MockUserRepo)
		sub := info.Sub
		existing := &domain.User{ID: primitive.NewObjectID(), GoogleID: &sub, Provider: domain.ProviderGoogle}
		repo.On("GetByGoogleID", mock.Anything, info.Sub).Return(existing, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ProfilePictureURL != nil && *u.ProfilePictureURL == info.Picture
		})).Return(nil)

		svc := newAuthService(repo)
		user, err := svc.GetOrCreateGoogleUser(context.Background(), info)
		assert.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
	})

	t.Run("LinksLocalAccountByEmail", func(t *testing.T) {
		repo := new(MockUserRepo)
		local := &domain.User{ID: primitive.NewObjectID(), Email: strPtr(info.Email), Provider: domain.ProviderLocal}
		repo.On("GetByGoogleID", mock.Anything, info.Sub).Return(nil, nil)
		repo.On("GetByEmail", mock.Anything, info.Email).Return(local, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.GoogleID != nil && *u.GoogleID == info.Sub && u.Provider == domain.ProviderGoogle
		})).Return(nil)

		svc := newAuthService(repo)
		user, err := svc.GetOrCreateGoogleUser(context.Background(), info)
		assert.NoError(t, err)
		assert.Equal(t, local.ID, user.ID)
	})

	t.Run("CreatesNewUser", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("GetByGoogleID", mock.Anything, info.Sub).Return(nil, nil)
		repo.On("GetByEmail", mock.Anything, info.Email).Return(nil, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Provider == domain.ProviderGoogle && !u.IsAnonymous
		})).Return(nil)

		svc := newAuthService(repo)
		user, err := svc.GetOrCreateGoogleUser(context.Background(), info)
		assert.NoError(t, err)
		assert.False(t, user.ID.IsZero())
	})
}
