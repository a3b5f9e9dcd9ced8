package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kairos_go/internal/domain"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
	"kairos_go/internal/ws"
)

type stubUserRepo struct {
	user *domain.User
}

func (r *stubUserRepo) Create(ctx context.Context, u *domain.User) error { return nil }

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if r.user != nil && r.user.ID.Hex() == id {
		return r.user, nil
	}
	return nil, nil
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) Update(ctx context.Context, u *domain.User) error { return nil }

func (r *stubUserRepo) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

// ctxAwareMessageRepo fails Create when the context is already dead, the way
// a real driver would.
type ctxAwareMessageRepo struct {
	mu   sync.Mutex
	msgs []*domain.ChatMessage
}

func (r *ctxAwareMessageRepo) Create(ctx context.Context, m *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now().UTC()
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	return nil
}

func (r *ctxAwareMessageRepo) stored() []*domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.ChatMessage(nil), r.msgs...)
}

func (r *ctxAwareMessageRepo) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) ListForUserAsc(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) UpdateMetadata(ctx context.Context, id string, md *domain.MessageMetadata) error {
	return nil
}

func (r *ctxAwareMessageRepo) ListFiltered(ctx context.Context, f domain.MessageFilter) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) ListFlaggedOrCrisis(ctx context.Context) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) ListWithMetadataSince(ctx context.Context, since time.Time, limit int) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (r *ctxAwareMessageRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (r *ctxAwareMessageRepo) CountWithMetadata(ctx context.Context) (int64, error) { return 0, nil }

func (r *ctxAwareMessageRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (r *ctxAwareMessageRepo) LastForUser(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	return nil, nil
}

type stubResponder struct{}

func (s *stubResponder) AnalyzeEmotion(ctx context.Context, text string) domain.EmotionAnalysis {
	return domain.EmotionAnalysis{Label: "sadness", Score: 0.7, Intensity: "moderate", Source: "gemini"}
}

func (s *stubResponder) GenerateEmpathicReply(ctx context.Context, text, userID string) string {
	return "That sounds really tough. You're brave for sharing this with me."
}

func (s *stubResponder) WellnessSuggestions(ctx context.Context, emotion, userID string) []string {
	return []string{"Take a short walk"}
}

// A socket opened through a router with a request timeout must keep working
// after that deadline passes: turns are still persisted and crisis turns
// still produce the safety script.
func TestHandlerOutlivesRequestTimeout(t *testing.T) {
	user := &domain.User{ID: primitive.NewObjectID()}
	users := &stubUserRepo{user: user}
	repo := &ctxAwareMessageRepo{}
	enc, err := security.NewEncryptor([]byte("ws-test-key"), nil)
	assert.NoError(t, err)
	chatSvc := service.NewChatService(repo, &stubResponder{}, enc, nil)

	tokens := security.NewTokenService("secret", time.Hour)
	token, err := tokens.CreateForUser(user.ID.Hex())
	assert.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.Timeout(200 * time.Millisecond))
	r.Get("/api/chat/ws", ws.MakeHandler(ws.NewHub(), tokens, users, chatSvc, []string{"http://localhost:3000"}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Origin", "http://localhost:3000")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	assert.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	send := func(msg string) map[string]any {
		t.Helper()
		assert.NoError(t, conn.WriteJSON(map[string]any{"message": msg}))
		var reply map[string]any
		assert.NoError(t, conn.ReadJSON(&reply))
		return reply
	}

	first := send("I failed my exam today")
	assert.Equal(t, "bot_reply", first["type"])
	assert.Len(t, repo.stored(), 2)

	// Outlast the router's request deadline, then keep chatting.
	time.Sleep(300 * time.Millisecond)

	second := send("I want to kill myself")
	assert.Equal(t, "crisis_alert", second["type"])
	assert.Equal(t, true, second["crisis"])
	stored := repo.stored()
	assert.Len(t, stored, 3)
	assert.True(t, stored[2].IsCrisis())
}
