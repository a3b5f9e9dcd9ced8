package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"kairos_go/internal/domain"
	"kairos_go/internal/escalation"
	"kairos_go/internal/security"
	"kairos_go/internal/service"
)

// fakeMessageRepo is an in-memory MessageRepository sufficient for the chat
// service tests.
type fakeMessageRepo struct {
	msgs      []*domain.ChatMessage
	createErr error
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *domain.ChatMessage) error {
	if f.createErr != nil {
		return f.createErr
	}
	m.ID = primitive.NewObjectID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	for _, m := range f.msgs {
		if m.ID.Hex() == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	for i := len(f.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.msgs[i].UserID == userID {
			out = append(out, f.msgs[i])
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListForUserAsc(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	for _, m := range f.msgs {
		if m.UserID == userID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) UpdateMetadata(ctx context.Context, id string, md *domain.MessageMetadata) error {
	for _, m := range f.msgs {
		if m.ID.Hex() == id {
			m.Metadata = md
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeMessageRepo) ListFiltered(ctx context.Context, filter domain.MessageFilter) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) ListFlaggedOrCrisis(ctx context.Context) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) ListWithMetadataSince(ctx context.Context, since time.Time, limit int) ([]*domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeMessageRepo) CountWithMetadata(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeMessageRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeMessageRepo) LastForUser(ctx context.Context, userID string) (*domain.ChatMessage, error) {
	return nil, nil
}

// stubResponder returns canned values and records which operations ran.
type stubResponder struct {
	analyzeCalls      int
	replyCalled       bool
	suggestionsCalled bool
}

func (s *stubResponder) AnalyzeEmotion(ctx context.Context, text string) domain.EmotionAnalysis {
	s.analyzeCalls++
	return domain.EmotionAnalysis{Label: "sadness", Score: 0.7, Intensity: "moderate", Source: "gemini"}
}

func (s *stubResponder) GenerateEmpathicReply(ctx context.Context, text, userID string) string {
	s.replyCalled = true
	return "That sounds really tough. You're brave for sharing this with me."
}

func (s *stubResponder) WellnessSuggestions(ctx context.Context, emotion, userID string) []string {
	s.suggestionsCalled = true
	return []string{"Take a short walk", "Write in a journal"}
}

type stubEscalator struct {
	jobs []escalation.Job
}

func (s *stubEscalator) NotifyModerators(ctx context.Context, job escalation.Job) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func newChatFixture(t *testing.T, repo *fakeMessageRepo) (*service.ChatService, *stubResponder, *stubEscalator, *security.Encryptor) {
	t.Helper()
	enc, err := security.NewEncryptor([]byte("chat-test-key"), nil)
	assert.NoError(t, err)
	responder := &stubResponder{}
	escalator := &stubEscalator{}
	return service.NewChatService(repo, responder, enc, escalator), responder, escalator, enc
}

func TestProcessMessageNormalTurn(t *testing.T) {
	repo := &fakeMessageRepo{}
	svc, responder, escalator, enc := newChatFixture(t, repo)

	res := svc.ProcessMessage(context.Background(), "user-1", "I failed my exam today")

	assert.False(t, res.Crisis)
	assert.Equal(t, "That sounds really tough. You're brave for sharing this with me.", res.Reply)
	assert.Equal(t, "sadness", res.Analysis.Label)
	assert.True(t, responder.suggestionsCalled)
	assert.Empty(t, escalator.jobs)

	// User turn and bot turn both persisted, encrypted at rest.
	assert.Len(t, repo.msgs, 2)
	userMsg, botMsg := repo.msgs[0], repo.msgs[1]
	assert.Equal(t, domain.RoleUser, userMsg.Role)
	assert.NotEqual(t, "I failed my exam today", userMsg.Content)
	plain, err := enc.Decrypt(userMsg.Content)
	assert.NoError(t, err)
	assert.Equal(t, "I failed my exam today", plain)

	assert.Equal(t, domain.RoleBot, botMsg.Role)
	assert.Equal(t, res.Suggestions, botMsg.Metadata.Suggestions)
	assert.Equal(t, "sadness", botMsg.Metadata.Analysis.Label)
}

func TestProcessMessageCrisisTurn(t *testing.T) {
	repo := &fakeMessageRepo{}
	svc, responder, escalator, _ := newChatFixture(t, repo)

	res := svc.ProcessMessage(context.Background(), "user-1", "I want to kill myself")

	assert.True(t, res.Crisis)
	assert.Equal(t, service.CrisisSuggestions, res.Suggestions)
	assert.Contains(t, res.Reply, "crisis helpline")

	// The reply-generation path must never run for a crisis turn.
	assert.False(t, responder.replyCalled)
	assert.False(t, responder.suggestionsCalled)

	// Only the safety script is stored, flagged as crisis, and escalated.
	assert.Len(t, repo.msgs, 1)
	assert.Equal(t, domain.RoleBot, repo.msgs[0].Role)
	assert.True(t, repo.msgs[0].IsCrisis())
	assert.Len(t, escalator.jobs, 1)
	assert.Equal(t, "user-1", escalator.jobs[0].UserID)
	assert.Equal(t, repo.msgs[0].ID.Hex(), escalator.jobs[0].MessageID)
}

func TestProcessMessagePersistenceFailure(t *testing.T) {
	repo := &fakeMessageRepo{createErr: errors.New("db down")}
	svc, responder, _, _ := newChatFixture(t, repo)

	res := svc.ProcessMessage(context.Background(), "user-1", "hello there")

	assert.False(t, res.Crisis)
	assert.Equal(t, "I'm sorry, an error occurred while processing your message.", res.Reply)
	assert.Equal(t, 1, responder.analyzeCalls)
	assert.Equal(t, "sadness", res.Analysis.Label)
}

func TestHistoryDecryptsAndMasks(t *testing.T) {
	repo := &fakeMessageRepo{}
	svc, _, _, enc := newChatFixture(t, repo)

	ct, err := enc.Encrypt("first message")
	assert.NoError(t, err)
	repo.msgs = append(repo.msgs, &domain.ChatMessage{
		ID:        primitive.NewObjectID(),
		UserID:    "user-1",
		Role:      domain.RoleUser,
		Content:   ct,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	})
	repo.msgs = append(repo.msgs, &domain.ChatMessage{
		ID:        primitive.NewObjectID(),
		UserID:    "user-1",
		Role:      domain.RoleBot,
		Content:   "garbage-ciphertext",
		CreatedAt: time.Now().Add(-time.Minute),
	})

	views, err := svc.History(context.Background(), "user-1", 50)
	assert.NoError(t, err)
	assert.Len(t, views, 2)

	// Chronological order, corrupted content masked.
	assert.Equal(t, "first message", views[0].Content)
	assert.Equal(t, "[stored content encrypted or corrupted]", views[1].Content)
}
