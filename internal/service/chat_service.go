package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"kairos_go/internal/crisis"
	"kairos_go/internal/domain"
	"kairos_go/internal/escalation"
	"kairos_go/internal/security"
)

// Fixed scripts for the crisis and failure paths.
const (
	safetyReply = "I'm really sorry you're feeling this way. " +
		"Your feelings matter, and you don't have to go through this alone. " +
		"Please consider reaching out to a crisis helpline or a trusted adult immediately. " +
		"You are valuable and there are people who want to help."

	processingErrorReply = "I'm sorry, an error occurred while processing your message."

	historyMask = "[stored content encrypted or corrupted]"
)

// CrisisSuggestions are the emergency actions returned with every crisis reply.
var CrisisSuggestions = []string{
	"Call a crisis helpline immediately",
	"Reach out to a trusted adult",
	"Go to your nearest emergency room",
	"Text a crisis support number",
}

// Responder is the AI surface the chat service depends on. All operations
// are total: failures degrade to fallback content inside the implementation.
type Responder interface {
	AnalyzeEmotion(ctx context.Context, text string) domain.EmotionAnalysis
	GenerateEmpathicReply(ctx context.Context, text, userID string) string
	WellnessSuggestions(ctx context.Context, emotion, userID string) []string
}

// Escalator queues crisis turns for moderator review.
type Escalator interface {
	NotifyModerators(ctx context.Context, job escalation.Job) error
}

// ChatService orchestrates a chat turn: emotion analysis, crisis screening,
// persistence, and reply generation.
type ChatService struct {
	messages    domain.MessageRepository
	ai          Responder
	encryptor   *security.Encryptor
	escalations Escalator
}

func NewChatService(messages domain.MessageRepository, responder Responder, encryptor *security.Encryptor, escalations Escalator) *ChatService {
	return &ChatService{
		messages:    messages,
		ai:          responder,
		encryptor:   encryptor,
		escalations: escalations,
	}
}

// ChatResult is the outcome of one inbound message.
type ChatResult struct {
	Reply       string                 `json:"reply"`
	Crisis      bool                   `json:"crisis"`
	Analysis    domain.EmotionAnalysis `json:"analysis"`
	Suggestions []string               `json:"suggestions"`
}

// MessageView is a decrypted chat message as returned to clients.
type MessageView struct {
	ID        string                  `json:"id"`
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	Metadata  *domain.MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// ProcessMessage runs the full turn. It never fails: any internal error is
// substituted with the fixed processing-error reply, and a user message that
// was already persisted stays persisted.
func (s *ChatService) ProcessMessage(ctx context.Context, userID, text string) *ChatResult {
	analysis := s.ai.AnalyzeEmotion(ctx, text)
	res, err := s.process(ctx, userID, text, analysis)
	if err != nil {
		log.Printf("chat: processing message for user %s: %v", userID, err)
		return &ChatResult{
			Reply:       processingErrorReply,
			Analysis:    analysis,
			Suggestions: []string{},
		}
	}
	return res
}

func (s *ChatService) process(ctx context.Context, userID, text string, analysis domain.EmotionAnalysis) (*ChatResult, error) {
	if crisis.Detect(text) {
		return s.handleCrisis(ctx, userID, analysis)
	}

	encrypted, err := s.encryptor.Encrypt(text)
	if err != nil {
		return nil, fmt.Errorf("encrypt user message: %w", err)
	}
	userMsg := &domain.ChatMessage{
		UserID:   userID,
		Role:     domain.RoleUser,
		Content:  encrypted,
		Metadata: &domain.MessageMetadata{Analysis: &analysis},
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	reply := s.ai.GenerateEmpathicReply(ctx, text, userID)
	suggestions := s.ai.WellnessSuggestions(ctx, analysis.Label, userID)

	encryptedReply, err := s.encryptor.Encrypt(reply)
	if err != nil {
		return nil, fmt.Errorf("encrypt bot reply: %w", err)
	}
	botMsg := &domain.ChatMessage{
		UserID:  userID,
		Role:    domain.RoleBot,
		Content: encryptedReply,
		Metadata: &domain.MessageMetadata{
			Analysis:    &analysis,
			Suggestions: suggestions,
		},
	}
	if err := s.messages.Create(ctx, botMsg); err != nil {
		return nil, fmt.Errorf("save bot reply: %w", err)
	}

	return &ChatResult{
		Reply:       reply,
		Crisis:      false,
		Analysis:    analysis,
		Suggestions: suggestions,
	}, nil
}

// handleCrisis stores the fixed safety script and queues moderator
// escalation. Reply generation is never invoked for a crisis turn.
func (s *ChatService) handleCrisis(ctx context.Context, userID string, analysis domain.EmotionAnalysis) (*ChatResult, error) {
	encrypted, err := s.encryptor.Encrypt(safetyReply)
	if err != nil {
		return nil, fmt.Errorf("encrypt safety reply: %w", err)
	}
	msg := &domain.ChatMessage{
		UserID:  userID,
		Role:    domain.RoleBot,
		Content: encrypted,
		Metadata: &domain.MessageMetadata{
			Crisis:   true,
			Analysis: &analysis,
		},
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save crisis reply: %w", err)
	}

	if s.escalations != nil {
		job := escalation.Job{
			UserID:     userID,
			MessageID:  msg.ID.Hex(),
			DetectedAt: time.Now().UTC(),
		}
		if err := s.escalations.NotifyModerators(ctx, job); err != nil {
			log.Printf("chat: crisis escalation for user %s: %v", userID, err)
		}
	}

	return &ChatResult{
		Reply:       safetyReply,
		Crisis:      true,
		Analysis:    analysis,
		Suggestions: CrisisSuggestions,
	}, nil
}

// History returns the user's most recent turns in chronological order,
// decrypted. Unreadable content is masked, never surfaced as an error.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]*MessageView, error) {
	if limit <= 0 {
		limit = 50
	}
	msgs, err := s.messages.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	// DB returns newest first; present oldest first.
	out := make([]*MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		content, err := s.encryptor.Decrypt(m.Content)
		if err != nil {
			content = historyMask
		}
		out = append(out, &MessageView{
			ID:        m.ID.Hex(),
			Role:      m.Role,
			Content:   content,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}
