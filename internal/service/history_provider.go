package service

import (
	"context"
	"fmt"

	"kairos_go/internal/ai"
	"kairos_go/internal/domain"
	"kairos_go/internal/security"
)

// HistoryProvider feeds a user's recent decrypted turns to the AI service as
// reply context. Turns that fail to decrypt are skipped.
type HistoryProvider struct {
	messages  domain.MessageRepository
	encryptor *security.Encryptor
}

func NewHistoryProvider(messages domain.MessageRepository, encryptor *security.Encryptor) *HistoryProvider {
	return &HistoryProvider{messages: messages, encryptor: encryptor}
}

var _ ai.ContextProvider = (*HistoryProvider)(nil)

func (p *HistoryProvider) RecentTurns(ctx context.Context, userID string, limit int) ([]ai.Turn, error) {
	msgs, err := p.messages.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}

	// Newest first from the DB; context reads oldest first.
	turns := make([]ai.Turn, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		content, err := p.encryptor.Decrypt(msgs[i].Content)
		if err != nil {
			continue
		}
		turns = append(turns, ai.Turn{Role: msgs[i].Role, Content: content})
	}
	return turns, nil
}
