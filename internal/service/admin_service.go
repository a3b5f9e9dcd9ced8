package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kairos_go/internal/domain"
	"kairos_go/internal/security"
)

// adminMask replaces content a moderator is not able to decrypt.
const adminMask = "[encrypted content]"

var (
	negativeEmotions = []string{"sadness", "anger", "fear", "anxiety"}
	positiveEmotions = []string{"joy", "excitement"}
)

// AdminService serves the moderation dashboard: read-only aggregations over
// the message store plus the single flag-message write.
type AdminService struct {
	users     domain.UserRepository
	messages  domain.MessageRepository
	ai        Responder
	encryptor *security.Encryptor
}

func NewAdminService(users domain.UserRepository, messages domain.MessageRepository, responder Responder, encryptor *security.Encryptor) *AdminService {
	return &AdminService{
		users:     users,
		messages:  messages,
		ai:        responder,
		encryptor: encryptor,
	}
}

type DashboardReport struct {
	TotalUsers      int64          `json:"total_users"`
	Messages24h     int64          `json:"messages_24h"`
	FlaggedMessages int64          `json:"flagged_messages"`
	EmotionTrends   map[string]int `json:"emotion_trends"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Dashboard aggregates a 24-hour overview. The emotion tally samples at most
// 100 recent analyzed messages.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	yesterday := time.Now().UTC().Add(-24 * time.Hour)

	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	recent, err := s.messages.CountSince(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("count recent messages: %w", err)
	}
	flagged, err := s.messages.CountWithMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("count flagged: %w", err)
	}

	sample, err := s.messages.ListWithMetadataSince(ctx, yesterday, 100)
	if err != nil {
		return nil, fmt.Errorf("sample messages: %w", err)
	}
	trends := make(map[string]int)
	for _, m := range sample {
		if label := m.EmotionLabel(); label != "" {
			trends[label]++
		}
	}

	return &DashboardReport{
		TotalUsers:      totalUsers,
		Messages24h:     recent,
		FlaggedMessages: flagged,
		EmotionTrends:   trends,
		Timestamp:       time.Now().UTC(),
	}, nil
}

type AdminMessage struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	Metadata  *domain.MessageMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// ListMessages returns a filtered, decrypted page of messages, newest first.
func (s *AdminService) ListMessages(ctx context.Context, f domain.MessageFilter) ([]*AdminMessage, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	msgs, err := s.messages.ListFiltered(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]*AdminMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &AdminMessage{
			ID:        m.ID.Hex(),
			UserID:    m.UserID,
			Role:      m.Role,
			Content:   s.decryptOrMask(m.Content),
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

type FlaggedMessage struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	Crisis        bool      `json:"crisis"`
	FlaggedReason *string   `json:"flagged_reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListFlagged returns crisis or moderator-flagged messages, newest first.
func (s *AdminService) ListFlagged(ctx context.Context) ([]*FlaggedMessage, error) {
	msgs, err := s.messages.ListFlaggedOrCrisis(ctx)
	if err != nil {
		return nil, fmt.Errorf("list flagged: %w", err)
	}

	out := make([]*FlaggedMessage, 0, len(msgs))
	for _, m := range msgs {
		fm := &FlaggedMessage{
			ID:        m.ID.Hex(),
			UserID:    m.UserID,
			Role:      m.Role,
			Content:   s.decryptOrMask(m.Content),
			Crisis:    m.IsCrisis(),
			CreatedAt: m.CreatedAt,
		}
		if m.Metadata != nil && m.Metadata.Flagged != nil {
			fm.FlaggedReason = &m.Metadata.Flagged.Reason
		}
		out = append(out, fm)
	}
	return out, nil
}

// FlagMessage attaches flag metadata to a message. Existing metadata variants
// are preserved.
func (s *AdminService) FlagMessage(ctx context.Context, messageID, reason, moderatorID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return domain.ErrNotFound
	}

	md := msg.Metadata
	if md == nil {
		md = &domain.MessageMetadata{}
	}
	md.Flagged = &domain.FlagInfo{
		Reason: reason,
		By:     moderatorID,
		At:     time.Now().UTC(),
	}
	if err := s.messages.UpdateMetadata(ctx, messageID, md); err != nil {
		return fmt.Errorf("flag message: %w", err)
	}
	return nil
}

type CrisisIndicator struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationReport struct {
	UserID              string                 `json:"user_id"`
	TotalMessages       int                    `json:"total_messages"`
	EmotionDistribution map[string]int         `json:"emotion_distribution"`
	CrisisIndicators    []CrisisIndicator      `json:"crisis_indicators"`
	OverallSentiment    domain.EmotionAnalysis `json:"overall_sentiment"`
	RequiresAttention   bool                   `json:"requires_attention"`
	AnalyzedAt          time.Time              `json:"analysis_timestamp"`
}

// AnalyzeConversation reviews up to 50 of a user's messages and runs an
// overall sentiment pass on the last ten turns.
func (s *AdminService) AnalyzeConversation(ctx context.Context, userID string) (*ConversationReport, error) {
	msgs, err := s.messages.ListForUserAsc(ctx, userID, 50)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	if len(msgs) == 0 {
		return nil, domain.ErrNotFound
	}

	var transcript []string
	emotions := make(map[string]int)
	var indicators []CrisisIndicator

	for _, m := range msgs {
		content, err := s.encryptor.Decrypt(m.Content)
		if err != nil {
			continue
		}
		transcript = append(transcript, fmt.Sprintf("%s: %s", m.Role, content))

		if m.IsCrisis() {
			indicators = append(indicators, CrisisIndicator{
				Message:   content,
				Timestamp: m.CreatedAt,
			})
		}
		if label := m.EmotionLabel(); label != "" {
			emotions[label]++
		}
	}

	if len(transcript) > 10 {
		transcript = transcript[len(transcript)-10:]
	}
	overall := s.ai.AnalyzeEmotion(ctx, strings.Join(transcript, "\n"))

	attention := len(indicators) > 0
	switch overall.Label {
	case "sadness", "fear", "anger":
		attention = true
	}

	return &ConversationReport{
		UserID:              userID,
		TotalMessages:       len(msgs),
		EmotionDistribution: emotions,
		CrisisIndicators:    indicators,
		OverallSentiment:    overall,
		RequiresAttention:   attention,
		AnalyzedAt:          time.Now().UTC(),
	}, nil
}

type EmotionsReport struct {
	PeriodDays     int                       `json:"period_days"`
	StartDate      time.Time                 `json:"start_date"`
	EndDate        time.Time                 `json:"end_date"`
	DailyBreakdown map[string]map[string]int `json:"daily_breakdown"`
	EmotionTotals  map[string]int            `json:"emotion_totals"`
	TotalAnalyzed  int                       `json:"total_analyzed_messages"`
}

// EmotionsReport tallies analyzed messages per day over the given window.
func (s *AdminService) EmotionsReport(ctx context.Context, days int) (*EmotionsReport, error) {
	if days < 1 {
		days = 7
	}
	if days > 30 {
		days = 30
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days)

	msgs, err := s.messages.ListWithMetadataSince(ctx, start, 0)
	if err != nil {
		return nil, fmt.Errorf("list analyzed messages: %w", err)
	}

	daily := make(map[string]map[string]int)
	totals := make(map[string]int)
	for _, m := range msgs {
		label := m.EmotionLabel()
		if label == "" {
			continue
		}
		day := m.CreatedAt.UTC().Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = make(map[string]int)
		}
		daily[day][label]++
		totals[label]++
	}

	return &EmotionsReport{
		PeriodDays:     days,
		StartDate:      start,
		EndDate:        now,
		DailyBreakdown: daily,
		EmotionTotals:  totals,
		TotalAnalyzed:  len(msgs),
	}, nil
}

type Recommendation struct {
	Priority string `json:"priority"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

type InsightsReport struct {
	AnalysisPeriod   string           `json:"analysis_period"`
	MessagesAnalyzed int              `json:"messages_analyzed"`
	NegativeEmotions int              `json:"negative_emotions"`
	PositiveEmotions int              `json:"positive_emotions"`
	CrisisIndicators int              `json:"crisis_indicators"`
	Recommendations  []Recommendation `json:"recommendations"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// WellnessInsights summarizes the last seven days and derives prioritized
// recommendations from the emotional balance.
func (s *AdminService) WellnessInsights(ctx context.Context) (*InsightsReport, error) {
	since := time.Now().UTC().AddDate(0, 0, -7)
	msgs, err := s.messages.ListWithMetadataSince(ctx, since, 200)
	if err != nil {
		return nil, fmt.Errorf("list recent analyzed messages: %w", err)
	}

	var negative, positive, crisisCount int
	for _, m := range msgs {
		if m.IsCrisis() {
			crisisCount++
		}
		label := m.EmotionLabel()
		switch {
		case contains(negativeEmotions, label):
			negative++
		case contains(positiveEmotions, label):
			positive++
		}
	}

	var recs []Recommendation
	if crisisCount > 0 {
		recs = append(recs, Recommendation{
			Priority: "high",
			Type:     "crisis_support",
			Message:  fmt.Sprintf("%d crisis indicators detected. Review crisis response protocols.", crisisCount),
			Action:   "immediate_review",
		})
	}
	if negative > positive*2 {
		recs = append(recs, Recommendation{
			Priority: "medium",
			Type:     "emotional_support",
			Message:  "High proportion of negative emotions detected. Consider enhanced support resources.",
			Action:   "resource_enhancement",
		})
	}
	recs = append(recs, Recommendation{
		Priority: "low",
		Type:     "general",
		Message:  "Continue monitoring emotional trends and user engagement patterns.",
		Action:   "routine_monitoring",
	})

	return &InsightsReport{
		AnalysisPeriod:   "7 days",
		MessagesAnalyzed: len(msgs),
		NegativeEmotions: negative,
		PositiveEmotions: positive,
		CrisisIndicators: crisisCount,
		Recommendations:  recs,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

type UserStats struct {
	ID           string     `json:"id"`
	Username     *string    `json:"username"`
	IsAnonymous  bool       `json:"is_anonymous"`
	CreatedAt    time.Time  `json:"created_at"`
	MessageCount int64      `json:"message_count"`
	LastActivity *time.Time `json:"last_activity"`
}

// ListUsers pages through users with per-user message stats.
func (s *AdminService) ListUsers(ctx context.Context, skip, limit int) ([]*UserStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*UserStats, 0, len(users))
	for _, u := range users {
		id := u.ID.Hex()
		count, err := s.messages.CountForUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count messages for %s: %w", id, err)
		}
		stats := &UserStats{
			ID:           id,
			Username:     u.Username,
			IsAnonymous:  u.IsAnonymous,
			CreatedAt:    u.CreatedAt,
			MessageCount: count,
		}
		if last, err := s.messages.LastForUser(ctx, id); err == nil && last != nil {
			stats.LastActivity = &last.CreatedAt
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *AdminService) decryptOrMask(content string) string {
	plain, err := s.encryptor.Decrypt(content)
	if err != nil {
		return adminMask
	}
	return plain
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
