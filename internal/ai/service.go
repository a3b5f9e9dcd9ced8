// Package ai wraps the Gemini API for the three model-backed operations:
// emotion analysis, empathic reply generation, and wellness suggestions.
// Every operation degrades to static content when the API is unavailable or
// returns something unusable; callers never see a model error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kairos_go/internal/domain"
)

const (
	sourceModel         = "gemini"
	sourceFallback      = "fallback"
	sourceErrorFallback = "error_fallback"

	replyMinLength = 10

	systemPrompt = `You are a compassionate mental wellness assistant for youth. Your role is to:

1. LISTEN with empathy and validate feelings
2. Respond in a warm, caring, and non-judgmental way
3. Use mix of English and Hindi naturally (code-switching like Indian youth)
4. Keep responses concise (2-3 sentences max)
5. Offer small, actionable steps when appropriate
6. Never give medical advice or diagnosis
7. If someone expresses self-harm intentions, acknowledge their pain and suggest professional help

Response style examples:
- "Main samajh raha hoon tum kya feel kar rahe ho. Kya tum aur share karna chahoge?"
- "That sounds really tough. You're brave for sharing this with me."
- "Kabhi kabhi aisa feel karna normal hai. Tumhari feelings valid hain."
- "It's okay to feel like this. Take a deep breath, you're not alone."

Be genuine, warm, and supportive. Avoid clinical language.`

	// Replies that slip self-harm vocabulary past the persona prompt are
	// rewritten to this fixed message.
	safeReply = "I hear that you're going through a really tough time. Please consider reaching out to a counselor or trusted adult. You matter, and there are people who want to help."
)

// FallbackReplies is returned (randomly picked) when reply generation fails.
var FallbackReplies = []string{
	"Main samajh raha hoon tum kya feel kar rahe ho. Kya tum aur share karna chahoge?",
	"That sounds tough. You're not alone in this journey.",
	"Kabhi kabhi aisa feel karna normal hai. Tumhari feelings valid hain.",
	"I hear you. Would you like to share more about what you're going through?",
	"It's okay to feel like this. Take a deep breath, you're not alone.",
}

// FallbackSuggestions is returned when suggestion generation fails.
var FallbackSuggestions = []string{
	"Take a few deep breaths",
	"Write in a journal",
	"Talk to someone you trust",
	"Go for a short walk",
}

var bannedReplyWords = []string{"suicide", "kill", "die", "hurt yourself"}

// Turn is one prior chat exchange used as conversational context.
type Turn struct {
	Role    string
	Content string
}

// ContextProvider supplies a user's recent decrypted turns for reply context.
type ContextProvider interface {
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// Service calls Gemini for emotion analysis, replies, and suggestions.
type Service struct {
	client  *genai.Client
	model   string
	history ContextProvider
	ready   bool
}

// New creates the AI service. A client construction failure leaves the
// service in fallback-only mode rather than aborting startup.
func New(ctx context.Context, apiKey, model string, history ContextProvider) *Service {
	s := &Service{model: model, history: history}
	if apiKey == "" {
		log.Println("ai: no API key configured, running on static fallbacks")
		return s
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		log.Printf("ai: failed to create client, running on static fallbacks: %v", err)
		return s
	}
	s.client = client
	s.ready = true
	return s
}

func (s *Service) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("ai: closing client: %v", err)
		}
	}
}

// AnalyzeEmotion classifies the emotional tone of text. Any failure yields a
// neutral result tagged with a non-model source.
func (s *Service) AnalyzeEmotion(ctx context.Context, text string) domain.EmotionAnalysis {
	if !s.ready {
		return neutralAnalysis(sourceFallback)
	}

	prompt := fmt.Sprintf(`Analyze the emotional tone of this message and respond with ONLY a JSON object in this exact format:
{"label": "emotion_name", "score": 0.8, "intensity": "mild/moderate/high"}

Valid emotions: joy, sadness, anger, fear, surprise, disgust, anxiety, excitement, neutral

Message to analyze: %q

Respond with only the JSON object, no other text.`, text)

	out, err := s.generate(ctx, "", prompt, 100, 0.1)
	if err != nil {
		log.Printf("ai: emotion analysis: %v", err)
		return neutralAnalysis(sourceErrorFallback)
	}

	analysis, ok := parseAnalysis(out)
	if !ok {
		return neutralAnalysis(sourceFallback)
	}
	return analysis
}

// GenerateEmpathicReply produces a short supportive reply, optionally using
// the user's recent conversation as context. Falls back to a random canned
// reply on any failure.
func (s *Service) GenerateEmpathicReply(ctx context.Context, text, userID string) string {
	if !s.ready {
		return randomFallbackReply()
	}

	contextBlock := "No previous context"
	if s.history != nil && userID != "" {
		if turns, err := s.history.RecentTurns(ctx, userID, 3); err == nil && len(turns) > 0 {
			lines := make([]string, 0, len(turns))
			for _, t := range turns {
				role := "User"
				if t.Role == domain.RoleBot {
					role = "Assistant"
				}
				lines = append(lines, fmt.Sprintf("%s: %s", role, t.Content))
			}
			contextBlock = strings.Join(lines, "\n")
		}
	}

	prompt := fmt.Sprintf(`Current user message: %q

Recent conversation context:
%s

Please respond as a compassionate mental wellness assistant. Be empathetic, supportive, and offer hope. Mix English and Hindi naturally. Keep it conversational and warm (2-3 sentences max).`, text, contextBlock)

	reply, err := s.generate(ctx, systemPrompt, prompt, 150, 0.7)
	if err != nil {
		log.Printf("ai: reply generation: %v", err)
		return randomFallbackReply()
	}
	return SanitizeReply(reply)
}

// WellnessSuggestions asks for 3-4 short activities for the given emotion.
func (s *Service) WellnessSuggestions(ctx context.Context, emotion, userID string) []string {
	if !s.ready {
		return FallbackSuggestions
	}

	prompt := fmt.Sprintf(`Based on someone feeling %s, suggest 3-4 simple, actionable wellness activities for a young person. Mix English and Hindi naturally.

Format as a simple list, one activity per line. Keep each suggestion short and practical.

Emotion: %s`, emotion, emotion)

	out, err := s.generate(ctx, "", prompt, 200, 0.6)
	if err != nil {
		log.Printf("ai: wellness suggestions: %v", err)
		return FallbackSuggestions
	}

	suggestions := parseSuggestions(out)
	if len(suggestions) == 0 {
		return FallbackSuggestions
	}
	return suggestions
}

// generate runs a single-shot completion against the configured model.
func (s *Service) generate(ctx context.Context, system, prompt string, maxTokens int32, temperature float32) (string, error) {
	model := s.client.GenerativeModel(s.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temperature,
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned a non-text response")
	}
	return strings.TrimSpace(sb.String()), nil
}

// SanitizeReply enforces the reply contract: minimum length and no self-harm
// vocabulary in the assistant's own words.
func SanitizeReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if len(reply) < replyMinLength {
		return randomFallbackReply()
	}
	low := strings.ToLower(reply)
	for _, w := range bannedReplyWords {
		if strings.Contains(low, w) {
			return safeReply
		}
	}
	return reply
}

func neutralAnalysis(source string) domain.EmotionAnalysis {
	return domain.EmotionAnalysis{Label: "neutral", Score: 0.5, Intensity: "moderate", Source: source}
}

func randomFallbackReply() string {
	return FallbackReplies[rand.Intn(len(FallbackReplies))]
}

// parseAnalysis extracts the strict-JSON emotion object from model output,
// tolerating surrounding prose or code fences.
func parseAnalysis(out string) (domain.EmotionAnalysis, bool) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return domain.EmotionAnalysis{}, false
	}

	var parsed struct {
		Label     string  `json:"label"`
		Score     float64 `json:"score"`
		Intensity string  `json:"intensity"`
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &parsed); err != nil {
		return domain.EmotionAnalysis{}, false
	}
	if parsed.Label == "" {
		parsed.Label = "neutral"
	}
	if parsed.Intensity == "" {
		parsed.Intensity = "moderate"
	}
	return domain.EmotionAnalysis{
		Label:     parsed.Label,
		Score:     parsed.Score,
		Intensity: parsed.Intensity,
		Source:    sourceModel,
	}, true
}

// parseSuggestions splits model output into up to 4 cleaned list entries.
func parseSuggestions(out string) []string {
	var suggestions []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789. ")
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == 4 {
			break
		}
	}
	return suggestions
}
