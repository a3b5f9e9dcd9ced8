package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"kairos_go/internal/service"
)

type chatMessageRequest struct {
	Message string `json:"message"`
}

// @Summary      Send a chat message
// @Description  Run one conversation turn and return the assistant's reply
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body chatMessageRequest true "Message input"
// @Success      200  {object}  service.ChatResult
// @Failure      400  {object}  map[string]string
// @Router       /chat/message [post]
func handleChatMessage(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		var req chatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		text := strings.TrimSpace(req.Message)
		if text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message must not be empty"})
			return
		}

		res := chatSvc.ProcessMessage(r.Context(), user.ID.Hex(), text)
		writeJSON(w, http.StatusOK, res)
	}
}

// @Summary      Chat history
// @Description  Return the caller's conversation in chronological order
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        limit query int false "Max messages (default 50)"
// @Success      200  {array}  service.MessageView
// @Router       /chat/history [get]
func handleChatHistory(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		views, err := chatSvc.History(r.Context(), user.ID.Hex(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
			return
		}
		if views == nil {
			views = []*service.MessageView{}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// @Summary      Wellness suggestions
// @Description  Suggest short wellness activities for the given emotion
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        emotion query string false "Emotion label (default neutral)"
// @Success      200  {object}  map[string]any
// @Router       /chat/wellness-suggestions [get]
func handleWellnessSuggestions(responder service.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		emotion := strings.TrimSpace(r.URL.Query().Get("emotion"))
		if emotion == "" {
			emotion = "neutral"
		}
		suggestions := responder.WellnessSuggestions(r.Context(), emotion, user.ID.Hex())
		writeJSON(w, http.StatusOK, map[string]any{
			"emotion":     emotion,
			"suggestions": suggestions,
		})
	}
}

// @Summary      Emotion analysis
// @Description  Analyze the emotional tone of a piece of text
// @Tags         chat
// @Security     BearerAuth
// @Produce      json
// @Param        text query string true "Text to analyze"
// @Success      200  {object}  domain.EmotionAnalysis
// @Failure      400  {object}  map[string]string
// @Router       /chat/emotion-analysis [get]
func handleEmotionAnalysis(responder service.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		text := strings.TrimSpace(r.URL.Query().Get("text"))
		if text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text query parameter is required"})
			return
		}
		writeJSON(w, http.StatusOK, responder.AnalyzeEmotion(r.Context(), text))
	}
}
