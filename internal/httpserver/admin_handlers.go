package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"kairos_go/internal/domain"
	"kairos_go/internal/service"
)

// @Summary      Moderation dashboard
// @Description  Aggregate counts and a recent emotion trend
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  service.DashboardReport
// @Router       /admin/dashboard [get]
func handleAdminDashboard(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := adminSvc.Dashboard(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build dashboard"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// @Summary      List messages
// @Description  Page through stored messages with optional emotion and crisis filters
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        skip    query int    false "Offset"
// @Param        limit   query int    false "Page size (default 50, max 200)"
// @Param        emotion query string false "Emotion label filter"
// @Param        crisis  query bool   false "Crisis filter"
// @Success      200  {array}  service.AdminMessage
// @Router       /admin/messages [get]
func handleAdminMessages(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := domain.MessageFilter{}
		filter.Skip, _ = strconv.Atoi(q.Get("skip"))
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		if emotion := strings.TrimSpace(q.Get("emotion")); emotion != "" {
			filter.Emotion = &emotion
		}
		if crisisStr := q.Get("crisis"); crisisStr != "" {
			crisis, err := strconv.ParseBool(crisisStr)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "crisis must be a boolean"})
				return
			}
			filter.Crisis = &crisis
		}

		msgs, err := adminSvc.ListMessages(r.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		if msgs == nil {
			msgs = []*service.AdminMessage{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Flagged messages
// @Description  Messages flagged by moderators or marked as crisis, newest first
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  service.FlaggedMessage
// @Router       /admin/flagged [get]
func handleAdminFlagged(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := adminSvc.ListFlagged(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list flagged messages"})
			return
		}
		if msgs == nil {
			msgs = []*service.FlaggedMessage{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type flagRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Flag a message
// @Description  Mark a message for moderator review
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id     path  string true  "Message ID"
// @Param        reason query string false "Flag reason"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/flag/{id} [post]
func handleAdminFlag(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := chi.URLParam(r, "id")
		reason := strings.TrimSpace(r.URL.Query().Get("reason"))
		if reason == "" && r.Body != nil {
			var req flagRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				reason = strings.TrimSpace(req.Reason)
			}
		}
		if reason == "" {
			reason = "manual review"
		}

		moderatorID := ""
		if user := CurrentUser(r); user != nil {
			moderatorID = user.ID.Hex()
		}

		if err := adminSvc.FlagMessage(r.Context(), messageID, reason, moderatorID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to flag message"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "flagged", "message_id": messageID})
	}
}

// @Summary      Analyze a conversation
// @Description  Emotion distribution and crisis indicators for one user's conversation
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        user_id path string true "User ID"
// @Success      200  {object}  service.ConversationReport
// @Router       /admin/analyze-conversation/{user_id} [post]
func handleAdminAnalyzeConversation(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		report, err := adminSvc.AnalyzeConversation(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no conversation found for user"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to analyze conversation"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// @Summary      Emotions report
// @Description  Daily emotion breakdown over the requested window
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        days query int false "Window in days (1-30, default 7)"
// @Success      200  {object}  service.EmotionsReport
// @Router       /admin/emotions-report [get]
func handleAdminEmotionsReport(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		report, err := adminSvc.EmotionsReport(r.Context(), days)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build emotions report"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// @Summary      Wellness insights
// @Description  Weekly mood overview with prioritized recommendations
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  service.InsightsReport
// @Router       /admin/wellness-insights [post]
func handleAdminWellnessInsights(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := adminSvc.WellnessInsights(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build insights"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// @Summary      List users
// @Description  Users with per-user message counts and last activity
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        skip  query int false "Offset"
// @Param        limit query int false "Page size (default 50, max 100)"
// @Success      200  {array}  service.UserStats
// @Router       /admin/users [get]
func handleAdminUsers(adminSvc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		skip, _ := strconv.Atoi(q.Get("skip"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		users, err := adminSvc.ListUsers(r.Context(), skip, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
			return
		}
		if users == nil {
			users = []*service.UserStats{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}
