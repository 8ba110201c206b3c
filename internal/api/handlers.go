package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pressline/pressline/internal/database"
	"github.com/pressline/pressline/internal/models"
	"github.com/pressline/pressline/internal/orchestrator"
)

// Handler serves the agent, queue and history endpoints.
type Handler struct {
	manager   *orchestrator.Manager
	agentRepo database.AgentRepository
	logger    *slog.Logger
	startTime time.Time
}

// NewHandler creates the main API handler.
func NewHandler(manager *orchestrator.Manager, agentRepo database.AgentRepository, logger *slog.Logger) *Handler {
	return &Handler{
		manager:   manager,
		agentRepo: agentRepo,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetStatusHandler handles GET /api/status.
func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	statuses, err := h.manager.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to build status", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"agents":         statuses,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// AgentsHandler handles GET and POST /api/agents.
func (h *Handler) AgentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agents, err := h.agentRepo.List(r.Context())
		if err != nil {
			h.logger.Error("failed to list agents", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"agents": agents,
			"count":  len(agents),
		})
	case http.MethodPost:
		var agent models.AgentConfig
		if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if agent.ID == "" {
			http.Error(w, "Agent id is required", http.StatusBadRequest)
			return
		}
		if err := h.agentRepo.Upsert(r.Context(), agent); err != nil {
			h.logger.Error("failed to upsert agent", "agent", agent.ID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("agent configuration saved", "agent", agent.ID)
		writeJSON(w, h.logger, http.StatusOK, agent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// AgentActionHandler dispatches /api/agents/{id}/... requests.
func (h *Handler) AgentActionHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// Expected: api/agents/{id}[/action[/itemID[/subaction]]]
	if len(parts) < 3 {
		http.Error(w, "Agent ID required", http.StatusBadRequest)
		return
	}
	agentID := parts[2]

	if len(parts) == 3 {
		h.getAgent(w, r, agentID)
		return
	}

	switch parts[3] {
	case "start":
		h.startAgent(w, r, agentID)
	case "stop":
		h.stopAgent(w, r, agentID)
	case "queue":
		h.queueAction(w, r, agentID, parts[4:])
	case "history":
		h.getHistory(w, r, agentID)
	case "costs":
		h.getCosts(w, r, agentID)
	case "publish":
		h.publish(w, r, agentID)
	case "articles":
		h.submitArticle(w, r, agentID)
	default:
		http.Error(w, "Unknown action", http.StatusNotFound)
	}
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agent, err := h.agentRepo.Get(r.Context(), agentID)
	if err != nil {
		h.logger.Error("failed to load agent", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if agent == nil {
		http.Error(w, "Agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, agent)
}

func (h *Handler) startAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.manager.Start(r.Context(), agentID); err != nil {
		h.logger.Error("failed to start agent", "agent", agentID, "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "started", "agent": agentID})
}

func (h *Handler) stopAgent(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.manager.Stop(agentID)
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "stopped", "agent": agentID})
}

// queueAction dispatches /api/agents/{id}/queue[...] requests:
// GET the queue, GET titles, POST clear, POST {itemID}/reject.
func (h *Handler) queueAction(w http.ResponseWriter, r *http.Request, agentID string, rest []string) {
	queue, err := h.manager.Queue(r.Context(), agentID)
	if err != nil {
		h.logger.Error("failed to open queue", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		items, err := queue.ListAll(r.Context())
		if err != nil {
			h.logger.Error("failed to list queue", "agent", agentID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"items": items,
			"count": len(items),
		})
	case len(rest) == 1 && rest[0] == "titles":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		titles, err := queue.RecentTitles(r.Context(), 15)
		if err != nil {
			h.logger.Error("failed to list recent titles", "agent", agentID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"titles": titles,
			"count":  len(titles),
		})
	case len(rest) == 1 && rest[0] == "clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := queue.Clear(r.Context()); err != nil {
			h.logger.Error("failed to clear queue", "agent", agentID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.logger.Info("publish queue cleared manually", "agent", agentID)
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "cleared"})
	case len(rest) == 2 && rest[1] == "reject":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.manager.RejectItem(r.Context(), agentID, rest[0]); err != nil {
			h.logger.Error("failed to reject item", "agent", agentID, "item", rest[0], "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "rejected", "item": rest[0]})
	default:
		http.Error(w, "Unknown queue action", http.StatusNotFound)
	}
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	history, err := h.manager.History(r.Context(), agentID)
	if err != nil {
		h.logger.Error("failed to open history", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	records, err := history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list history", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (h *Handler) getCosts(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history, err := h.manager.History(r.Context(), agentID)
	if err != nil {
		h.logger.Error("failed to open history", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	total, err := history.TotalLifetimeCost(r.Context())
	if err != nil {
		h.logger.Error("failed to read lifetime cost", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"agent":             agentID,
		"lifetime_cost_usd": total,
	})
}

// PublishRequest selects which queued item to post. An empty item id means
// the oldest.
type PublishRequest struct {
	ItemID string `json:"item_id"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PublishRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := h.manager.PostNow(r.Context(), agentID, req.ItemID); err != nil {
		h.logger.Error("manual publish failed", "agent", agentID, "item", req.ItemID, "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "published"})
}

// SubmitArticleRequest is an operator-submitted article for the internal
// provider.
type SubmitArticleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url"`
	SourceName  string `json:"source_name"`
	Language    string `json:"language"`
}

func (h *Handler) submitArticle(w http.ResponseWriter, r *http.Request, agentID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.ImageURL == "" {
		http.Error(w, "Title and image_url are required", http.StatusBadRequest)
		return
	}

	article := models.Candidate{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		SourceName:  req.SourceName,
		Language:    req.Language,
	}
	if err := h.manager.SubmitLocalArticle(r.Context(), agentID, article); err != nil {
		h.logger.Error("failed to store article", "agent", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("local article submitted", "agent", agentID, "title", req.Title)
	writeJSON(w, h.logger, http.StatusCreated, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
