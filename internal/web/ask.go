package web

import (
	"log/slog"
	"net/http"
	"strings"
)

// askResponse carries the agent's answer plus enough accounting to make
// slow or expensive questions visible to the caller.
type askResponse struct {
	Answer      string `json:"answer"`
	ToolCalls   int    `json:"tool_calls"`
	TotalTokens int    `json:"total_tokens"`
}

// ask forwards a free-text question about the records to the agent.
func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	if s.asker == nil {
		writeError(w, http.StatusServiceUnavailable, "records agent is not configured")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		slog.ErrorContext(r.Context(), "records question failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:      answer.Content,
		ToolCalls:   answer.ToolCalls,
		TotalTokens: answer.Usage.TotalTokens,
	})
}
