package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/servo-switch/internal/audit"
)

// auditChanSize is the buffer size for the async audit log channel.
// Events beyond this are dropped with a warning.
const auditChanSize = 256

// historyResponse is the body of GET /api/switch/history.
type historyResponse struct {
	Success bool `json:"success"`
	*audit.ListResult
}

// auditLog enqueues a switch event for asynchronous write. If the channel
// is full the event is dropped and a warning is logged.
func (s *Server) auditLog(event *audit.SwitchEvent) {
	if s.auditCh == nil {
		return
	}

	select {
	case s.auditCh <- event:
	default:
		s.logger.Warn("audit channel full, dropping switch event",
			"action", event.Action,
			"value", event.Value,
		)
	}
}

// writeAuditEvent stores one queued event.
func (s *Server) writeAuditEvent(event *audit.SwitchEvent) {
	// Detached from the request and server contexts so shutdown still
	// flushes.
	if err := s.auditRepo.Create(context.Background(), event); err != nil {
		s.logger.Error("switch event write failed",
			"action", event.Action,
			"value", event.Value,
			"error", err,
		)
	}
}

// handleSwitchHistory returns paginated switch events, newest first.
//
// Query parameters:
//   - action: filter by action (set, reset)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleSwitchHistory(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeFailure(w, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Action: q.Get("action")}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing switch events failed", "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Success: true, ListResult: result})
}
