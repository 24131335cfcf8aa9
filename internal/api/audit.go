package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
)

// auditChanSize is the buffer size for the async audit log channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// Entity names used in audit entries, events and WebSocket channels.
const (
	entityParticipant = "participant"
	entityProject     = "project"
	entityAgency      = "agency"
	entityGrant       = "grant"
	entityProduction  = "production"
)

// Actions.
const (
	actionCreate        = "create"
	actionUpdate        = "update"
	actionDelete        = "delete"
	actionAddMember     = "add_member"
	actionAllocateGrant = "allocate_grant"
	actionLogin         = "login"
	actionRegister      = "register"
	actionPassword      = "password_change"
)

// mutation describes a committed change for the side-effect fan-out.
type mutation struct {
	entity  string
	action  string
	id      string
	data    any
	details map[string]any
}

// recordMutation runs the post-commit side effects of a write: audit entry,
// WebSocket broadcast, MQTT event, metrics. It never fails the request.
func (s *Server) recordMutation(r *http.Request, m mutation) {
	p := principalFromContext(r.Context())
	s.auditLog(m.action, m.entity, m.id, p, m.details)

	s.hub.Broadcast(m.entity, m.entity+"."+m.action, map[string]any{
		"id":   m.id,
		"data": m.data,
	})

	s.metrics.events.WithLabelValues(m.entity, m.action).Inc()
	if s.telemetry != nil {
		s.telemetry.WriteDomainEvent(m.entity, m.action)
	}

	if s.events != nil {
		if err := s.events.PublishEvent(m.entity, m.action, m.data); err != nil {
			s.logger.Warn("domain event not published",
				"entity", m.entity,
				"action", m.action,
				"id", m.id,
				"error", err,
			)
		}
	}
}

// auditLog enqueues an audit log entry for asynchronous write (best-effort).
// If the channel is full the entry is dropped and a warning is logged.
func (s *Server) auditLog(action, entityType, entityID string, actor auth.Principal, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actor.SubjectID,
		ActorRole:  string(actor.Role),
		Details:    details,
	}

	select {
	case s.auditCh <- entry:
	default:
		s.metrics.auditDropped.Inc()
		s.logger.Warn("audit log channel full, dropping entry",
			"action", action,
			"entity_type", entityType,
		)
	}
}

// drainAuditLog writes queued entries one at a time until ctx is cancelled,
// then flushes whatever is still buffered.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAuditEntry(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.writeAuditEntry(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeAuditEntry(entry *audit.Entry) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters: action, entity_type, entity_id, actor_id, limit, offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(principalFromContext(r.Context()), auth.OpAuditRead, auth.AccessContext{}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.auditRepo == nil {
		writeNotFound(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		ActorID:    q.Get("actor_id"),
	}
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
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
