package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/sigpesq-core/internal/participant"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// loginRequest is the JSON body for POST /auth/login. The password may be
// sent as "password" or "senha". Form-encoded username/password (the OAuth2
// password flow shape) is accepted too.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Senha    string `json:"senha"`
}

func (req loginRequest) secret() string {
	if req.Password != "" {
		return req.Password
	}
	return req.Senha
}

// registerRequest is the JSON body for POST /auth/register. Tipo is accepted
// for form compatibility and ignored: self-registered accounts are DISCENTE.
type registerRequest struct {
	CPF      string `json:"cpf,omitempty"`
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
	Tipo     string `json:"tipo,omitempty"`
}

type changePasswordRequest struct {
	Current string `json:"senha_atual"`
	New     string `json:"nova_senha"`
}

// tokenResponse is returned by login and register.
type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	UserName    string    `json:"user_name"`
	UserType    auth.Role `json:"user_type"`
	UserCPF     string    `json:"user_cpf"`
}

func newTokenResponse(sess *auth.Session) tokenResponse {
	return tokenResponse{
		AccessToken: sess.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   max(int(time.Until(sess.ExpiresAt).Seconds()), 0),
		UserName:    sess.Principal.DisplayName,
		UserType:    sess.Principal.Role,
		UserCPF:     sess.Principal.SubjectID,
	}
}

// recordAuthAttempt counts an auth outcome in Prometheus and InfluxDB.
func (s *Server) recordAuthAttempt(kind string, err error) {
	outcome := influxdb.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrDuplicateIdentity),
		errors.Is(err, auth.ErrInvalidSecret),
		errors.Is(err, auth.ErrInvalidIdentity),
		errors.Is(err, auth.ErrUnauthenticated):
		outcome = influxdb.OutcomeRejected
	default:
		outcome = influxdb.OutcomeError
	}

	s.metrics.authAttempts.WithLabelValues(kind, outcome).Inc()
	if s.telemetry != nil {
		s.telemetry.WriteAuthAttempt(kind, outcome)
	}
}

// readLogin accepts either JSON or form-encoded credentials.
func readLogin(r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to JSON
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return loginRequest{}, errors.New("invalid form body")
		}
		return loginRequest{Email: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}, nil
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return loginRequest{}, err
	}
	return req, nil
}

// handleLogin exchanges email and password for an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Email == "" || req.secret() == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.secret())
	s.recordAuthAttempt(influxdb.AuthLogin, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.auditLog(actionLogin, entityParticipant, sess.Principal.SubjectID, sess.Principal, nil)
	writeJSON(w, http.StatusOK, newTokenResponse(sess))
}

// handleRegister creates a DISCENTE account and logs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sess, err := s.auth.Register(r.Context(), auth.RegisterInput{
		CPF:   req.CPF,
		Name:  req.Name,
		Email: req.Email,
	}, req.Password)
	s.recordAuthAttempt(influxdb.AuthRegister, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.auditLog(actionRegister, entityParticipant, sess.Principal.SubjectID, sess.Principal, nil)
	s.hub.Broadcast(entityParticipant, entityParticipant+"."+actionCreate, map[string]any{
		"id":   sess.Principal.SubjectID,
		"data": sess.Principal,
	})
	writeJSON(w, http.StatusCreated, newTokenResponse(sess))
}

// handleMe returns the caller's stored participant record.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	me, err := s.participants.GetByCPF(r.Context(), p.SubjectID)
	if err != nil {
		if errors.Is(err, participant.ErrNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, me)
}

// handleChangePassword replaces the caller's password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	p := principalFromContext(r.Context())
	err := s.auth.ChangePassword(r.Context(), p, req.Current, req.New)
	s.recordAuthAttempt(influxdb.AuthPassword, err)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.auditLog(actionPassword, entityParticipant, p.SubjectID, p, nil)
	w.WriteHeader(http.StatusNoContent)
}

// ─── WebSocket tickets ─────────────────────────────────────────────

// ticketStore holds pending single-use WebSocket tickets.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

type ticketEntry struct {
	principal auth.Principal
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry), now: time.Now}
}

// issue stores a fresh ticket for p.
func (t *ticketStore) issue(p auth.Principal) string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	ticket := hex.EncodeToString(b)

	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{principal: p, expiresAt: t.now().Add(ticketTTL)}
	t.mu.Unlock()
	return ticket
}

// redeem consumes a ticket. It fails for unknown, reused or expired tickets.
func (t *ticketStore) redeem(ticket string) (auth.Principal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return auth.Principal{}, false
	}
	delete(t.tickets, ticket)

	if !t.now().Before(entry.expiresAt) {
		return auth.Principal{}, false
	}
	return entry.principal, true
}

// sweep drops expired tickets.
func (t *ticketStore) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ticket, entry := range t.tickets {
		if !now.Before(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

func (t *ticketStore) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}

// handleWSTicket issues a single-use ticket bound to the caller's identity.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := s.tickets.issue(principalFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// cleanTicketsLoop sweeps expired tickets until ctx is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.sweep()
		}
	}
}
