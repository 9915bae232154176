package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/core/ports"
	"github.com/clauselens/clauselens/internal/core/usecase"
	"github.com/clauselens/clauselens/internal/observability/metrics"
)

// Notes are small; anything larger is a client bug.
const noteMaxBytes = 64 << 10

type Router struct {
	auth     *usecase.AuthUseCase
	ingestor ports.ContractIngestor
	reader   ports.ContractReader
	notes    ports.ClauseNoteWriter
	tokens   *TokenIssuer

	service        string
	maxUploadBytes int64
	metrics        *metrics.HTTPServerMetrics
}

func NewRouter(
	auth *usecase.AuthUseCase,
	ingestor ports.ContractIngestor,
	reader ports.ContractReader,
	notes ports.ClauseNoteWriter,
	tokens *TokenIssuer,
	service string,
	maxUploadBytes int64,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		auth:           auth,
		ingestor:       ingestor,
		reader:         reader,
		notes:          notes,
		tokens:         tokens,
		service:        service,
		maxUploadBytes: maxUploadBytes,
		metrics:        m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("/api/auth/signup", rt.signup)
	mux.HandleFunc("/api/auth/login", rt.login)
	mux.HandleFunc("/api/auth/logout", rt.logout)
	mux.HandleFunc("/api/auth/me", rt.requireAuth(rt.me))

	mux.HandleFunc("/api/contracts", rt.requireAuth(rt.listContracts))
	mux.HandleFunc("/api/contracts/", rt.requireAuth(rt.contractSubtree))

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func (rt *Router) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	user, err := rt.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.writeSession(w, http.StatusCreated, user)
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	user, err := rt.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.writeSession(w, http.StatusOK, user)
}

func (rt *Router) writeSession(w http.ResponseWriter, status int, user *domain.User) {
	token, expiresAt, err := rt.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "issue token"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (rt *Router) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	user, err := rt.auth.GetByID(r.Context(), ownerIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) listContracts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	records, err := rt.reader.List(r.Context(), ownerIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// contractSubtree dispatches everything below /api/contracts/:
// POST upload, GET {id}, PUT {id}/clauses/{clauseId}/note.
func (rt *Router) contractSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/contracts/"), "/")
	segments := strings.Split(rest, "/")

	switch {
	case len(segments) == 1 && segments[0] == "upload":
		rt.uploadContract(w, r)
	case len(segments) == 1 && segments[0] != "":
		rt.getContract(w, r, segments[0])
	case len(segments) == 4 && segments[1] == "clauses" && segments[3] == "note":
		rt.updateClauseNote(w, r, segments[0], segments[2])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) uploadContract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// Slack covers multipart framing; the byte cap itself is enforced in the
	// ingest use case against the decoded file.
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes+(1<<20))

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds the upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds the upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload"})
		return
	}

	contentType := uploadContentType(fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	record, err := rt.ingestor.Ingest(
		r.Context(),
		ownerIDFromContext(r.Context()),
		fileHeader.Filename,
		contentType,
		data,
	)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordUploadRejected(rt.service, rejectionReason(err))
		}
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUploadAccepted(rt.service, contentType, len(data))
	}
	writeJSON(w, http.StatusCreated, record)
}

func rejectionReason(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return "unsupported_format"
	case domain.IsKind(err, domain.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

func (rt *Router) getContract(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	record, err := rt.reader.GetByID(r.Context(), id, ownerIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) updateClauseNote(w http.ResponseWriter, r *http.Request, contractID, clauseID string) {
	if r.Method != http.MethodPut {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	note, err := io.ReadAll(io.LimitReader(r.Body, noteMaxBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read note"})
		return
	}
	if len(note) > noteMaxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "note exceeds the size limit"})
		return
	}

	if err := rt.notes.UpdateNote(r.Context(), contractID, ownerIDFromContext(r.Context()), clauseID, note); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadContentType trusts the multipart part header when present and falls
// back to the filename extension; browsers sometimes omit the part type.
func uploadContentType(filename, headerType string) string {
	if headerType != "" {
		if parsed, _, err := mime.ParseMediaType(headerType); err == nil {
			return parsed
		}
		return headerType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.ContentTypePDF
	case ".docx":
		return domain.ContentTypeDOCX
	default:
		return headerType
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
