// Package api provides HTTP handlers for Philview endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/philview/philview/internal/assistant"
	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

// emptyChatReply is returned by /chat for a blank message.
const emptyChatReply = "Please provide a message."

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthData := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"active_sessions": s.sessions.Len(),
		"model_enabled":   s.classifier.ModelEnabled(),
	}
	if props, err := s.st.ListProperties(ctx); err != nil {
		slog.Warn("Server.healthHandler: failed to read properties", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to read directory"
	} else {
		healthData["properties"] = len(props)
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}

// chatHandler is the stateless classifier endpoint (POST /chat). It never returns a plan;
// confirmation flows need a session.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req models.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ChatResult{Reply: emptyChatReply})
		return
	}
	text, err := models.NormalizeChatText(req.Message)
	if errors.Is(err, models.ErrEmptyMessage) {
		writeJSONResponse(w, http.StatusBadRequest, models.ChatResult{Reply: emptyChatReply})
		return
	}
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.ChatResult{Reply: "That message is too long."})
		return
	}

	cctx := s.chatContext(r.Context(), req.User)
	var result models.ChatResult
	switch out := s.classifier.Route(r.Context(), text, cctx).(type) {
	case assistant.Direct:
		action, err := assistant.NewDispatcher(nil).Dispatch(r.Context(), out.Action)
		if err != nil {
			slog.Error("Server.chatHandler: dispatch failed", "error", err)
			action = out.Action
		}
		result = models.ChatResult{Reply: out.Reply, Action: models.Wrap(action)}
	case assistant.Reply:
		result = models.ChatResult{Reply: out.Text}
	case assistant.NeedsConfirmation:
		result = models.ChatResult{Reply: out.Plan.Describe()}
	}
	slog.Debug("Server.chatHandler: routed message", "role", cctx.Role, "hasAction", result.Action != nil)
	writeJSONResponse(w, http.StatusOK, result)
}

// chatContext merges the authenticated caller with the user block of a /chat request.
func (s *Server) chatContext(ctx context.Context, cu *models.ChatUser) assistant.ClassifyContext {
	caller := userFromContext(ctx)
	cctx := assistant.ClassifyContext{SignedIn: caller.SignedIn()}
	if caller != nil {
		cctx.Role = caller.Role
	}
	if cu != nil {
		if cu.Role != "" {
			if models.IsValidRole(cu.Role) {
				cctx.Role = cu.Role
			} else {
				slog.Debug("Server.chatContext: ignoring unknown role", "role", cu.Role)
			}
		}
		if cu.ID != "" {
			cctx.SignedIn = true
		}
	}
	return cctx
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess := s.sessions.Create(userFromContext(r.Context()))
	writeJSONResponse(w, http.StatusCreated, models.Success(sess.View()))
}

// sessionHandler serves /sessions/{id} and /sessions/{id}/messages.
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/"), "/")
	if parts[0] == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "messages") {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}

	sess, err := s.sessions.Get(parts[0])
	if err == nil && !ownsSession(userFromContext(r.Context()), sess) {
		err = assistant.ErrSessionNotFound
	}
	if err != nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.postMessage(w, r, sess)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, models.Success(sess.View()))
	case http.MethodDelete:
		if err := s.sessions.End(sess.ID()); err != nil {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session ended", nil))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// ownsSession lets anyone holding the id use a guest session, and only its user use a signed-in one.
func ownsSession(caller *models.User, sess *assistant.Session) bool {
	owner := sess.User()
	if !owner.SignedIn() {
		return true
	}
	return caller.SignedIn() && caller.ID == owner.ID
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request, sess *assistant.Session) {
	var req models.SessionMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	turn, err := sess.HandleMessage(r.Context(), req.Text)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	view := models.TurnView{
		SessionID:   sess.ID(),
		Messages:    turn.Messages,
		PendingPlan: sess.View().PendingPlan,
	}
	for _, a := range turn.Actions {
		view.Actions = append(view.Actions, models.Wrap(a))
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

// requireUser writes 401 and returns nil when the caller is not signed in.
func requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	u := userFromContext(r.Context())
	if !u.SignedIn() {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Sign in required"))
		return nil
	}
	return u
}

func (s *Server) applyAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read request body"))
		return
	}
	payload, err := models.DecodeAppointmentPayload(body)
	if err != nil {
		slog.Warn("Server.applyAppointmentHandler: invalid payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	res, err := s.applier.Apply(r.Context(), user, payload)
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, models.Success(res))
	case isValidationError(err):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error("Server.applyAppointmentHandler: apply failed", "userID", user.ID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to apply appointment request"))
	}
}

func (s *Server) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}
	apts, err := s.st.ListAppointments(r.Context(), user.ID)
	if err != nil {
		slog.Error("Server.listAppointmentsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list appointments"))
		return
	}
	if apts == nil {
		apts = []models.Appointment{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(apts))
}

func (s *Server) listPropertiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	props, err := s.st.ListProperties(r.Context())
	if err != nil {
		slog.Error("Server.listPropertiesHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list properties"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(props))
}

// inquiriesHandler serves GET and POST /inquiries.
func (s *Server) inquiriesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listInquiries(w, r)
	case http.MethodPost:
		s.createInquiry(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// listInquiries shows staff every inquiry (optionally filtered by ?email=) and clients their own.
func (s *Server) listInquiries(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	email := user.Email
	if user.Role.IsStaff() {
		email = r.URL.Query().Get("email")
	} else if email == "" {
		writeJSONResponse(w, http.StatusOK, models.Success([]models.Inquiry{}))
		return
	}
	inqs, err := s.st.ListInquiries(r.Context(), email)
	if err != nil {
		slog.Error("Server.listInquiries: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list inquiries"))
		return
	}
	if inqs == nil {
		inqs = []models.Inquiry{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(inqs))
}

func (s *Server) createInquiry(w http.ResponseWriter, r *http.Request) {
	var req models.InquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.PropertyID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrMissingPropertyID.Error()))
		return
	}
	prop, err := s.st.GetProperty(r.Context(), req.PropertyID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown property"))
		return
	}
	if err != nil {
		slog.Error("Server.createInquiry: property lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create inquiry"))
		return
	}

	inq := models.Inquiry{
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		PropertyID:   prop.ID,
		PropertyName: prop.Name,
		Message:      strings.TrimSpace(req.Message),
	}
	if u := userFromContext(r.Context()); u.SignedIn() {
		inq.UserID = u.ID
		if u.Name != "" {
			inq.ClientName = u.Name
		}
		if u.Email != "" {
			inq.ClientEmail = u.Email
		}
	}

	created, err := s.st.CreateInquiry(r.Context(), inq)
	if isValidationError(err) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.createInquiry: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create inquiry"))
		return
	}
	slog.Info("Server.createInquiry: inquiry created", "inquiryID", created.ID, "propertyID", created.PropertyID)
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

// inquiryResponseHandler serves POST /inquiries/{id}/response for staff.
func (s *Server) inquiryResponseHandler(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/inquiries/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "response" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}
	if !user.Role.IsStaff() {
		writeJSONResponse(w, http.StatusForbidden, models.Error("Only staff can respond to inquiries"))
		return
	}

	var req models.InquiryResponseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if strings.TrimSpace(req.Response) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyMessage.Error()))
		return
	}

	err := s.st.RespondToInquiry(r.Context(), parts[0], strings.TrimSpace(req.Response), req.Status)
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Response recorded", nil))
	case errors.Is(err, store.ErrNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Inquiry not found"))
	case isValidationError(err):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error("Server.inquiryResponseHandler: update failed", "inquiryID", parts[0], "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record response"))
	}
}
