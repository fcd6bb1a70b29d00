package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aiox-platform/alchemist/internal/api"
	"github.com/aiox-platform/alchemist/internal/completion"
	"github.com/aiox-platform/alchemist/internal/session"
)

const maxBodyBytes = 16 << 10

// TurnRequest is the body of a turn request.
type TurnRequest struct {
	Input string `json:"input" validate:"required,max=4000"`
}

// TurnHandler runs turns.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, input string) (*TurnResult, error)
}

// SessionLookup finds existing sessions.
type SessionLookup interface {
	Get(userID string) (*session.Session, bool)
}

type Handler struct {
	turns    TurnHandler
	sessions SessionLookup
	validate *validator.Validate
}

func NewHandler(turns TurnHandler, sessions SessionLookup) *Handler {
	return &Handler{
		turns:    turns,
		sessions: sessions,
		validate: validator.New(),
	}
}

func (h *Handler) CreateTurn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		api.HandleError(w, api.NewBadRequestError("user id is required"))
		return
	}

	var req TurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	res, err := h.turns.HandleTurn(r.Context(), userID, req.Input)
	if err != nil {
		api.HandleError(w, turnError(err))
		return
	}

	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "userID"))
	if !ok {
		api.HandleError(w, api.NewNotFoundError("session not found"))
		return
	}
	api.JSON(w, http.StatusOK, sess.Snapshot())
}

func turnError(err error) *api.AppError {
	var valErr *ValidationError
	var gwErr *completion.GatewayError
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, session.ErrInvalidUserID):
		return api.NewValidationError(err.Error())
	case errors.Is(err, ErrTurnTimeout):
		return api.ErrGatewayTimeout
	case errors.Is(err, ErrTurnCanceled):
		return api.ErrServiceUnavailable
	case errors.As(err, &valErr):
		slog.Error("catalog returned malformed product", "error", err)
		return api.NewUpstreamError("catalog returned a malformed product")
	case errors.As(err, &gwErr):
		slog.Error("completion service failed", "error", err)
		return api.ErrUpstream
	}
	slog.Error("handling turn", "error", err)
	return api.ErrInternalServer
}
