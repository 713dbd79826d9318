package auth

import (
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dinoevent/middleware"
	"dinoevent/models"
	"dinoevent/utils"
)

type sessionResponse struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

type Handler struct {
	gate   *Gate
	logger *slog.Logger
}

func NewHandler(gate *Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, sess models.Session) {
	token, err := h.gate.Issue(sess)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionResponse{Token: token, Session: sess})
}

// Start handles POST /api/session. It keeps the caller's viewer id if the
// request already carries a valid token, and never changes the role.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	current := middleware.SessionFrom(r.Context())
	sess := h.gate.Guest(current)
	sess.Role = current.Role
	if sess.Role == "" {
		sess.Role = models.RoleGuest
	}
	h.respond(w, r, sess)
}

// Elevate handles POST /api/session/elevate.
func (h *Handler) Elevate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Passphrase string `json:"passphrase"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	sess, err := h.gate.Elevate(middleware.SessionFrom(r.Context()), body.Passphrase)
	if err != nil {
		h.logger.Warn("admin elevation refused", "remote", r.RemoteAddr)
		utils.RespondWithErr(w, r, err)
		return
	}
	h.logger.Info("admin elevation", "viewer", sess.ViewerID)
	h.respond(w, r, sess)
}

// Logout handles POST /api/session/logout by downgrading to guest.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.respond(w, r, h.gate.Guest(middleware.SessionFrom(r.Context())))
}
