package events

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"dinoevent/middleware"
	"dinoevent/models"
	"dinoevent/share"
	"dinoevent/utils"
)

type Handler struct {
	svc       *Service
	publicURL string
}

// NewHandler serves svc. publicURL is the externally reachable base used
// in QR codes; it may be empty.
func NewHandler(svc *Service, publicURL string) *Handler {
	return &Handler{svc: svc, publicURL: strings.TrimRight(publicURL, "/")}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	listing, err := h.svc.ListEvents(r.Context(), middleware.SessionFrom(r.Context()))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, listing)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.svc.GetEvent(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var draft models.EventDraft
	if err := utils.DecodeJSON(w, r, &draft); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	view, err := h.svc.CreateEvent(r.Context(), middleware.SessionFrom(r.Context()), draft)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, view)
}

func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var patch models.EventPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	view, err := h.svc.UpdateEvent(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid"), patch)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.DeleteEvent(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid")); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) JoinEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req JoinRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	view, err := h.svc.JoinEvent(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid"), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, view)
}

func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	view, err := h.svc.CancelRegistration(r.Context(), middleware.SessionFrom(r.Context()),
		ps.ByName("eventid"), ps.ByName("pid"), body.Reason)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.svc.RemoveParticipant(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid"), ps.ByName("pid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) ToggleWish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.svc.ToggleWish(r.Context(), middleware.SessionFrom(r.Context()), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

// Share returns the roll call text plus map and calendar links.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, err := h.svc.Event(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, share.Build(e, h.svc.Location()))
}

func (h *Handler) DownloadICS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, err := h.svc.Event(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := share.WriteICS(&buf, e, h.svc.Location(), h.svc.Now()); err != nil {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=event-%s.ics", e.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// RosterPDF renders the printable sign-in sheet. Admin only, since it
// shows donation amounts.
func (h *Handler) RosterPDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := requireAdmin(middleware.SessionFrom(r.Context()), "print rosters"); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	e, err := h.svc.Event(r.Context(), ps.ByName("eventid"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	link := h.publicURL + "/events/" + e.ID
	if h.publicURL == "" {
		link = share.MapLink(e)
	}
	var buf bytes.Buffer
	if err := share.WriteRosterPDF(&buf, e, h.svc.Location(), link); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=roster-%s.pdf", e.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
