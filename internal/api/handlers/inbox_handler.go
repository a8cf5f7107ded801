package handlers

import (
	"net/http"
	"strconv"

	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/inboxes"
	"filedrop/internal/engine/submissions"
	"filedrop/internal/pkg/errors"
)

type InboxHandler struct {
	inboxes     *inboxes.Service
	submissions *submissions.Service
}

func NewInboxHandler(inboxSvc *inboxes.Service, submissionSvc *submissions.Service) *InboxHandler {
	return &InboxHandler{inboxes: inboxSvc, submissions: submissionSvc}
}

func (h *InboxHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req inboxes.CreateInput
	if !decodeJSON(w, r, &req) {
		return
	}

	inbox, err := h.inboxes.Create(r.Context(), identity.UserID, req)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Inbox    interface{} `json:"inbox"`
		ShareURL string      `json:"share_url"`
	}{inbox, h.inboxes.ShareURL(inbox.Slug)})
}

func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	list, err := h.inboxes.List(r.Context(), identity.UserID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"inboxes": list})
}

func (h *InboxHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	inbox, err := h.inboxes.Get(r.Context(), identity.UserID, param(r, "inbox_id"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Inbox    interface{} `json:"inbox"`
		ShareURL string      `json:"share_url"`
	}{inbox, h.inboxes.ShareURL(inbox.Slug)})
}

func (h *InboxHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req inboxes.EditInput
	if !decodeJSON(w, r, &req) {
		return
	}

	inbox, err := h.inboxes.Edit(r.Context(), identity.UserID, param(r, "inbox_id"), req)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inbox)
}

func (h *InboxHandler) TogglePause(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	inbox, err := h.inboxes.TogglePause(r.Context(), identity.UserID, param(r, "inbox_id"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inbox)
}

func (h *InboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	outcome, err := h.inboxes.Delete(r.Context(), identity.UserID, param(r, "inbox_id"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *InboxHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	png, err := h.inboxes.QRCode(r.Context(), identity.UserID, param(r, "inbox_id"), size)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *InboxHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	subs, err := h.submissions.ListByInbox(r.Context(), identity.UserID, param(r, "inbox_id"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}
