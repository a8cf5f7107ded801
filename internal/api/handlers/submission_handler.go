package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/cascade"
	"filedrop/internal/engine/inboxes"
	"filedrop/internal/engine/quota"
	"filedrop/internal/engine/submissions"
	"filedrop/internal/pkg/errors"
)

// maxFormMemory is how much of a multipart body is buffered in memory; the
// rest spills to temp files.
const maxFormMemory = 32 << 20

type SubmissionHandler struct {
	inboxes     *inboxes.Service
	submissions *submissions.Service
	cascade     *cascade.Service
	maxBody     int64
}

func NewSubmissionHandler(inboxSvc *inboxes.Service, submissionSvc *submissions.Service, cascadeSvc *cascade.Service, maxBody int64) *SubmissionHandler {
	if maxBody < quota.MaxFileSize {
		maxBody = 2 * quota.MaxFileSize
	}
	return &SubmissionHandler{inboxes: inboxSvc, submissions: submissionSvc, cascade: cascadeSvc, maxBody: maxBody}
}

// GetPublicInbox serves the share link page data.
func (h *SubmissionHandler) GetPublicInbox(w http.ResponseWriter, r *http.Request) {
	public, err := h.inboxes.GetPublic(r.Context(), param(r, "slug"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, public)
}

// Submit accepts a multipart form with a "name" field and one or more "files" parts.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeFileTooLarge, "Upload is too large", nil)
			return
		}
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid upload form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := submissions.SubmitInput{
		Slug:          param(r, "slug"),
		SubmitterName: r.FormValue("name"),
	}
	if identity := middleware.IdentityFrom(r.Context()); identity != nil {
		id := identity.UserID
		in.SubmitterID = &id
	}
	for _, fh := range r.MultipartForm.File["files"] {
		in.Files = append(in.Files, fileFromHeader(fh))
	}

	result, err := h.submissions.Submit(r.Context(), in)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	switch {
	case result.Failed == nil:
		writeJSON(w, http.StatusCreated, result)
	case result.Partial():
		writeJSON(w, http.StatusMultiStatus, result)
	default:
		errors.WriteDomainError(w, result.Failed.Err)
	}
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	if err := h.cascade.DeleteSubmission(r.Context(), identity.UserID, param(r, "submission_id")); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func fileFromHeader(fh *multipart.FileHeader) submissions.File {
	return submissions.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
