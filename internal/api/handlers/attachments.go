package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/attachments"
)

// multipartOverhead is the slack allowed on top of the file size limit for
// multipart boundaries and headers.
const multipartOverhead = 64 << 10

type AttachmentHandler struct {
	attachments *attachments.Service
	logger      *slog.Logger
}

func NewAttachmentHandler(svc *attachments.Service, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: svc, logger: logger}
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	leadID, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}

	list, err := h.attachments.List(r.Context(), middleware.GetPrincipal(r.Context()), leadID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AttachmentsResponse{Attachments: list})
}

func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	leadID, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}

	if max := h.attachments.Rules().MaxSize; max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"file": "File is required"},
		})
		return
	}
	defer file.Close()

	att, err := h.attachments.Upload(r.Context(), middleware.GetPrincipal(r.Context()), leadID, attachments.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AttachmentResponse{
		Message:    "File uploaded successfully",
		Attachment: att,
	})
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	leadID, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}
	id, ok := urlID(w, r, "attachmentId", "Attachment not found")
	if !ok {
		return
	}

	att, data, err := h.attachments.Download(r.Context(), middleware.GetPrincipal(r.Context()), leadID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	leadID, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}
	id, ok := urlID(w, r, "attachmentId", "Attachment not found")
	if !ok {
		return
	}

	if err := h.attachments.Delete(r.Context(), middleware.GetPrincipal(r.Context()), leadID, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Attachment deleted successfully"})
}

func (h *AttachmentHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case writeAuthzError(w, err):
	case errors.Is(err, attachments.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "Lead not found")
	case errors.Is(err, attachments.ErrNotFound):
		writeError(w, http.StatusNotFound, "Attachment not found")
	case errors.Is(err, attachments.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "Attachment storage is disabled")
	case errors.Is(err, validation.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, validation.ErrFileTypeBlocked):
		writeError(w, http.StatusUnsupportedMediaType, "File type not allowed")
	case errors.Is(err, validation.ErrEmptyFile):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"file": "File is empty"},
		})
	default:
		internalError(w, r, h.logger, "attachment request failed", err)
	}
}
