package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kamalsharma29/crm-dashboard/internal/ai"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
)

type AIHandler struct {
	emails *ai.Service
	logger *slog.Logger
}

func NewAIHandler(svc *ai.Service, logger *slog.Logger) *AIHandler {
	return &AIHandler{emails: svc, logger: logger}
}

func (h *AIHandler) GenerateEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email, err := h.emails.GenerateEmail(r.Context(), ai.EmailRequest{
		LeadName:     req.LeadName,
		LeadCompany:  req.LeadCompany,
		LeadEmail:    req.LeadEmail,
		EmailType:    req.EmailType,
		Context:      req.Context,
		Tone:         req.Tone,
		LeadStatus:   req.LeadStatus,
		CustomPrompt: req.CustomPrompt,
	})
	if err != nil {
		var verr *ai.ValidationError
		switch {
		case errors.As(err, &verr):
			middleware.RecordAIEmail("invalid")
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, ai.ErrInvalidAPIKey):
			middleware.RecordAIEmail("invalid_key")
			writeError(w, http.StatusBadRequest, "Invalid or missing Gemini API key. Please check your configuration.")
		default:
			middleware.RecordAIEmail("error")
			h.logger.Error("email generation failed", "error", err, "email_type", req.EmailType)
			writeError(w, http.StatusInternalServerError, "Failed to generate email")
		}
		return
	}

	middleware.RecordAIEmail("success")
	writeJSON(w, http.StatusOK, dto.GenerateEmailResponse{
		Email:   email.Raw,
		Subject: email.Subject,
		Body:    email.Body,
	})
}
