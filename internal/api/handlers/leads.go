package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/api/middleware"
	"github.com/kamalsharma29/crm-dashboard/internal/leads"
)

type LeadHandler struct {
	leads  *leads.Service
	logger *slog.Logger
}

func NewLeadHandler(svc *leads.Service, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{leads: svc, logger: logger}
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := leads.ListFilter{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Details: map[string]string{"assignedTo": "Invalid user id"},
			})
			return
		}
		filter.AssignedTo = &id
	}

	list, err := h.leads.List(r.Context(), middleware.GetPrincipal(r.Context()), filter)
	if err != nil {
		h.writeError(w, r, err, "Lead not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.LeadsResponse{Leads: dto.NewLeadDTOs(list)})
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignee, ok := parseAssignee(w, req.AssignedTo)
	if !ok {
		return
	}

	lead, err := h.leads.Create(r.Context(), middleware.GetPrincipal(r.Context()), leads.CreateInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Company:      req.Company,
		Status:       req.Status,
		Source:       req.Source,
		Value:        req.Value,
		Notes:        req.Notes,
		AssignedTo:   assignee,
		NextFollowUp: req.NextFollowUp,
	})
	if err != nil {
		h.writeError(w, r, err, "Lead not found")
		return
	}

	middleware.RecordLeadCreated()
	writeJSON(w, http.StatusCreated, dto.LeadMutationResponse{
		Message: "Lead created successfully",
		Lead:    dto.NewLeadDTO(lead),
	})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err, "Lead not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.LeadResponse{Lead: dto.NewLeadDTO(lead)})
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Lead not found or unauthorized")
	if !ok {
		return
	}

	var req dto.UpdateLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignee, ok := parseAssignee(w, req.AssignedTo)
	if !ok {
		return
	}

	lead, err := h.leads.Update(r.Context(), middleware.GetPrincipal(r.Context()), id, leads.UpdateInput{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Company:           req.Company,
		Status:            req.Status,
		Source:            req.Source,
		Notes:             req.Notes,
		Value:             req.Value.Ptr(),
		ClearValue:        req.Value.Null,
		AssignedTo:        assignee,
		NextFollowUp:      req.NextFollowUp.Ptr(),
		ClearNextFollowUp: req.NextFollowUp.Null,
	})
	if err != nil {
		h.writeError(w, r, err, "Lead not found or unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, dto.LeadMutationResponse{
		Message: "Lead updated successfully",
		Lead:    dto.NewLeadDTO(lead),
	})
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Lead not found")
	if !ok {
		return
	}

	err := h.leads.Delete(r.Context(), middleware.GetPrincipal(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err, "Lead not found")
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Lead deleted successfully"})
}

func (h *LeadHandler) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *leads.ValidationError
	switch {
	case writeAuthzError(w, err):
	case errors.Is(err, leads.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, leads.ErrAssigneeNotFound):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"assignedTo": "Assigned user not found"},
		})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Details: verr.Fields})
	default:
		internalError(w, r, h.logger, "lead request failed", err)
	}
}

func parseAssignee(w http.ResponseWriter, raw *string) (*uuid.UUID, bool) {
	if raw == nil || *raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"assignedTo": "Invalid user id"},
		})
		return nil, false
	}
	return &id, true
}
