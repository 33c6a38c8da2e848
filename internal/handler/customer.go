package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dhruvshah/sunbeam/internal/middleware"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/store"
)

type CustomerHandler struct {
	customers *store.CustomerStore
	logger    *slog.Logger
}

func NewCustomerHandler(cs *store.CustomerStore, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{customers: cs, logger: logger}
}

type customerRequest struct {
	Name          string             `json:"name"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email"`
	Address       string             `json:"address"`
	Type          model.CustomerType `json:"type"`
	ProjectCost   int64              `json:"project_cost"`
	LoanAmount    int64              `json:"loan_amount"`
	SubsidyAmount int64              `json:"subsidy_amount"`
	Notes         string             `json:"notes"`
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type == "" {
		req.Type = model.CustomerTypeCash
	}
	if req.Type != model.CustomerTypeFinance && req.Type != model.CustomerTypeCash {
		writeError(w, http.StatusBadRequest, "type must be finance or cash")
		return
	}

	customer, err := h.customers.Create(workspaceID, req.Name, req.Phone, req.Email, req.Address, req.Type, req.ProjectCost)
	if err != nil {
		h.logger.Error("create customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	status := model.CustomerStatus(r.URL.Query().Get("status"))
	customers, err := h.customers.List(workspaceID, status)
	if err != nil {
		h.logger.Error("list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	customer, err := h.customers.GetByID(id, workspaceID)
	if err != nil {
		h.logger.Error("get customer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.customers.GetByID(id, workspaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing.Name = req.Name
	existing.Phone = req.Phone
	existing.Email = req.Email
	existing.Address = req.Address
	existing.ProjectCost = req.ProjectCost
	existing.LoanAmount = req.LoanAmount
	existing.SubsidyAmount = req.SubsidyAmount
	existing.Notes = req.Notes
	if req.Type != "" {
		existing.Type = req.Type
	}

	if err := h.customers.Update(existing); err != nil {
		h.logger.Error("update customer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update customer")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// AdvanceStep moves an active customer to the next pipeline step.
func (h *CustomerHandler) AdvanceStep(w http.ResponseWriter, r *http.Request) {
	workspaceID, _ := middleware.WorkspaceID(r)

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	customer, err := h.customers.AdvanceStep(id, workspaceID)
	if err != nil {
		h.logger.Error("advance customer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to advance customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, customer)
}
