package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dhruvshah/sunbeam/internal/middleware"
	"github.com/dhruvshah/sunbeam/internal/model"
	"github.com/dhruvshah/sunbeam/internal/store"
)

type StepDataHandler struct {
	steps     *store.StepDataStore
	customers *store.CustomerStore
	logger    *slog.Logger
}

func NewStepDataHandler(ss *store.StepDataStore, cs *store.CustomerStore, logger *slog.Logger) *StepDataHandler {
	return &StepDataHandler{steps: ss, customers: cs, logger: logger}
}

func (h *StepDataHandler) customerOr404(w http.ResponseWriter, r *http.Request) (*model.Customer, bool) {
	workspaceID, _ := middleware.WorkspaceID(r)
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	customer, err := h.customers.GetByID(id, workspaceID)
	if err != nil {
		h.logger.Error("get customer", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return nil, false
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return nil, false
	}
	return customer, true
}

// List returns every recorded step for a customer.
func (h *StepDataHandler) List(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customerOr404(w, r)
	if !ok {
		return
	}

	steps, err := h.steps.ListByCustomer(customer.WorkspaceID, customer.ID)
	if err != nil {
		h.logger.Error("list steps", "customer_id", customer.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list steps")
		return
	}
	if steps == nil {
		steps = []model.StepData{}
	}
	writeJSON(w, http.StatusOK, steps)
}

// Upsert stores the payload for one step. Archived customers are frozen.
func (h *StepDataHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customerOr404(w, r)
	if !ok {
		return
	}
	if customer.Status == model.CustomerStatusArchived {
		writeError(w, http.StatusBadRequest, "customer is archived")
		return
	}

	stepNumber, err := strconv.Atoi(r.PathValue("step"))
	if err != nil || stepNumber < 1 || stepNumber > model.TotalSteps {
		writeError(w, http.StatusBadRequest, "invalid step number")
		return
	}

	var payload json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sd, err := h.steps.Upsert(customer.WorkspaceID, customer.ID, stepNumber, payload)
	if err != nil {
		h.logger.Error("upsert step", "customer_id", customer.ID, "step", stepNumber, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save step data")
		return
	}
	writeJSON(w, http.StatusOK, sd)
}
