package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type budgetingPage struct {
	Title    string
	Statuses []core.BudgetStatus
	Values   core.BudgetInput
	Error    string
}

func (s *Server) renderBudgeting(w http.ResponseWriter, r *http.Request, status int, values core.BudgetInput, formErr string) {
	statuses, err := s.budgets.Statuses(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to load budgets", err, log.ComponentBudget, log.OpList)
		return
	}
	s.render(w, r, status, "budgeting.html", budgetingPage{
		Title:    "Budgeting",
		Statuses: statuses,
		Values:   values,
		Error:    formErr,
	})
}

func (s *Server) handleBudgeting(w http.ResponseWriter, r *http.Request) {
	s.renderBudgeting(w, r, http.StatusOK, core.BudgetInput{}, "")
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	in := p.BudgetInput()
	cmd, err := in.Validate()
	if err != nil {
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.renderBudgeting(w, r, http.StatusUnprocessableEntity, in, validationMessage(err))
		return
	}

	if _, err := s.budgets.Create(r.Context(), cmd); err != nil {
		s.internalError(w, r, "Failed to create budget", err, log.ComponentBudget, log.OpCreate)
		return
	}

	if p.IsJSON() {
		NewResponse().Status(http.StatusCreated).JSON(successBody{Success: true}).Write(w)
		return
	}
	Redirect(w, r, "/budgeting")
}

// handleUpdateBudget replaces the limit of one budget row.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid budget id").Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	limit, err := p.Amount("budget_limit")
	if err != nil {
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.renderBudgeting(w, r, http.StatusUnprocessableEntity, core.BudgetInput{}, validationMessage(err))
		return
	}

	err = s.budgets.UpdateLimit(r.Context(), id, limit)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, "Budget not found").Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to update budget", err, log.ComponentBudget, log.OpUpdate)
		return
	}

	if p.IsJSON() {
		JSONSuccess().Write(w)
		return
	}
	Redirect(w, r, "/budgeting")
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid budget id").Write(w)
		return
	}

	err = s.budgets.Delete(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, "Budget not found").Write(w)
		return
	}
	if err != nil {
		s.errors.LogError(r.Context(), "Failed to delete budget", err, log.ComponentBudget, log.OpDelete,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		JSONFailure(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}
	JSONSuccess().Write(w)
}
