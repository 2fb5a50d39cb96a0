package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type savingsPage struct {
	Title  string
	Goals  []core.SavingsGoal
	Values core.SavingsGoalInput
	Error  string
}

func (s *Server) renderSavings(w http.ResponseWriter, r *http.Request, status int, values core.SavingsGoalInput, formErr string) {
	goals, err := s.savings.ListAll(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to load savings goals", err, log.ComponentSavings, log.OpList)
		return
	}
	s.render(w, r, status, "savings.html", savingsPage{
		Title:  "Savings goals",
		Goals:  goals,
		Values: values,
		Error:  formErr,
	})
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	s.renderSavings(w, r, http.StatusOK, core.SavingsGoalInput{}, "")
}

func (s *Server) handleCreateSavingsGoal(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	in := p.SavingsGoalInput()
	cmd, err := in.Validate()
	if err != nil {
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.renderSavings(w, r, http.StatusUnprocessableEntity, in, validationMessage(err))
		return
	}

	if _, err := s.savings.Create(r.Context(), cmd); err != nil {
		s.internalError(w, r, "Failed to create savings goal", err, log.ComponentSavings, log.OpCreate)
		return
	}

	if p.IsJSON() {
		NewResponse().Status(http.StatusCreated).JSON(successBody{Success: true}).Write(w)
		return
	}
	Redirect(w, r, "/savings")
}

// handleContribute adds the posted amount to a goal's current savings.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid savings goal id").Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	amount, err := p.Amount("amount")
	if err != nil {
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.renderSavings(w, r, http.StatusUnprocessableEntity, core.SavingsGoalInput{}, validationMessage(err))
		return
	}

	_, err = s.savings.Contribute(r.Context(), id, amount)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, "Savings goal not found").Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to record contribution", err, log.ComponentSavings, log.OpContribute)
		return
	}

	if p.IsJSON() {
		JSONSuccess().Write(w)
		return
	}
	Redirect(w, r, "/savings")
}

func (s *Server) handleDeleteSavingsGoal(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid savings goal id").Write(w)
		return
	}

	err = s.savings.Delete(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, "Savings goal not found").Write(w)
		return
	}
	if err != nil {
		s.errors.LogError(r.Context(), "Failed to delete savings goal", err, log.ComponentSavings, log.OpDelete,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		JSONFailure(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}
	JSONSuccess().Write(w)
}
