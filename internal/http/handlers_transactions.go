package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const msgTransactionNotFound = "Transaction not found"

type indexPage struct {
	Title        string
	Transactions []core.Transaction
	Balance      core.Balance
}

type transactionForm struct {
	Title  string
	Action string
	Submit string
	Values core.TransactionInput
	Error  string
}

type errorPage struct {
	Title     string
	Status    int
	Message   string
	RequestID string
}

// transactionJSON is the wire shape of GET /transaction/{id}.
type transactionJSON struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Category:    t.Category,
		Amount:      t.Amount.Float(),
		Date:        t.Date,
		Description: t.Description,
	}
}

func inputFromTransaction(t core.Transaction) core.TransactionInput {
	return core.TransactionInput{
		Type:        string(t.Type),
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Date:        t.Date,
		Description: t.Description,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var page indexPage
	page.Title = "Transactions"

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		page.Transactions, err = s.transactions.ListAll(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.Balance, err = s.transactions.ComputeBalance(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.internalError(w, r, "Failed to load transactions", err, log.ComponentTransaction, log.OpList)
		return
	}

	s.render(w, r, http.StatusOK, "index.html", page)
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "add.html", transactionForm{
		Title:  "Add transaction",
		Action: "/add",
		Submit: "Add",
		Values: core.TransactionInput{Type: string(core.Expense), Date: time.Now().Format(core.DateLayout)},
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	in := p.TransactionInput()
	cmd, err := in.Validate()
	if err != nil {
		s.logger.WarnContext(r.Context(), "Transaction rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "add.html", transactionForm{
			Title:  "Add transaction",
			Action: "/add",
			Submit: "Add",
			Values: in,
			Error:  validationMessage(err),
		})
		return
	}

	t, err := s.transactions.Create(r.Context(), cmd)
	if err != nil {
		s.internalError(w, r, "Failed to create transaction", err, log.ComponentTransaction, log.OpCreate)
		return
	}

	if p.IsJSON() {
		NewResponse().
			Status(http.StatusCreated).
			Header("Location", "/transaction/"+strconv.FormatInt(t.ID, 10)).
			JSON(toTransactionJSON(t)).
			Write(w)
		return
	}
	Redirect(w, r, "/")
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	t, err := s.transactions.GetByID(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, msgTransactionNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to load transaction", err, log.ComponentTransaction, log.OpRead)
		return
	}

	s.render(w, r, http.StatusOK, "edit.html", transactionForm{
		Title:  "Edit transaction #" + strconv.FormatInt(t.ID, 10),
		Action: "/edit/" + strconv.FormatInt(t.ID, 10),
		Submit: "Save",
		Values: inputFromTransaction(t),
	})
}

// handleUpdateTransaction replaces all five fields of the transaction.
// Form posts redirect to the list; JSON posts get {success:bool}.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid transaction id").Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Err(); err != nil {
		s.badBody(w, r, err)
		return
	}

	in := p.TransactionInput()
	cmd, err := in.Validate()
	if err != nil {
		if p.IsJSON() {
			JSONFailure(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "edit.html", transactionForm{
			Title:  "Edit transaction #" + strconv.FormatInt(id, 10),
			Action: "/edit/" + strconv.FormatInt(id, 10),
			Submit: "Save",
			Values: in,
			Error:  validationMessage(err),
		})
		return
	}

	_, err = s.transactions.Update(r.Context(), id, cmd)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, msgTransactionNotFound).Write(w)
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to update transaction", err, log.ComponentTransaction, log.OpUpdate)
		return
	}

	if p.IsJSON() {
		JSONSuccess().Write(w)
		return
	}
	Redirect(w, r, "/")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONFailure(http.StatusBadRequest, "Invalid transaction id").Write(w)
		return
	}

	err = s.transactions.Delete(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		JSONFailure(http.StatusNotFound, msgTransactionNotFound).Write(w)
		return
	}
	if err != nil {
		s.errors.LogError(r.Context(), "Failed to delete transaction", err, log.ComponentTransaction, log.OpDelete,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		JSONFailure(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}
	JSONSuccess().Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		JSONError(http.StatusBadRequest, "Invalid transaction id").Write(w)
		return
	}

	t, err := s.transactions.GetByID(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		JSONError(http.StatusNotFound, msgTransactionNotFound).Write(w)
		return
	}
	if err != nil {
		s.errors.LogError(r.Context(), "Failed to load transaction", err, log.ComponentTransaction, log.OpRead,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		JSONError(http.StatusInternalServerError, "Internal server error").Write(w)
		return
	}
	NewResponse().JSON(toTransactionJSON(t)).Write(w)
}

// badBody answers an unreadable or oversized request body.
func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusBadRequest, "Malformed request body"
	if isBodyTooLarge(err) {
		status, msg = http.StatusRequestEntityTooLarge, "Request body too large"
	}
	s.logger.WarnContext(r.Context(), "Unreadable request body", log.FieldError, err)
	if wantsJSON(r) {
		JSONFailure(status, msg).Write(w)
		return
	}
	ErrorResponse(status, msg).Write(w)
}
