package api

import (
	"errors"
	"net/http"

	reqdto "bookhub-loans/internal/handler/dto/request"
	resdto "bookhub-loans/internal/handler/dto/response"
	"bookhub-loans/internal/handler/httperr"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/usecase/commands"
	"bookhub-loans/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LoanHandler struct {
	loanCommands commands.LoanCommands
	loanQueries  queries.LoanQueries
}

func NewLoanHandler(loanCommands commands.LoanCommands, loanQueries queries.LoanQueries) *LoanHandler {
	return &LoanHandler{
		loanCommands: loanCommands,
		loanQueries:  loanQueries,
	}
}

// @Summary Create loan
// @Description Borrow a book: reserves a copy in the catalog and records the loan
// @Tags loans
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key for duplicate prevention"
// @Param request body reqdto.CreateLoanRequest true "Loan request"
// @Success 200 {object} resdto.LoanResponse "Replayed from idempotency key"
// @Success 201 {object} resdto.LoanResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Failure 504 {object} map[string]string
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	idempotencyKey, err := h.getIdempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		return
	}

	var req reqdto.CreateLoanRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	params := commands.CreateLoanParams{
		UserID:         req.UserID,
		BookID:         req.BookID,
		DurationDays:   req.DurationDays,
		IdempotencyKey: idempotencyKey,
	}

	result, err := h.loanCommands.CreateLoan(c.Request.Context(), params)
	if err != nil {
		h.writeCommandError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromLoanView(result.Loan))
}

// @Summary Return loan
// @Description Close a loan: computes any late penalty and releases the copy back to the catalog
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} resdto.LoanResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /loans/{id}/return [post]
func (h *LoanHandler) ReturnLoan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid loan ID format", nil)
		return
	}

	view, err := h.loanCommands.ReturnLoan(c.Request.Context(), id)
	if err != nil {
		h.writeCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoanView(view))
}

// @Summary Get loan
// @Description Get loan by ID
// @Tags loans
// @Produce json
// @Param id path string true "Loan ID"
// @Success 200 {object} resdto.LoanResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid loan ID format", nil)
		return
	}

	view, err := h.loanQueries.GetByID(c.Request.Context(), id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Loan not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoanView(view))
}

// @Summary List loans for a user
// @Description Get all loans for the given user, newest first. Pass active=true for outstanding loans only.
// @Tags loans
// @Produce json
// @Param userId path string true "User ID"
// @Param active query bool false "Only loans still counting against the limit"
// @Success 200 {array} resdto.LoanResponse
// @Failure 400 {object} map[string]string
// @Router /loans/user/{userId} [get]
func (h *LoanHandler) ListUserLoans(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid user ID format", nil)
		return
	}

	var views []*queries.LoanView
	if c.Query("active") == "true" {
		views, err = h.loanQueries.ListOutstandingByUser(c.Request.Context(), userID)
	} else {
		views, err = h.loanQueries.ListByUser(c.Request.Context(), userID)
	}
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoanViews(views))
}

// @Summary List overdue loans
// @Description Get every loan currently past its due date
// @Tags loans
// @Produce json
// @Success 200 {array} resdto.LoanResponse
// @Router /loans/overdue [get]
func (h *LoanHandler) ListOverdueLoans(c *gin.Context) {
	views, err := h.loanQueries.ListOverdue(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoanViews(views))
}

// @Summary List all loans
// @Description Get every loan on record
// @Tags loans
// @Produce json
// @Success 200 {array} resdto.LoanResponse
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	views, err := h.loanQueries.ListAll(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoanViews(views))
}

func (h *LoanHandler) writeCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrUserNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "User not found", nil)
	case errors.Is(err, commands.ErrBookNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Book not found", nil)
	case errors.Is(err, commands.ErrLoanNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Loan not found", nil)
	case errors.Is(err, commands.ErrBookUnavailable):
		httperr.AbortWithError(c, http.StatusConflict, err, "No copies of this book are available", nil)
	case errors.Is(err, commands.ErrLoanLimitExceeded):
		httperr.AbortWithError(c, http.StatusConflict, err, "Loan limit exceeded", nil)
	case errors.Is(err, commands.ErrLoanAlreadyReturned):
		httperr.AbortWithError(c, http.StatusConflict, err, "Loan has already been returned", nil)
	case errors.Is(err, commands.ErrDomainValidation):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "Domain validation failed", nil)
	case errors.Is(err, commands.ErrRemoteTimeout):
		httperr.AbortWithError(c, http.StatusGatewayTimeout, err, "Upstream service timed out", nil)
	case errors.Is(err, commands.ErrRemoteUnavailable):
		httperr.AbortWithError(c, http.StatusBadGateway, err, "Upstream service unavailable", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

// getIdempotencyKey reads the optional Idempotency-Key header. Absent means
// the caller accepts at-most-once semantics are on them.
func (h *LoanHandler) getIdempotencyKey(c *gin.Context) (*uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return nil, nil
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return nil, errors.New("invalid idempotency key format")
	}

	return &key, nil
}
