package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountdomain "github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/pkg/db/pagination"
)

// AccountHandler exposes the account command and query surface.
type AccountHandler struct {
	svc accountdomain.Service
}

func NewAccountHandler(svc accountdomain.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Register(r gin.IRouter) {
	accounts := r.Group("/accounts")
	accounts.POST("", h.create)
	accounts.GET("/:id", h.get)
	accounts.POST("/:id/charges", h.recordCharge)
	accounts.POST("/:id/payments", h.recordPayment)
	accounts.POST("/:id/deactivate", h.deactivate)
	accounts.GET("/:id/balance", h.balance)
	accounts.GET("/:id/transactions", h.transactions)
	accounts.GET("/:id/statement", h.statement)
}

type createAccountRequest struct {
	ID       string `json:"id" binding:"required,uuid"`
	Name     string `json:"name" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Currency string `json:"currency"`
}

func (h *AccountHandler) create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		abortWithError(c, accountdomain.ErrInvalidID)
		return
	}

	account, err := h.svc.Create(c.Request.Context(), accountdomain.CreateAccountRequest{
		ID:       id,
		Name:     req.Name,
		Type:     accountdomain.AccountType(req.Type),
		Currency: req.Currency,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, accountResponse(account))
}

func (h *AccountHandler) get(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	account, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse(account))
}

type recordChargeRequest struct {
	RideID      string `json:"ride_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	ServiceDate string `json:"service_date" binding:"required"`
	FleetID     string `json:"fleet_id"`
}

func (h *AccountHandler) recordCharge(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req recordChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		abortWithError(c, accountdomain.ErrInvalidAmount)
		return
	}
	serviceDate, err := parseDate(req.ServiceDate)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "service_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	result, err := h.svc.RecordCharge(c.Request.Context(), accountdomain.RecordChargeRequest{
		AccountID:   id,
		RideID:      req.RideID,
		Amount:      amount,
		Currency:    req.Currency,
		ServiceDate: serviceDate,
		FleetID:     req.FleetID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"debit_entry_id":  result.DebitEntryID.String(),
		"credit_entry_id": result.CreditEntryID.String(),
	})
}

type recordPaymentRequest struct {
	PaymentReferenceID string `json:"payment_reference_id" binding:"required"`
	Amount             string `json:"amount" binding:"required"`
	Currency           string `json:"currency" binding:"required"`
	PaymentDate        string `json:"payment_date" binding:"required"`
	PaymentMode        string `json:"payment_mode"`
}

func (h *AccountHandler) recordPayment(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		abortWithError(c, accountdomain.ErrInvalidAmount)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "payment_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	result, err := h.svc.RecordPayment(c.Request.Context(), accountdomain.RecordPaymentRequest{
		AccountID:          id,
		PaymentReferenceID: req.PaymentReferenceID,
		Amount:             amount,
		Currency:           req.Currency,
		PaymentDate:        paymentDate,
		PaymentMode:        req.PaymentMode,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"debit_entry_id":  result.DebitEntryID.String(),
		"credit_entry_id": result.CreditEntryID.String(),
	})
}

type deactivateAccountRequest struct {
	Reason string `json:"reason"`
}

func (h *AccountHandler) deactivate(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	var req deactivateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), accountdomain.DeactivateAccountRequest{
		AccountID: id,
		Reason:    req.Reason,
	}); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) balance(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	balance, err := h.svc.GetBalance(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id": id.String(),
		"balance":    balance.Amount().StringFixed(4),
		"currency":   balance.Currency(),
	})
}

func (h *AccountHandler) transactions(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	req := accountdomain.GetTransactionsRequest{
		AccountID: id,
		Page:      parsePagination(c),
	}
	if req.StartDate, err = parseOptionalDate(c.Query("start_date")); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	if req.EndDate, err = parseOptionalDate(c.Query("end_date")); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "end_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	resp, err := h.svc.GetTransactions(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) statement(c *gin.Context) {
	id, err := parseAccountID(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	start, err := parseDate(c.Query("start_date"))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	end, err := parseDate(c.Query("end_date"))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "end_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	resp, err := h.svc.GetStatement(c.Request.Context(), accountdomain.GetStatementRequest{
		AccountID: id,
		StartDate: start,
		EndDate:   end,
		Page:      parsePagination(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func accountResponse(a *accountdomain.Account) gin.H {
	return gin.H{
		"id":         a.ID.String(),
		"name":       a.Name,
		"type":       a.Type,
		"status":     a.Status,
		"currency":   a.Currency,
		"created_at": a.CreatedAt,
		"updated_at": a.UpdatedAt,
	}
}

func parseAccountID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, accountdomain.ErrInvalidID
	}
	return id, nil
}

func parsePagination(c *gin.Context) pagination.Pagination {
	var page pagination.Pagination
	_ = c.ShouldBindQuery(&page)
	return page
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
