package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	invoicedomain "github.com/rideledger/rideledger/internal/invoice/domain"
)

// InvoiceHandler exposes invoice generation and lookup.
type InvoiceHandler struct {
	svc invoicedomain.Service
}

func NewInvoiceHandler(svc invoicedomain.Service) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

func (h *InvoiceHandler) Register(r gin.IRouter) {
	invoices := r.Group("/invoices")
	invoices.POST("", h.generate)
	invoices.GET("", h.search)
	invoices.GET("/number/:number", h.getByNumber)
	invoices.GET("/:id", h.get)
	invoices.POST("/:id/void", h.void)
}

type generateInvoiceRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid"`
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
	Frequency   string `json:"frequency" binding:"required"`
}

func (h *InvoiceHandler) generate(c *gin.Context) {
	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "account_id must be a uuid", nil)
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "period_start must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "period_end must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	invoice, err := h.svc.Generate(c.Request.Context(), invoicedomain.GenerateInvoiceRequest{
		AccountID:   accountID,
		PeriodStart: start,
		PeriodEnd:   end,
		Frequency:   invoicedomain.BillingFrequency(req.Frequency),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "invoice id must be a uuid", nil)
		return
	}
	invoice, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) getByNumber(c *gin.Context) {
	invoice, err := h.svc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) void(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "invoice id must be a uuid", nil)
		return
	}
	if err := h.svc.Void(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InvoiceHandler) search(c *gin.Context) {
	req := invoicedomain.SearchInvoicesRequest{Page: parsePagination(c)}

	if raw := c.Query("account_id"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "account_id must be a uuid", nil)
			return
		}
		req.AccountID = &accountID
	}
	if raw := c.Query("status"); raw != "" {
		status := invoicedomain.InvoiceStatus(raw)
		req.Status = &status
	}
	var err error
	if req.StartDate, err = parseOptionalDate(c.Query("start_date")); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "start_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}
	if req.EndDate, err = parseOptionalDate(c.Query("end_date")); err != nil {
		writeProblem(c, http.StatusBadRequest, "INVALID_REQUEST", "end_date must be RFC 3339 or YYYY-MM-DD", nil)
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
