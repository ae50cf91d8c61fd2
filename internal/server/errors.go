package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/rideledger/rideledger/internal/account/domain"
	invoicedomain "github.com/rideledger/rideledger/internal/invoice/domain"
	"github.com/rideledger/rideledger/internal/money"
	"github.com/rideledger/rideledger/internal/tenantctx"
)

// problem is an RFC 9457 problem details body.
type problem struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail,omitempty"`
	Code          string         `json:"code"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func writeProblem(c *gin.Context, status int, code, detail string, extensions map[string]any) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, problem{
		Type:          "about:blank",
		Title:         http.StatusText(status),
		Status:        status,
		Detail:        detail,
		Code:          code,
		CorrelationID: c.GetString(contextRequestIDKey),
		Extensions:    extensions,
	})
}

// abortWithError translates domain errors into problem responses. Business
// errors map to 4xx with machine codes; everything else is an
// infrastructure failure with a correlation id.
func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var dupCharge *accountdomain.DuplicateChargeError
	if errors.As(err, &dupCharge) {
		ext := map[string]any{"ride_id": dupCharge.RideID}
		if len(dupCharge.ExistingEntryIDs) > 0 {
			ids := make([]string, 0, len(dupCharge.ExistingEntryIDs))
			for _, id := range dupCharge.ExistingEntryIDs {
				ids = append(ids, id.String())
			}
			ext["existing_entry_ids"] = ids
		}
		writeProblem(c, http.StatusConflict, "LEDGER_DUPLICATE_CHARGE", err.Error(), ext)
		return
	}

	var dupPayment *accountdomain.DuplicatePaymentError
	if errors.As(err, &dupPayment) {
		ext := map[string]any{"payment_reference_id": dupPayment.PaymentReferenceID}
		if len(dupPayment.ExistingEntryIDs) > 0 {
			ids := make([]string, 0, len(dupPayment.ExistingEntryIDs))
			for _, id := range dupPayment.ExistingEntryIDs {
				ids = append(ids, id.String())
			}
			ext["existing_entry_ids"] = ids
		}
		writeProblem(c, http.StatusConflict, "LEDGER_DUPLICATE_PAYMENT", err.Error(), ext)
		return
	}

	status, code := mapError(err)
	writeProblem(c, status, code, err.Error(), nil)
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, tenantctx.ErrTenantContextMissing):
		return http.StatusUnauthorized, "TENANT_CONTEXT_MISSING"

	case errors.Is(err, accountdomain.ErrNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND"
	case errors.Is(err, accountdomain.ErrAlreadyExists):
		return http.StatusConflict, "ACCOUNT_ALREADY_EXISTS"
	case errors.Is(err, accountdomain.ErrInvalidName):
		return http.StatusBadRequest, "ACCOUNT_INVALID_NAME"
	case errors.Is(err, accountdomain.ErrInvalidID):
		return http.StatusBadRequest, "ACCOUNT_INVALID_ID"
	case errors.Is(err, accountdomain.ErrInvalidType):
		return http.StatusBadRequest, "ACCOUNT_INVALID_TYPE"
	case errors.Is(err, accountdomain.ErrAccountInactive):
		return http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE"
	case errors.Is(err, accountdomain.ErrTenantMismatch):
		return http.StatusForbidden, "ACCOUNT_TENANT_MISMATCH"
	case errors.Is(err, accountdomain.ErrDuplicateCharge):
		return http.StatusConflict, "LEDGER_DUPLICATE_CHARGE"
	case errors.Is(err, accountdomain.ErrDuplicatePayment):
		return http.StatusConflict, "LEDGER_DUPLICATE_PAYMENT"
	case errors.Is(err, accountdomain.ErrInvalidAmount),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrNegativeResult):
		return http.StatusBadRequest, "LEDGER_INVALID_AMOUNT"
	case errors.Is(err, accountdomain.ErrInvalidSourceReference):
		return http.StatusBadRequest, "LEDGER_INVALID_AMOUNT"
	case errors.Is(err, accountdomain.ErrUnbalancedEntry):
		return http.StatusInternalServerError, "LEDGER_UNBALANCED_ENTRY"
	case errors.Is(err, accountdomain.ErrInvalidDateRange):
		return http.StatusBadRequest, "INVOICE_INVALID_DATE_RANGE"

	case errors.Is(err, invoicedomain.ErrNotFound):
		return http.StatusNotFound, "INVOICE_NOT_FOUND"
	case errors.Is(err, invoicedomain.ErrNoBillableItems):
		return http.StatusUnprocessableEntity, "INVOICE_NO_BILLABLE_ITEMS"
	case errors.Is(err, invoicedomain.ErrInvalidDateRange),
		errors.Is(err, invoicedomain.ErrInvalidFrequency):
		return http.StatusBadRequest, "INVOICE_INVALID_DATE_RANGE"
	case errors.Is(err, invoicedomain.ErrAlreadyExists):
		return http.StatusConflict, "INVOICE_ALREADY_EXISTS"
	case errors.Is(err, invoicedomain.ErrTenantMismatch):
		return http.StatusForbidden, "INVOICE_TENANT_MISMATCH"
	case errors.Is(err, invoicedomain.ErrImmutable):
		return http.StatusConflict, "INVOICE_IMMUTABLE"

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "CANCELED"

	default:
		return http.StatusInternalServerError, "INFRASTRUCTURE_FAILURE"
	}
}
