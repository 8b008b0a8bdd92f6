package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/tradeledger/internal/invoice/domain"
	obslogger "github.com/smallbiznis/tradeledger/internal/observability/logger"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type createInvoiceItemRequest struct {
	MaterialName string          `json:"material_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Unit         string          `json:"unit"`
}

type createInvoiceRequest struct {
	InvoiceNumber string                     `json:"invoice_number"`
	Date          string                     `json:"date"`
	ClientID      string                     `json:"client_id"`
	SupplierID    string                     `json:"supplier_id"`
	Description   string                     `json:"description"`
	Items         []createInvoiceItemRequest `json:"items"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var date time.Time
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	items := make([]invoicedomain.CreateInvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, invoicedomain.CreateInvoiceItem{
			MaterialName: item.MaterialName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Unit:         item.Unit,
		})
	}

	ctx := c.Request.Context()
	token, locked, err := s.limiter.TryLockInvoiceNumber(ctx, req.InvoiceNumber)
	switch {
	case err != nil:
		// The unique index still rejects duplicates without the lock.
		obslogger.FromContext(ctx).Warn("invoice lock unavailable", zap.Error(err))
	case !locked:
		AbortWithError(c, ErrInvoiceInProgress)
		return
	default:
		defer func() {
			if err := s.limiter.ReleaseInvoiceNumber(context.WithoutCancel(ctx), req.InvoiceNumber, token); err != nil {
				obslogger.FromContext(ctx).Warn("invoice lock release failed", zap.Error(err))
			}
		}()
	}

	resp, err := s.invoiceSvc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		InvoiceNumber: req.InvoiceNumber,
		Date:          date,
		ClientID:      req.ClientID,
		SupplierID:    req.SupplierID,
		Description:   req.Description,
		Items:         items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
