package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
)

func (s *Server) ListTransactions(c *gin.Context) {
	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListTransactionRequest{
		InvoiceID: strings.TrimSpace(c.Query("invoice_id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	resp, err := s.ledgerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDebts(c *gin.Context) {
	var query struct {
		Type       string `form:"type"`
		ClientID   string `form:"client_id"`
		SupplierID string `form:"supplier_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.debtSvc.List(c.Request.Context(), debtdomain.ListDebtRequest{
		DebtType:   query.Type,
		ClientID:   query.ClientID,
		SupplierID: query.SupplierID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
