package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusRequest is the body of POST /api/v1/admin/accounts/:token/status.
type StatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListAccountsHandler handles GET /api/v1/admin/accounts?page=.
func ListAccountsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := deps.Admin.ListAccounts(c.Request.Context(), pageParam(c), deps.AccountsPerPage)
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"type":        "success",
			"accounts":    page.Accounts,
			"total":       page.Total,
			"page":        page.Page,
			"total_pages": page.TotalPages,
		})
	}
}

// GetAccountHandler handles GET /api/v1/admin/accounts/:token.
func GetAccountHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := deps.Admin.ResolveAccount(c.Request.Context(), c.Param("token"))
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": "success", "account": account})
	}
}

// SetAccountStatusHandler handles POST /api/v1/admin/accounts/:token/status.
func SetAccountStatusHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "is_active is required", "type": "error"})
			return
		}

		account, err := deps.Admin.SetActive(c.Request.Context(), c.Param("token"), *req.IsActive)
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "User status updated successfully",
			"type":      "success",
			"is_active": account.IsActive,
		})
	}
}

// ListAccountRecordsHandler handles GET /api/v1/admin/accounts/:token/records?page=.
func ListAccountRecordsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := deps.Admin.ListAccountRecords(c.Request.Context(), c.Param("token"), pageParam(c), deps.RecordsPerPage)
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"type":        "success",
			"records":     page.Records,
			"total":       page.Total,
			"page":        page.Page,
			"total_pages": page.TotalPages,
		})
	}
}
