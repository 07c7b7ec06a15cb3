// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tamtom/internal/modules/account"
	"tamtom/internal/modules/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

// failResponse is the envelope the merchant apps expect for rejected money
// operations, message in Arabic.
type failResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrRevenuePosted):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrAccountNotFound):
		writeJSON(c, http.StatusNotFound, failResponse{Message: "حساب المطعم غير موجود"})
	case errors.Is(err, account.ErrInvalidAmount):
		writeJSON(c, http.StatusBadRequest, failResponse{Message: "المبلغ يجب أن يكون أكبر من صفر"})
	case errors.Is(err, account.ErrInsufficientBalance):
		writeJSON(c, http.StatusUnprocessableEntity, failResponse{Message: "الرصيد غير كافٍ"})
	case errors.Is(err, account.ErrInvalidCommission):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
