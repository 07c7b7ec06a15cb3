// README: Delivery fee quote endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tamtom/internal/modules/delivery"
	"tamtom/internal/types"
)

type DeliveryHandler struct {
	delivery *delivery.Service
}

func NewDeliveryHandler(svc *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{delivery: svc}
}

type quoteReq struct {
	Origin      types.Point `json:"origin"`
	Destination types.Point `json:"destination"`
	Subtotal    types.Money `json:"subtotal"`
}

func (h *DeliveryHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !validPoint(req.Origin) || !validPoint(req.Destination) {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	q := h.delivery.QuoteTrip(c.Request.Context(), req.Origin, req.Destination, req.Subtotal)
	writeJSON(c, http.StatusOK, q)
}

func validPoint(p types.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
