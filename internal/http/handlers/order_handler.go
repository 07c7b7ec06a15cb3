// README: Order endpoints: create, read, status transitions, cancel.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tamtom/internal/modules/order"
	"tamtom/internal/types"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{orders: svc}
}

type createOrderReq struct {
	RestaurantID string      `json:"restaurant_id"`
	CustomerID   string      `json:"customer_id"`
	Subtotal     types.Money `json:"subtotal"`
	RestaurantAt types.Point `json:"restaurant_location"`
	DeliverTo    types.Point `json:"delivery_location"`
}

type orderResponse struct {
	ID           types.ID     `json:"id"`
	RestaurantID types.ID     `json:"restaurant_id"`
	CustomerID   types.ID     `json:"customer_id"`
	DriverID     *types.ID    `json:"driver_id,omitempty"`
	Status       order.Status `json:"status"`
	Subtotal     types.Money  `json:"subtotal"`
	DeliveryFee  types.Money  `json:"delivery_fee"`
	Total        types.Money  `json:"total"`
	DistanceKm   float64      `json:"distance_km"`
	CreatedAt    time.Time    `json:"created_at"`
	DeliveredAt  *time.Time   `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty"`
	CancelReason *string      `json:"cancel_reason,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		CustomerID:   o.CustomerID,
		DriverID:     o.DriverID,
		Status:       o.Status,
		Subtotal:     o.Subtotal,
		DeliveryFee:  o.DeliveryFee,
		Total:        o.Total,
		DistanceKm:   o.DistanceKm,
		CreatedAt:    o.CreatedAt,
		DeliveredAt:  o.DeliveredAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
	}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		RestaurantID: types.ID(req.RestaurantID),
		CustomerID:   types.ID(req.CustomerID),
		Subtotal:     req.Subtotal,
		Origin:       req.RestaurantAt,
		Dropoff:      req.DeliverTo,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type updateStatusReq struct {
	Status    string  `json:"status"`
	ActorType string  `json:"actor_type"`
	ActorID   *string `json:"actor_id"`
	DriverID  *string `json:"driver_id"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	to, ok := order.ParseStatus(req.Status)
	if !ok {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	actorType := req.ActorType
	if actorType == "" {
		actorType = "system"
	}
	o, err := h.orders.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID:   types.ID(c.Param("id")),
		To:        to,
		ActorType: actorType,
		ActorID:   idArg(req.ActorID),
		DriverID:  idArg(req.DriverID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type cancelOrderReq struct {
	ActorType string `json:"actor_type"`
	Reason    string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelOrderReq
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actorType := req.ActorType
	if actorType == "" {
		actorType = "customer"
	}
	reason := req.Reason
	if reason == "" {
		reason = "user_cancel"
	}
	o, err := h.orders.Cancel(c.Request.Context(), types.ID(c.Param("id")), actorType, reason)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

func idArg(v *string) *types.ID {
	if v == nil || *v == "" {
		return nil
	}
	id := types.ID(*v)
	return &id
}
