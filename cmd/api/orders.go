package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/orders"
	"storefront/internal/params"
	"storefront/internal/sales"
)

type OrderListResponse struct {
	Orders     []orders.Order    `json:"orders"`
	Pagination params.Pagination `json:"pagination"`
	Status     string            `json:"status"` // applied filter (echoed back)
}

type UpdateOrderStatusPayload struct {
	Status          string  `json:"status" validate:"required,oneof=pending confirmed shipping delivered cancelled" example:"confirmed"`
	CancelledReason *string `json:"cancelled_reason,omitempty" validate:"omitempty,max=500" example:"Customer requested"`
}

type CancelOrderPayload struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

func parseStatusFilter(r *http.Request) (string, error) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !orders.Status(status).Valid() {
		return "", fmt.Errorf("invalid status %q", status)
	}
	return status, nil
}

// placeOrderHandler godoc
//
//	@Summary		Place order
//	@Description	Reserves stock for every line and creates the order, or creates nothing. Duplicate lines for one product are merged.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		sales.PlaceOrderInput	true	"Order"
//	@Success		201		{object}	envelope{data=orders.Order}
//	@Failure		400		{object}	error	"Invalid lines, unknown or inactive product"
//	@Failure		409		{object}	error	"Insufficient stock"
//	@Failure		503		{object}	error	"Stock transaction failed, retry"
//	@Router			/orders [post]
//	@Security		ApiKeyAuth
func (app *application) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	var payload sales.PlaceOrderInput
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	identity := getIdentityFromContext(r)
	order, err := app.orders.PlaceOrder(ctx, identity.UserID, payload)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.logger.Infow("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", identity.UserID,
		"total_cents", order.TotalCents,
	)
	app.jsonResponse(w, http.StatusCreated, order)
}

// listMyOrdersHandler godoc
//
//	@Summary		List my orders
//	@Tags			orders
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(pending,confirmed,shipping,delivered,cancelled)
//	@Param			page	query		int		false	"Page number (default: 1)"
//	@Param			limit	query		int		false	"Items per page (default: 15, max: 50)"
//	@Success		200		{object}	envelope{data=OrderListResponse}
//	@Failure		400		{object}	error
//	@Router			/orders [get]
//	@Security		ApiKeyAuth
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := parseStatusFilter(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.orders.ListUserOrders(ctx, getIdentityFromContext(r).UserID, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, OrderListResponse{Orders: list, Pagination: p, Status: status})
}

// getMyOrderHandler godoc
//
//	@Summary		Get my order
//	@Tags			orders
//	@Produce		json
//	@Param			orderID	path		int64	true	"Order ID"
//	@Success		200		{object}	envelope{data=orders.Order}
//	@Failure		404		{object}	error
//	@Router			/orders/{orderID} [get]
//	@Security		ApiKeyAuth
func (app *application) getMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := app.orders.GetUserOrder(ctx, getIdentityFromContext(r).UserID, orderID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, order)
}

// cancelMyOrderHandler godoc
//
//	@Summary		Cancel my order
//	@Description	Customers may cancel while the order is pending. The reserved stock is released.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path		int64				true	"Order ID"
//	@Param			payload	body		CancelOrderPayload	false	"Reason"
//	@Success		200		{object}	envelope{data=orders.Order}
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Order is no longer pending"
//	@Router			/orders/{orderID}/cancel [post]
//	@Security		ApiKeyAuth
func (app *application) cancelMyOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload CancelOrderPayload
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := app.orders.CancelMyOrder(ctx, getIdentityFromContext(r).UserID, orderID, payload.Reason)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, order)
}

// adminListOrdersHandler godoc
//
//	@Summary		List orders (admin)
//	@Description	List all orders. Supports optional status filter and pagination.
//	@Tags			admin-orders
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(pending,confirmed,shipping,delivered,cancelled)
//	@Param			page	query		int		false	"Page number (default: 1)"
//	@Param			limit	query		int		false	"Items per page (default: 15, max: 50)"
//	@Success		200		{object}	envelope{data=OrderListResponse}
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Router			/admin/orders [get]
//	@Security		ApiKeyAuth
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status, err := parseStatusFilter(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.orders.ListOrders(ctx, status, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, OrderListResponse{Orders: list, Pagination: p, Status: status})
}

// adminGetOrderHandler godoc
//
//	@Summary		Get order detail (admin)
//	@Tags			admin-orders
//	@Produce		json
//	@Param			orderID	path		int64	true	"Order ID"
//	@Success		200		{object}	envelope{data=orders.Order}
//	@Failure		400		{object}	error	"Bad Request: invalid orderID"
//	@Failure		404		{object}	error	"Not Found: order not found"
//	@Router			/admin/orders/{orderID} [get]
//	@Security		ApiKeyAuth
func (app *application) adminGetOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	order, err := app.orders.GetOrder(ctx, orderID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, order)
}

// adminUpdateOrderStatusHandler godoc
//
//	@Summary		Update order status (admin)
//	@Description	pending -> confirmed -> shipping -> delivered; any non-terminal order may be cancelled, which releases its stock. delivered and cancelled are final.
//	@Tags			admin-orders
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path		int64						true	"Order ID"
//	@Param			body	body		UpdateOrderStatusPayload	true	"Status update payload"
//	@Success		200		{object}	envelope{data=orders.Order}
//	@Failure		400		{object}	error	"Bad Request: invalid payload/status"
//	@Failure		404		{object}	error	"Not Found: order not found"
//	@Failure		409		{object}	error	"Transition not allowed"
//	@Failure		503		{object}	error	"Stock transaction failed, retry"
//	@Router			/admin/orders/{orderID}/status [patch]
//	@Security		ApiKeyAuth
func (app *application) adminUpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateOrderStatusPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := app.orders.UpdateStatus(ctx, orderID, orders.Status(payload.Status), payload.CancelledReason)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, order)
}

// adminDeleteOrderHandler godoc
//
//	@Summary		Delete order (admin)
//	@Description	Hard delete. Stock is released unless the order was already cancelled.
//	@Tags			admin-orders
//	@Param			orderID	path	int64	true	"Order ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Failure		503	{object}	error
//	@Router			/admin/orders/{orderID} [delete]
//	@Security		ApiKeyAuth
func (app *application) adminDeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := app.orders.DeleteOrder(ctx, orderID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
