package main

import (
	"errors"
	"net/http"

	"storefront/internal/domain/inventory"
	"storefront/internal/domain/orders"
	"storefront/internal/domain/products"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not found")
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path)

	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("service unavailable", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("Retry-After", "1")
	writeJSONError(w, http.StatusServiceUnavailable, "the service is busy, please retry")
}

// stockErrorResponse reports which product rejected the order. Unknown and
// inactive products are bad input; missing stock is a conflict the client
// may resolve by ordering less.
func (app *application) stockErrorResponse(w http.ResponseWriter, r *http.Request, se *inventory.StockError) {
	status := http.StatusBadRequest
	if se.Kind == inventory.KindInsufficientStock {
		status = http.StatusConflict
	}

	app.logger.Infow("stock rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"kind", se.Kind,
		"product_id", se.ProductID,
		"requested", se.Requested,
		"available", se.Available,
	)

	type stockEnvelope struct {
		Success bool                  `json:"success"`
		Message string                `json:"message"`
		Status  int                   `json:"status"`
		Error   *inventory.StockError `json:"error"`
	}
	writeJSON(w, status, &stockEnvelope{
		Success: false,
		Message: se.Error(),
		Status:  status,
		Error:   se,
	})
}

// domainErrorResponse maps the errors of the product, stock and order
// packages to responses.
func (app *application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := inventory.AsStockError(err); ok {
		app.stockErrorResponse(w, r, se)
		return
	}

	switch {
	case errors.Is(err, inventory.ErrTransactionFailure):
		app.serviceUnavailableResponse(w, r, err)
	case errors.Is(err, inventory.ErrEmptyBatch),
		errors.Is(err, inventory.ErrInvalidLine),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, products.ErrInvalidProduct):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, products.ErrProductNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, products.ErrDuplicateSlug):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
