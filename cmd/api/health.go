package main

import (
	"context"
	"net/http"
	"time"
)

// healthCheckHandler godoc
//
//	@Summary		Health check
//	@Description	Reports the service version and whether the database answers.
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	error
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
		"store":   app.config.store.driver,
	}

	if err := app.store.Ping(ctx); err != nil {
		app.serviceUnavailableResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
