package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/inventory"
	"storefront/internal/domain/products"
	"storefront/internal/domain/storage"
	"storefront/internal/params"

	"github.com/go-chi/chi/v5"
)

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrim  = regexp.MustCompile(`^-|-$`)
)

func generateSlug(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return slugTrim.ReplaceAllString(slug, "")
}

type CreateProductPayload struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Slug        string  `json:"slug,omitempty" validate:"omitempty,slug,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	CategoryID  *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	BrandID     *int64  `json:"brand_id,omitempty" validate:"omitempty,gt=0"`
	PriceCents  int64   `json:"price_cents" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Status      string  `json:"status,omitempty" validate:"omitempty,oneof=active inactive out_of_stock"`
}

// UpdateProductPayload is a partial update: nil fields are left unchanged.
type UpdateProductPayload struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,slug,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	CategoryID  *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	BrandID     *int64  `json:"brand_id,omitempty" validate:"omitempty,gt=0"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=active inactive out_of_stock"`
}

func (p UpdateProductPayload) apply(dst *products.Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Slug != nil {
		dst.Slug = *p.Slug
	}
	if p.Description != nil {
		dst.Description = p.Description
	}
	if p.CategoryID != nil {
		dst.CategoryID = p.CategoryID
	}
	if p.BrandID != nil {
		dst.BrandID = p.BrandID
	}
	if p.PriceCents != nil {
		dst.PriceCents = *p.PriceCents
	}
	if p.Stock != nil {
		dst.Stock = *p.Stock
	}
	if p.Status != nil {
		dst.Status = inventory.Status(*p.Status)
	}
}

type ProductListResponse struct {
	Products   []*products.Product `json:"products"`
	Pagination params.Pagination   `json:"pagination"`
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// listProductsHandler godoc
//
//	@Summary		Search products
//	@Description	Public catalog search. Inactive products are hidden.
//	@Tags			products
//	@Produce		json
//	@Param			q			query		string	false	"Text search over name and description"
//	@Param			category_id	query		int		false	"Category filter"
//	@Param			brand_id	query		int		false	"Brand filter"
//	@Param			min_price	query		int		false	"Minimum price in cents"
//	@Param			max_price	query		int		false	"Maximum price in cents"
//	@Param			in_stock	query		bool	false	"Only products with stock"
//	@Param			sort		query		string	false	"Sort order"	Enums(newest,price_asc,price_desc,best_selling)
//	@Param			page		query		int		false	"Page number (default: 1)"
//	@Param			limit		query		int		false	"Items per page (default: 15, max: 50)"
//	@Success		200			{object}	envelope{data=ProductListResponse}
//	@Failure		400			{object}	error
//	@Failure		500			{object}	error
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	app.listProducts(w, r, true)
}

// adminListProductsHandler godoc
//
//	@Summary		List products (admin)
//	@Description	Same filters as the public search, inactive products included.
//	@Tags			admin-products
//	@Produce		json
//	@Param			status	query		string	false	"Status filter"	Enums(active,inactive,out_of_stock)
//	@Success		200		{object}	envelope{data=ProductListResponse}
//	@Failure		400		{object}	error
//	@Router			/admin/products [get]
//	@Security		ApiKeyAuth
func (app *application) adminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	app.listProducts(w, r, false)
}

func (app *application) listProducts(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter, err := products.ParseSearchFilter(r.URL.Query())
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	filter.PublicOnly = publicOnly
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Products.ListProducts(ctx, filter, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, ProductListResponse{Products: list, Pagination: p})
}

// getProductHandler godoc
//
//	@Summary		Get product
//	@Description	Product detail with current stock, served from the product cache.
//	@Tags			products
//	@Produce		json
//	@Param			productID	path		int64	true	"Product ID"
//	@Success		200			{object}	envelope{data=products.Product}
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Router			/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := parseIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p, err := app.productCache.Get(ctx, id, func(ctx context.Context) (*products.Product, error) {
		return app.store.Products.GetProductByID(ctx, id)
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if p == nil || p.Status == inventory.StatusInactive {
		app.notFoundResponse(w, r, products.ErrProductNotFound)
		return
	}

	app.jsonResponse(w, http.StatusOK, p)
}

// createProductHandler godoc
//
//	@Summary		Create product
//	@Tags			admin-products
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateProductPayload	true	"Product"
//	@Success		201		{object}	envelope{data=products.Product}
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"Slug already taken"
//	@Router			/admin/products [post]
//	@Security		ApiKeyAuth
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if payload.Slug == "" {
		payload.Slug = generateSlug(payload.Name)
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	created, err := app.store.Products.CreateProduct(ctx, &products.Product{
		Name:        payload.Name,
		Slug:        payload.Slug,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
		BrandID:     payload.BrandID,
		PriceCents:  payload.PriceCents,
		Stock:       payload.Stock,
		Status:      inventory.Status(payload.Status),
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.logger.Infow("product created", "product_id", created.ID, "slug", created.Slug)
	app.jsonResponse(w, http.StatusCreated, created)
}

// updateProductHandler godoc
//
//	@Summary		Update product
//	@Description	Partial update. Stock edits keep the status consistent: out_of_stock at zero, active again once restocked, inactive kept.
//	@Tags			admin-products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		int64					true	"Product ID"
//	@Param			payload		body		UpdateProductPayload	true	"Fields to change"
//	@Success		200			{object}	envelope{data=products.Product}
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error
//	@Router			/admin/products/{productID} [patch]
//	@Security		ApiKeyAuth
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload UpdateProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Read and write under the row lock so a concurrent reservation is not
	// overwritten with a stale stock value.
	var updated *products.Product
	err = app.store.WithSalesTx(ctx, func(tx *storage.SalesTx) error {
		cur, err := tx.Products.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return products.ErrProductNotFound
		}
		payload.apply(cur)
		updated, err = tx.Products.UpdateProduct(ctx, cur)
		return err
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.invalidateProducts(ctx, id)
	app.jsonResponse(w, http.StatusOK, updated)
}

// deleteProductHandler godoc
//
//	@Summary		Delete product
//	@Description	Existing orders keep their snapshot; releasing their stock later is a no-op.
//	@Tags			admin-products
//	@Param			productID	path	int64	true	"Product ID"
//	@Success		204
//	@Failure		404	{object}	error
//	@Router			/admin/products/{productID} [delete]
//	@Security		ApiKeyAuth
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "productID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Products.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, products.ErrProductNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.invalidateProducts(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) invalidateProducts(ctx context.Context, ids ...int64) {
	if err := app.productCache.Invalidate(ctx, ids...); err != nil {
		app.logger.Warnw("product cache invalidation failed", "product_ids", ids, "error", err)
	}
}
