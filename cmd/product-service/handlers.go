package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/httpx"
	prod "github.com/MikeMC777/mercado-ecom/internal/product"
)

const minSearchLen = 2

func pageParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}
	return limit, offset
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.New("price must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("price must not be negative")
	}
	return d, nil
}

// listProductsHandler godoc
// @Summary List a supermarket's catalog
// @Tags    products
// @Param   sid      path  string true  "supermarket id"
// @Param   category query string false "category filter"
// @Param   limit    query int    false "page size"
// @Param   offset   query int    false "page offset"
// @Success 200 {object} prod.ListResponse
// @Router  /supermarkets/{sid}/products [get]
func listProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pageParams(c)
		q := prod.Query{
			SupermarketID: c.Param("sid"),
			Category:      c.Query("category"),
			Limit:         limit,
			Offset:        offset,
		}.Normalize()

		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			log.Printf("[products] list sid=%s err=%v", q.SupermarketID, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not list products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Category: q.Category, Limit: q.Limit, Offset: q.Offset, Items: items})
	}
}

// searchProductsHandler godoc
// @Summary Search a supermarket's catalog by name or description
// @Tags    products
// @Param   sid path  string true "supermarket id"
// @Param   q   query string true "at least 2 characters"
// @Success 200 {object} prod.ListResponse
// @Failure 400 {object} httpx.HTTPError
// @Router  /supermarkets/{sid}/products/search [get]
func searchProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Query("q"))
		if utf8.RuneCountInString(term) < minSearchLen {
			httpx.Abort(c, http.StatusBadRequest, "q must have at least 2 characters")
			return
		}
		limit, offset := pageParams(c)
		q := prod.Query{
			SupermarketID: c.Param("sid"),
			Q:             term,
			Category:      c.Query("category"),
			Limit:         limit,
			Offset:        offset,
		}.Normalize()

		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			log.Printf("[products] search sid=%s q=%q err=%v", q.SupermarketID, q.Q, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not search products")
			return
		}
		c.JSON(http.StatusOK, prod.ListResponse{Q: q.Q, Category: q.Category, Limit: q.Limit, Offset: q.Offset, Items: items})
	}
}

func categoriesHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.Param("sid")
		cats, err := repo.Categories(c.Request.Context(), sid)
		if err != nil {
			log.Printf("[products] categories sid=%s err=%v", sid, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not list categories")
			return
		}
		c.JSON(http.StatusOK, gin.H{"supermarket_id": sid, "items": cats})
	}
}

// getProductHandler godoc
// @Summary Get a product
// @Tags    products
// @Param   id path string true "product id"
// @Success 200 {object} prod.Product
// @Failure 404 {object} httpx.HTTPError
// @Router  /products/{id} [get]
func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Abort(c, http.StatusNotFound, "product not found")
			return
		}
		if err != nil {
			log.Printf("[products] get id=%s err=%v", c.Param("id"), err)
			httpx.Abort(c, http.StatusInternalServerError, "could not load product")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// createProductHandler godoc
// @Summary  Add a product to a supermarket's catalog
// @Tags     products
// @Security BearerAuth
// @Param    sid  path string true "supermarket id"
// @Param    body body prod.CreateProductRequest true "product"
// @Success  201 {object} prod.Product
// @Failure  400 {object} httpx.HTTPError
// @Router   /supermarkets/{sid}/products [post]
func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid json")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || strings.TrimSpace(req.Price) == "" {
			httpx.Abort(c, http.StatusBadRequest, "name and price are required")
			return
		}
		price, err := parsePrice(req.Price)
		if err != nil {
			httpx.Abort(c, http.StatusBadRequest, err.Error())
			return
		}
		if req.Stock < 0 {
			httpx.Abort(c, http.StatusBadRequest, "stock must not be negative")
			return
		}

		p := &prod.Product{
			ID:            uuid.NewString(),
			SupermarketID: c.Param("sid"),
			Name:          req.Name,
			Description:   strings.TrimSpace(req.Description),
			Category:      strings.TrimSpace(req.Category),
			ImageURL:      strings.TrimSpace(req.ImageURL),
			Price:         price,
			Stock:         req.Stock,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			log.Printf("[products] create sid=%s err=%v", p.SupermarketID, err)
			httpx.Abort(c, http.StatusInternalServerError, "could not create product")
			return
		}
		created, err := repo.GetByID(c.Request.Context(), p.ID)
		if err != nil {
			log.Printf("[products] reload id=%s err=%v", p.ID, err)
			c.JSON(http.StatusCreated, p)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// managedProduct loads the product named by :id and checks the caller
// administers its supermarket. It writes the error response itself.
func managedProduct(c *gin.Context, repo prod.Repository) (*prod.Product, bool) {
	p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, prod.ErrNotFound) {
		httpx.Abort(c, http.StatusNotFound, "product not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[products] get id=%s err=%v", c.Param("id"), err)
		httpx.Abort(c, http.StatusInternalServerError, "could not load product")
		return nil, false
	}
	if who, _ := auth.PrincipalFrom(c); !who.AdminOf(p.SupermarketID) {
		httpx.Abort(c, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return p, true
}

// updateProductHandler godoc
// @Summary  Partially update a product
// @Tags     products
// @Security BearerAuth
// @Param    id   path string true "product id"
// @Param    body body prod.UpdateProductRequest true "fields to change"
// @Success  200 {object} prod.Product
// @Router   /products/{id} [put]
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Abort(c, http.StatusBadRequest, "invalid json")
			return
		}
		patch := prod.Patch{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Category:    strings.TrimSpace(req.Category),
			ImageURL:    strings.TrimSpace(req.ImageURL),
			Stock:       req.Stock,
		}
		if req.Price != nil {
			price, err := parsePrice(*req.Price)
			if err != nil {
				httpx.Abort(c, http.StatusBadRequest, err.Error())
				return
			}
			patch.Price = &price
		}
		if req.Stock != nil && *req.Stock < 0 {
			httpx.Abort(c, http.StatusBadRequest, "stock must not be negative")
			return
		}

		if _, ok := managedProduct(c, repo); !ok {
			return
		}
		p, err := repo.Update(c.Request.Context(), c.Param("id"), patch)
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Abort(c, http.StatusNotFound, "product not found")
			return
		}
		if err != nil {
			log.Printf("[products] update id=%s err=%v", c.Param("id"), err)
			httpx.Abort(c, http.StatusInternalServerError, "could not update product")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// deleteProductHandler godoc
// @Summary  Remove a product
// @Tags     products
// @Security BearerAuth
// @Param    id path string true "product id"
// @Success  204
// @Failure  409 {object} httpx.HTTPError
// @Router   /products/{id} [delete]
func deleteProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := managedProduct(c, repo); !ok {
			return
		}
		deleted, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if errors.Is(err, prod.ErrInUse) {
			httpx.Abort(c, http.StatusConflict, "product has orders; set its stock to 0 instead")
			return
		}
		if err != nil {
			log.Printf("[products] delete id=%s err=%v", c.Param("id"), err)
			httpx.Abort(c, http.StatusInternalServerError, "could not delete product")
			return
		}
		if !deleted {
			httpx.Abort(c, http.StatusNotFound, "product not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
