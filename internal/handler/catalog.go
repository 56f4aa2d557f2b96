package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
)

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       model.CentsToPrice(p.PriceCents),
		Stock:       p.Stock,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	}
}

func toProductResponses(products []model.Product) []productResponse {
	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	return resp
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListProducts возвращает страницу каталога с фильтрами и сортировкой.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.ListParams{
		Category: q.Get("category"),
		SortBy:   q.Get("sort_by"),
		Page:     1,
		PageSize: 10,
	}

	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid input")
			return
		}
		params.MinPrice = &price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid input")
			return
		}
		params.MaxPrice = &price
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeMessage(w, http.StatusBadRequest, "invalid input")
			return
		}
		params.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			writeMessage(w, http.StatusBadRequest, "invalid input")
			return
		}
		params.PageSize = size
	}

	products, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrPageOutOfRange) {
			writeMessage(w, http.StatusNotFound, "page out of range")
			return
		}
		h.logger.Error("list products error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// SearchProducts ищет товары по ключевому слову в имени.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	products, err := h.service.SearchProducts(r.Context(), keyword)
	if err != nil {
		h.logger.Error("search products error", zap.Error(err), zap.String("keyword", keyword))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.Int64("productID", id))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int64   `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
}

// CreateProduct добавляет товар в каталог. Только для администраторов.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), &model.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  model.PriceToCents(req.Price),
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.logger.Error("create product error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// GetAllProducts возвращает весь каталог. Только для администраторов.
func (h *Handler) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetAllProducts(r.Context())
	if err != nil {
		h.logger.Error("list all products error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

type productUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int64   `json:"stock"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
}

// UpdateProduct частично обновляет товар. Только для администраторов.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	var req productUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Price != nil && *req.Price < 0 {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	upd := service.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if req.Price != nil {
		cents := model.PriceToCents(*req.Price)
		upd.PriceCents = &cents
	}

	p, err := h.service.UpdateProduct(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("update product error", zap.Error(err), zap.Int64("productID", id))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// DeleteProduct удаляет товар из каталога. Только для администраторов.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("delete product error", zap.Error(err), zap.Int64("productID", id))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeMessage(w, http.StatusOK, "Product deleted successfully")
}
