package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
)

// msgCredentials совпадает с сообщением middleware аутентификации.
const msgCredentials = "could not validate credentials"

type cartItemResponse struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func toCartItemResponse(item *model.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// AddToCart добавляет товар в корзину текущего пользователя. Повторное
// добавление того же товара увеличивает количество.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.ProductID <= 0 || req.Quantity <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	item, err := h.service.AddToCart(r.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeMessage(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("add to cart error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusCreated, toCartItemResponse(item))
}

// ViewCart возвращает содержимое корзины текущего пользователя.
func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	items, err := h.service.GetCart(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("view cart error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := make([]cartItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toCartItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateCartQuantity устанавливает новое количество позиции корзины.
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	productID, ok := parseIDParam(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Quantity <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	item, err := h.service.UpdateCartQuantity(r.Context(), identity.UserID, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			writeMessage(w, http.StatusNotFound, "item not found in cart")
			return
		}
		h.logger.Error("update cart error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toCartItemResponse(item))
}

// RemoveFromCart удаляет позицию из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	productID, ok := parseIDParam(r, "productID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), identity.UserID, productID); err != nil {
		if errors.Is(err, repository.ErrCartItemNotFound) {
			writeMessage(w, http.StatusNotFound, "item not found in cart")
			return
		}
		h.logger.Error("remove from cart error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeMessage(w, http.StatusOK, "Item removed from cart")
}

// Checkout оформляет заказ из корзины текущего пользователя. Корзина,
// заказ и его позиции изменяются в одной транзакции: при любой ошибке
// корзина остаётся нетронутой.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	orderID, err := h.service.Checkout(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmptyCart):
			writeMessage(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, repository.ErrProductNotFound):
			writeMessage(w, http.StatusNotFound, "product not found")
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.Int64("userID", identity.UserID))
			writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Checkout successful",
		"order_id": orderID,
	})
}

type orderItemResponse struct {
	ProductID       int64   `json:"product_id"`
	Quantity        int64   `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	TotalAmount float64             `json:"total_amount"`
	Status      string              `json:"status"`
	CreatedAt   string              `json:"created_at"`
	Items       []orderItemResponse `json:"items"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: model.CentsToPrice(item.PriceAtPurchase),
		})
	}
	return orderResponse{
		ID:          o.ID,
		TotalAmount: model.CentsToPrice(o.TotalCents),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		Items:       items,
	}
}

// GetOrders возвращает историю заказов текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ текущего пользователя по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgCredentials)
		return
	}

	orderID, ok := parseIDParam(r, "orderID")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	order, err := h.service.GetOrderByID(r.Context(), identity.UserID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeMessage(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("userID", identity.UserID))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
