// Package handler содержит HTTP-обработчики API интернет-магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront-system/internal/auth"
	"github.com/mmeshcher/storefront-system/internal/middleware"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
	"github.com/mmeshcher/storefront-system/internal/service"
	"github.com/mmeshcher/storefront-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, name, email, password string, role model.Role) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(refreshToken string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd service.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, params service.ListParams) ([]model.Product, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]model.Product, error)

	AddToCart(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error)
	GetCart(ctx context.Context, userID int64) ([]model.CartItem, error)
	UpdateCartQuantity(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, productID int64) error

	Checkout(ctx context.Context, userID int64) (int64, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API интернет-магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, authMw *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: authMw,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Заголовки уже отправлены, менять статус поздно.
		return
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Signup обрабатывает регистрацию нового пользователя.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Name == "" || !validation.IsValidEmail(req.Email) || !validation.IsValidPassword(req.Password) {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	role := model.Role(req.Role)
	if req.Role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	u, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeMessage(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Signin выполняет вход пользователя и выдаёт пару токенов.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword создаёт токен восстановления пароля. Почтовой рассылки нет,
// токен возвращается в теле ответа.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if !validation.IsValidEmail(req.Email) {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	token, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("forgot password error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Reset token generated",
		"reset_token": token,
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword устанавливает новый пароль по одноразовому токену.
// Неизвестный, использованный и просроченный токены неразличимы в ответе.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.Token == "" || !validation.IsValidPassword(req.NewPassword) {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, repository.ErrResetTicketInvalid) {
			writeMessage(w, http.StatusBadRequest, "invalid or expired token")
			return
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("reset password error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeMessage(w, http.StatusOK, "Password has been reset successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	if req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "invalid input")
		return
	}

	access, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) || errors.Is(err, auth.ErrTokenExpired) {
			writeMessage(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		h.logger.Error("refresh token error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
	})
}
