// Package service реализует бизнес-логику интернет-магазина.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/storefront-system/internal/auth"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
)

// resetTicketTTL — срок жизни токена восстановления пароля.
const resetTicketTTL = 1 * time.Hour

// ErrInvalidCredentials возвращается при неверной паре email/пароль —
// без уточнения, что именно не совпало.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPageOutOfRange возвращается при запросе страницы каталога за пределами выборки.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	CreateResetTicket(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, token, passwordHash string) (int64, error)

	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error)
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]model.Product, error)

	AddCartItem(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error)
	GetCartByUser(ctx context.Context, userID int64) ([]model.CartItem, error)
	SetCartQuantity(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error)
	DeleteCartItem(ctx context.Context, userID, productID int64) error

	Checkout(ctx context.Context, userID int64) (int64, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// TokenPair — пара access/refresh токенов, выдаваемая при входе.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service содержит бизнес-логику интернет-магазина.
type Service struct {
	repo   Repository
	tokens *auth.TokenManager
}

// NewService создаёт новый сервис с указанным репозиторием и менеджером токенов.
func NewService(repo Repository, tokens *auth.TokenManager) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Register регистрирует нового пользователя с хешированным паролем.
func (s *Service) Register(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.CreateUser(ctx, name, email, hash, role)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:    id,
		Name:  name,
		Email: email,
		Role:  role,
	}, nil
}

// Login проверяет учётные данные и выдаёт пару токенов. Неизвестный email
// и неверный пароль дают один и тот же результат.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh проверяет refresh-токен и выдаёт новый access-токен.
// Сам refresh-токен не ротируется и не отзывается.
func (s *Service) Refresh(refreshToken string) (string, error) {
	id, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return "", err
	}
	if id.Kind != auth.TokenKindRefresh {
		return "", auth.ErrTokenInvalid
	}

	return s.tokens.IssueAccess(id.UserID, id.Role)
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Service) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ForgotPassword создаёт одноразовый токен восстановления пароля
// для указанного email и возвращает его строку.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return "", err
	}

	if err := s.repo.CreateResetTicket(ctx, u.ID, token, time.Now().Add(resetTicketTTL)); err != nil {
		return "", err
	}

	return token, nil
}

// ResetPassword гасит токен восстановления и устанавливает новый пароль.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.repo.ResetPassword(ctx, token, hash)
	return err
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// ProductUpdate описывает частичное обновление товара: nil-поля не меняются.
type ProductUpdate struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int64
	Category    *string
	ImageURL    *string
}

// UpdateProduct применяет частичное обновление к товару каталога.
func (s *Service) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) (*model.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.PriceCents != nil {
		p.PriceCents = *upd.PriceCents
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// ListParams описывает параметры постраничной выборки каталога.
type ListParams struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Page     int
	PageSize int
}

// ListProducts возвращает страницу каталога по указанным фильтрам.
func (s *Service) ListProducts(ctx context.Context, params ListParams) ([]model.Product, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 10
	}

	f := repository.ProductFilter{
		Category: params.Category,
		SortBy:   params.SortBy,
		Offset:   (params.Page - 1) * params.PageSize,
		Limit:    params.PageSize,
	}
	if params.MinPrice != nil {
		cents := model.PriceToCents(*params.MinPrice)
		f.MinPriceCents = &cents
	}
	if params.MaxPrice != nil {
		cents := model.PriceToCents(*params.MaxPrice)
		f.MaxPriceCents = &cents
	}

	products, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}

	if total > 0 && int64(f.Offset) >= total {
		return nil, ErrPageOutOfRange
	}

	return products, nil
}

// GetAllProducts возвращает весь каталог для административного списка.
func (s *Service) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.GetAllProducts(ctx)
}

// SearchProducts ищет товары по подстроке имени.
func (s *Service) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	return s.repo.SearchProducts(ctx, keyword)
}

// AddToCart добавляет товар в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	return s.repo.AddCartItem(ctx, userID, productID, quantity)
}

// GetCart возвращает содержимое корзины пользователя.
func (s *Service) GetCart(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.repo.GetCartByUser(ctx, userID)
}

// UpdateCartQuantity задаёт новое количество для позиции корзины.
func (s *Service) UpdateCartQuantity(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	return s.repo.SetCartQuantity(ctx, userID, productID, quantity)
}

// RemoveFromCart удаляет позицию из корзины пользователя.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return s.repo.DeleteCartItem(ctx, userID, productID)
}

// Checkout превращает корзину пользователя в оформленный заказ
// и возвращает идентификатор нового заказа.
func (s *Service) Checkout(ctx context.Context, userID int64) (int64, error) {
	return s.repo.Checkout(ctx, userID)
}

// GetOrdersByUser возвращает историю заказов пользователя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrderByID возвращает заказ пользователя по идентификатору.
func (s *Service) GetOrderByID(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return s.repo.GetOrderByID(ctx, userID, orderID)
}
