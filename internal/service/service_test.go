package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/storefront-system/internal/auth"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
)

type stubRepo struct {
	createUserID  int64
	createUserErr error

	getUser    *model.User
	getUserErr error

	resetTicketUserID int64
	resetTicketToken  string
	resetTicketErr    error

	resetPasswordHash string
	resetPasswordErr  error

	products    []model.Product
	total       int64
	listErr     error
	listFilter  repository.ProductFilter
	product     *model.Product
	productErr  error
	updatedProd *model.Product

	cartItem    *model.CartItem
	cartItemErr error

	checkoutOrderID int64
	checkoutErr     error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) CreateResetTicket(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	s.resetTicketUserID = userID
	s.resetTicketToken = token
	return s.resetTicketErr
}

func (s *stubRepo) ResetPassword(ctx context.Context, token, passwordHash string) (int64, error) {
	s.resetPasswordHash = passwordHash
	return s.resetTicketUserID, s.resetPasswordErr
}

func (s *stubRepo) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	return 1, s.productErr
}

func (s *stubRepo) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.updatedProd = p
	return s.productErr
}

func (s *stubRepo) DeleteProduct(ctx context.Context, id int64) error { return s.productErr }

func (s *stubRepo) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	s.listFilter = f
	return s.products, s.total, s.listErr
}

func (s *stubRepo) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	return s.products, s.listErr
}

func (s *stubRepo) SearchProducts(ctx context.Context, keyword string) ([]model.Product, error) {
	return s.products, s.listErr
}

func (s *stubRepo) AddCartItem(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	return s.cartItem, s.cartItemErr
}

func (s *stubRepo) GetCartByUser(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return nil, s.cartItemErr
}

func (s *stubRepo) SetCartQuantity(ctx context.Context, userID, productID, quantity int64) (*model.CartItem, error) {
	return s.cartItem, s.cartItemErr
}

func (s *stubRepo) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	return s.cartItemErr
}

func (s *stubRepo) Checkout(ctx context.Context, userID int64) (int64, error) {
	return s.checkoutOrderID, s.checkoutErr
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrderByID(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return nil, repository.ErrOrderNotFound
}

func newTestService(repo Repository) *Service {
	return NewService(repo, auth.NewTokenManager("test-secret", 30*time.Minute))
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := &stubRepo{createUserID: 7}
	svc := newTestService(repo)

	u, err := svc.Register(context.Background(), "Ivan", "ivan@example.com", "Secret#1", model.RoleUser)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if u.ID != 7 {
		t.Errorf("user ID = %d, want 7", u.ID)
	}
	if u.PasswordHash == "Secret#1" {
		t.Errorf("plaintext password must not be stored")
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("Secret#1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	repo := &stubRepo{
		getUser: &model.User{ID: 42, Email: "ivan@example.com", PasswordHash: hash, Role: model.RoleUser},
	}
	svc := newTestService(repo)

	pair, err := svc.Login(context.Background(), "ivan@example.com", "Secret#1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("both tokens must be issued")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("access and refresh tokens must differ")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("Secret#1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	repo := &stubRepo{
		getUser: &model.User{ID: 42, PasswordHash: hash, Role: model.RoleUser},
	}
	svc := newTestService(repo)

	_, err = svc.Login(context.Background(), "ivan@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := &stubRepo{getUserErr: repository.ErrUserNotFound}
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), "nobody@example.com", "Secret#1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 30*time.Minute)
	svc := NewService(&stubRepo{}, tokens)

	refresh, err := tokens.IssueRefresh(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	access, err := svc.Refresh(refresh)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	id, err := tokens.Verify(access)
	if err != nil {
		t.Fatalf("verify issued access token: %v", err)
	}
	if id.Kind != auth.TokenKindAccess {
		t.Errorf("issued token kind = %q, want access", id.Kind)
	}
	if id.UserID != 42 {
		t.Errorf("issued token subject = %d, want 42", id.UserID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 30*time.Minute)
	svc := NewService(&stubRepo{}, tokens)

	access, err := tokens.IssueAccess(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	_, err = svc.Refresh(access)
	if !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestForgotPasswordCreatesTicket(t *testing.T) {
	repo := &stubRepo{getUser: &model.User{ID: 9}}
	svc := newTestService(repo)

	token, err := svc.ForgotPassword(context.Background(), "ivan@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}

	if token == "" {
		t.Fatalf("reset token must not be empty")
	}
	if repo.resetTicketUserID != 9 {
		t.Errorf("ticket owner = %d, want 9", repo.resetTicketUserID)
	}
	if repo.resetTicketToken != token {
		t.Errorf("persisted token must match the returned one")
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	repo := &stubRepo{getUserErr: repository.ErrUserNotFound}
	svc := newTestService(repo)

	_, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestResetPasswordStoresHash(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	if err := svc.ResetPassword(context.Background(), "token", "NewPass#1"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	if repo.resetPasswordHash == "" || repo.resetPasswordHash == "NewPass#1" {
		t.Fatalf("new password must be stored hashed")
	}
}

func TestResetPasswordInvalidTicket(t *testing.T) {
	repo := &stubRepo{resetPasswordErr: repository.ErrResetTicketInvalid}
	svc := newTestService(repo)

	err := svc.ResetPassword(context.Background(), "bad-token", "NewPass#1")
	if !errors.Is(err, repository.ErrResetTicketInvalid) {
		t.Fatalf("err = %v, want ErrResetTicketInvalid", err)
	}
}

func TestListProductsPageOutOfRange(t *testing.T) {
	repo := &stubRepo{total: 5}
	svc := newTestService(repo)

	_, err := svc.ListProducts(context.Background(), ListParams{Page: 3, PageSize: 10})
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("err = %v, want ErrPageOutOfRange", err)
	}
}

func TestListProductsConvertsPricesToCents(t *testing.T) {
	repo := &stubRepo{total: 1}
	svc := newTestService(repo)

	minPrice := 9.99
	maxPrice := 100.0
	_, err := svc.ListProducts(context.Background(), ListParams{
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
		Page:     1,
		PageSize: 10,
	})
	if err != nil {
		t.Fatalf("ListProducts error: %v", err)
	}

	if repo.listFilter.MinPriceCents == nil || *repo.listFilter.MinPriceCents != 999 {
		t.Errorf("MinPriceCents = %v, want 999", repo.listFilter.MinPriceCents)
	}
	if repo.listFilter.MaxPriceCents == nil || *repo.listFilter.MaxPriceCents != 10000 {
		t.Errorf("MaxPriceCents = %v, want 10000", repo.listFilter.MaxPriceCents)
	}
}

func TestUpdateProductPartial(t *testing.T) {
	repo := &stubRepo{
		product: &model.Product{
			ID:         3,
			Name:       "Old name",
			PriceCents: 1000,
			Stock:      5,
		},
	}
	svc := newTestService(repo)

	newPrice := int64(1500)
	p, err := svc.UpdateProduct(context.Background(), 3, ProductUpdate{PriceCents: &newPrice})
	if err != nil {
		t.Fatalf("UpdateProduct error: %v", err)
	}

	if p.PriceCents != 1500 {
		t.Errorf("PriceCents = %d, want 1500", p.PriceCents)
	}
	if p.Name != "Old name" {
		t.Errorf("Name = %q, must be unchanged", p.Name)
	}
	if p.Stock != 5 {
		t.Errorf("Stock = %d, must be unchanged", p.Stock)
	}
}

func TestAddToCartValidation(t *testing.T) {
	svc := newTestService(&stubRepo{})

	if _, err := svc.AddToCart(context.Background(), 1, 2, 0); err == nil {
		t.Fatalf("expected error for zero quantity")
	}
	if _, err := svc.AddToCart(context.Background(), 1, 2, -3); err == nil {
		t.Fatalf("expected error for negative quantity")
	}
}

func TestCheckoutPropagatesEmptyCart(t *testing.T) {
	repo := &stubRepo{checkoutErr: repository.ErrEmptyCart}
	svc := newTestService(repo)

	_, err := svc.Checkout(context.Background(), 1)
	if !errors.Is(err, repository.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}
