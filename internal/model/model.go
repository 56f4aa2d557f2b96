// Package model содержит доменные сущности интернет-магазина.
package model

import (
	"math"
	"time"
)

// Role описывает роль учётной записи.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid сообщает, является ли значение одной из двух известных ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// ResetTicket представляет одноразовый токен восстановления пароля.
type ResetTicket struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
}

// Product описывает товар каталога. Цена хранится в копейках.
type Product struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Stock       int64
	Category    string
	ImageURL    string
}

// CartItem описывает позицию корзины пользователя,
// уникальную по паре (пользователь, товар).
type CartItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int64
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order описывает оформленный заказ. После создания изменяется только статус.
type Order struct {
	ID         int64
	UserID     int64
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem — неизменяемый снимок позиции заказа. Цена фиксируется
// в момент оформления и после этого не пересчитывается.
type OrderItem struct {
	ProductID       int64
	Quantity        int64
	PriceAtPurchase int64
}

// PriceToCents переводит цену из денежных единиц в копейки с округлением
// до ближайшей копейки. Денежная арифметика выполняется только в копейках.
func PriceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CentsToPrice переводит копейки обратно в денежные единицы для ответа API.
func CentsToPrice(cents int64) float64 {
	return float64(cents) / 100
}
