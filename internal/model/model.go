// Package model содержит доменные сущности сервиса учёта долгов.
package model

import "time"

// RetailerStatus описывает состояние учётной записи магазина.
type RetailerStatus string

const (
	RetailerStatusActive   RetailerStatus = "active"
	RetailerStatusInactive RetailerStatus = "inactive"
)

// Retailer представляет магазин, который ведёт книгу долгов.
type Retailer struct {
	ID           int64
	Phone        string
	ShopName     string
	Address      string
	Status       RetailerStatus
	CreatedAt    time.Time
	LastActiveAt *time.Time
}

// Customer описывает покупателя (должника) конкретного магазина.
type Customer struct {
	ID         int64
	RetailerID int64
	Name       string
	Phone      string
	Address    string
	CreatedAt  time.Time
}

// EventType описывает тип записи в книге долгов.
type EventType string

const (
	EventTypeCredit  EventType = "credit"
	EventTypePayment EventType = "payment"
)

// LedgerEvent неизменяемая запись о выдаче в долг или об оплате.
// Суммы хранятся в минимальных единицах валюты (пайсах).
type LedgerEvent struct {
	ID           int64
	RetailerID   int64
	CustomerID   int64
	Type         EventType
	Amount       int64
	EntryDate    time.Time
	DueDays      *int
	DueDate      *time.Time
	ReminderDate *time.Time
	Note         string
	CreatedAt    time.Time
}

// AdminUser учётная запись администратора.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash []byte
	Email        string
	LastLoginAt  *time.Time
}

// AuditEntry запись журнала действий администратора.
type AuditEntry struct {
	ID        int64
	AdminUser string
	Action    string
	Details   string
	IPAddress string
	CreatedAt time.Time
}

// RetailerBalance задолженность покупателя перед одним магазином.
type RetailerBalance struct {
	RetailerID  int64
	ShopName    string
	CustomerID  int64
	Outstanding int64
}
