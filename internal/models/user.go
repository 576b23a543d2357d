package models

import "time"

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleApprover  UserRole = "aprovador"
	RoleFinance   UserRole = "financeiro"
	RoleRequester UserRole = "solicitante"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
