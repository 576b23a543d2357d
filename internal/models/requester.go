package models

import "time"

// Requester: pessoa autorizada a abrir solicitações de compra.
// O vínculo com User é opcional (nem todo solicitante tem login).
type Requester struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Position  string `gorm:"size:100"`
	Email     string `gorm:"size:100;not null"`
	Phone     string `gorm:"size:20"` // telefone / WhatsApp
	UserID    *uint
	User      *User `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
