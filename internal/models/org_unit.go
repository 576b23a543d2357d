package models

import "time"

// OrgUnit: unidade do grupo (hospital, clínica) com seu CNPJ próprio.
// Dado cadastral, referenciado pelos pedidos de compra.
type OrgUnit struct {
	ID           uint   `gorm:"primaryKey"`
	Abbreviation string `gorm:"size:20;not null"` // sigla, ex: HMI, PMA
	Name         string `gorm:"size:100;not null"`
	LegalName    string `gorm:"size:150;not null"` // razão social
	CNPJ         string `gorm:"size:20;not null"`  // 00.000.000/0000-00
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
