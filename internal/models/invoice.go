package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceEntryType string

const (
	EntryLinkedProcess   InvoiceEntryType = "PROCESSO_VINCULADO"
	EntryRegularization  InvoiceEntryType = "REGULARIZACAO"
	EntryContractMeasure InvoiceEntryType = "MEDICAO_CONTRATO"
	EntryMiscellaneous   InvoiceEntryType = "DIVERSOS"
)

func (t InvoiceEntryType) Valid() bool {
	switch t {
	case EntryLinkedProcess, EntryRegularization, EntryContractMeasure, EntryMiscellaneous:
		return true
	}
	return false
}

// Invoice: nota fiscal lançada contra um pedido aprovado. Relação 1:1
// com PurchaseOrder; o lançamento encerra o ciclo do pedido.
type Invoice struct {
	ID              uint          `gorm:"primaryKey"`
	PurchaseOrderID uint          `gorm:"uniqueIndex;not null"`
	PurchaseOrder   PurchaseOrder `gorm:"constraint:OnDelete:CASCADE"`

	Number      string `gorm:"size:50;not null"`
	FluigNumber string `gorm:"size:50"` // nº do processo externo (Fluig), opcional

	IssueDate  time.Time `gorm:"not null"`
	DueDate    *time.Time
	FinalValue decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	EntryType  InvoiceEntryType `gorm:"size:30;not null"`

	// Plaqueta de patrimônio: obrigatória quando o pedido é CAPEX.
	AssetTag   string `gorm:"size:50"`
	Attachment string `gorm:"size:255;not null"`

	CreatedAt  time.Time // data de lançamento, imutável
	PostedByID *uint
	PostedBy   *User `gorm:"constraint:OnDelete:SET NULL"`
}
