package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusDraft     OrderStatus = "RASCUNHO"
	StatusPending   OrderStatus = "SOLICITADO" // aguardando aprovação
	StatusApproved  OrderStatus = "APROVADO"
	StatusRejected  OrderStatus = "REPROVADO"
	StatusCompleted OrderStatus = "CONCLUIDO" // NF lançada
)

type BudgetClass string

const (
	ClassCapex BudgetClass = "CAPEX"
	ClassOpex  BudgetClass = "OPEX"
)

type PurchaseObjective string

const (
	ObjectiveFixedAsset    PurchaseObjective = "IMOBILIZADO"
	ObjectiveMaterial      PurchaseObjective = "MATERIAL"
	ObjectiveConstruction  PurchaseObjective = "OBRAS"
	ObjectiveRenovOpex     PurchaseObjective = "REFORMA_OPEX"
	ObjectiveRenovCapex    PurchaseObjective = "REFORMA_CAPEX"
	ObjectivePreventiveMnt PurchaseObjective = "MANUT_PREVENTIVA"
	ObjectiveCorrectiveMnt PurchaseObjective = "MANUT_CORRETIVA"
)

type Specialty string

const (
	SpecialtyElectrical    Specialty = "ELETRICA"
	SpecialtyHydraulic     Specialty = "HIDRAULICA"
	SpecialtyClinicalEng   Specialty = "ENG_CLINICA"
	SpecialtyCivil         Specialty = "OBRAS_CIVIL"
	SpecialtyOperational   Specialty = "OPERACIONAL"
	SpecialtyRefrigeration Specialty = "REFRIGERACAO"
	SpecialtyMedicalGases  Specialty = "GASES"
	SpecialtyUtilities     Specialty = "UTILITIES"
)

type AccountingAccount string

const (
	// OPEX
	AccountWaterSewage     AccountingAccount = "AGUA_ESGOTO"
	AccountEnergy          AccountingAccount = "ENERGIA"
	AccountMedicalGases    AccountingAccount = "GASES_MED"
	AccountEquipRental     AccountingAccount = "ALUGUEL_EQUIP"
	AccountBuildingMnt     AccountingAccount = "MANUT_PREDIAL"
	AccountEquipMnt        AccountingAccount = "MANUT_EQUIP"
	AccountFurnitureMnt    AccountingAccount = "MANUT_MOVEIS"
	// CAPEX / demais
	AccountInvestment AccountingAccount = "INVESTIMENTO"
)

type ContractType string

const (
	ContractRecurring ContractType = "RECORRENTE"
	ContractOneOff    ContractType = "PONTUAL"
)

type Priority string

const (
	PriorityLow    Priority = "BAIXA"
	PriorityMedium Priority = "MEDIA"
	PriorityHigh   Priority = "ALTA"
	PriorityUrgent Priority = "URGENTE"
)

// Contas que caem em OPEX; todo o resto (incluindo INVESTIMENTO) é CAPEX.
var opexAccounts = map[AccountingAccount]bool{
	AccountWaterSewage:  true,
	AccountEnergy:       true,
	AccountMedicalGases: true,
	AccountEquipRental:  true,
	AccountBuildingMnt:  true,
	AccountEquipMnt:     true,
	AccountFurnitureMnt: true,
}

var validAccounts = map[AccountingAccount]bool{
	AccountWaterSewage:  true,
	AccountEnergy:       true,
	AccountMedicalGases: true,
	AccountEquipRental:  true,
	AccountBuildingMnt:  true,
	AccountEquipMnt:     true,
	AccountFurnitureMnt: true,
	AccountInvestment:   true,
}

// ClassifyAccount deriva a classificação CAPEX/OPEX da conta contábil.
// Função pura; é a única fonte da classificação de um pedido.
func ClassifyAccount(acc AccountingAccount) BudgetClass {
	if opexAccounts[acc] {
		return ClassOpex
	}
	return ClassCapex
}

func (a AccountingAccount) Valid() bool {
	return validAccounts[a]
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// PurchaseOrder: o coração do sistema, cobre o fluxo
// rascunho -> solicitado -> aprovado/reprovado -> concluído.
type PurchaseOrder struct {
	ID uint `gorm:"primaryKey"`

	// Identificação (cabeçalho da OS)
	OSNumber        string    `gorm:"size:50;not null"`
	OSDate          time.Time `gorm:"not null"`
	RequesterID     uint      `gorm:"index;not null"`
	Requester       Requester `gorm:"constraint:OnDelete:RESTRICT"`
	ExecutionSector string    `gorm:"size:100;not null"` // local de aplicação
	OrgUnitID       uint      `gorm:"index;not null"`
	OrgUnit         OrgUnit `gorm:"constraint:OnDelete:RESTRICT"`
	CostCenterID    uint    `gorm:"index;not null"`
	CostCenter      CostCenter `gorm:"constraint:OnDelete:RESTRICT"`

	// Classificação do pedido
	Objective    PurchaseObjective `gorm:"size:30;not null"`
	Specialty    Specialty         `gorm:"size:30;not null"`
	ContractType ContractType      `gorm:"size:20;not null"`
	Priority     Priority          `gorm:"size:10;not null;default:MEDIA"`

	// Classificação contábil. Classification é sempre derivada de
	// AccountingAccount via ClassifyAccount em todo caminho de escrita.
	AccountingAccount AccountingAccount `gorm:"size:30;not null"`
	Classification    BudgetClass       `gorm:"size:10;not null"`

	// Detalhes e fornecedor
	Description      string          `gorm:"type:text;not null"`
	Justification    string          `gorm:"type:text;not null"`
	Supplier         string          `gorm:"size:150;not null"`
	SupplierEmail    string          `gorm:"size:100"`
	PaymentTerms     string          `gorm:"size:100;not null"` // ex: boleto 30 dias, pix
	EstimatedValue   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	BudgetAttachment string          `gorm:"size:255;not null"` // orçamento de apoio (obrigatório)

	// Controle
	Status          OrderStatus `gorm:"size:20;not null;default:RASCUNHO;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	ApprovedByID    *uint
	ApprovedBy      *User  `gorm:"constraint:OnDelete:SET NULL"`
	RejectionReason string `gorm:"type:text"`
}

// Reclassify recalcula a classificação a partir da conta contábil.
// Deve ser chamado antes de qualquer persist; valores vindos do
// chamador nunca são confiáveis.
func (o *PurchaseOrder) Reclassify() {
	o.Classification = ClassifyAccount(o.AccountingAccount)
}
