package invoice

import (
	"errors"
	"strings"
	"time"

	"compras-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound    = errors.New("pedido não encontrado")
	ErrDuplicateInvoice = errors.New("este pedido já possui nota fiscal lançada")
	ErrAssetTagRequired = errors.New("plaqueta de patrimônio é obrigatória para pedidos CAPEX")
	ErrNotFound         = errors.New("nota fiscal não encontrada")
)

// ValidationError: entrada rejeitada antes de qualquer mutação.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Service faz a conciliação: lança a NF contra o pedido e encerra o ciclo.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type RecordInput struct {
	PurchaseOrderID uint
	Number          string
	FluigNumber     string
	IssueDate       time.Time
	DueDate         *time.Time
	FinalValue      decimal.Decimal
	EntryType       models.InvoiceEntryType
	AssetTag        string
	Attachment      string
}

func (in *RecordInput) validate() error {
	if in.PurchaseOrderID == 0 {
		return invalid("pedido de compra é obrigatório")
	}
	if strings.TrimSpace(in.Number) == "" {
		return invalid("número da NF é obrigatório")
	}
	if in.IssueDate.IsZero() {
		return invalid("data de emissão é obrigatória")
	}
	if !in.FinalValue.IsPositive() {
		return invalid("valor final deve ser maior que zero")
	}
	if !in.EntryType.Valid() {
		return invalid("tipo de lançamento inválido")
	}
	if strings.TrimSpace(in.Attachment) == "" {
		return invalid("arquivo da NF é obrigatório")
	}
	return nil
}

// Record lança a NF e, na mesma transação, marca o pedido como CONCLUIDO.
// A conclusão é incondicional: seja qual for o status anterior, o
// lançamento da NF encerra o pedido. A unicidade (uma NF por pedido) é
// revalidada aqui, além do índice único no banco, porque a listagem de
// pedidos elegíveis é só um filtro de consulta.
func (s *Service) Record(in RecordInput, postedByID uint) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created models.Invoice

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.PurchaseOrder
		if err := tx.First(&order, in.PurchaseOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Invoice{}).
			Where("purchase_order_id = ?", order.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateInvoice
		}

		// Plaqueta exigida quando o pedido é imobilizado (CAPEX).
		if order.Classification == models.ClassCapex && strings.TrimSpace(in.AssetTag) == "" {
			return ErrAssetTagRequired
		}

		created = models.Invoice{
			PurchaseOrderID: order.ID,
			Number:          strings.TrimSpace(in.Number),
			FluigNumber:     strings.TrimSpace(in.FluigNumber),
			IssueDate:       in.IssueDate,
			DueDate:         in.DueDate,
			FinalValue:      in.FinalValue,
			EntryType:       in.EntryType,
			AssetTag:        strings.TrimSpace(in.AssetTag),
			Attachment:      in.Attachment,
			PostedByID:      &postedByID,
		}

		if err := tx.Create(&created).Error; err != nil {
			// Corrida entre dois lançamentos: o índice único segura o segundo.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateInvoice
			}
			return err
		}

		return tx.Model(&models.PurchaseOrder{}).
			Where("id = ?", order.ID).
			Update("status", models.StatusCompleted).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(created.ID)
}

func (s *Service) Get(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.
		Preload("PurchaseOrder").
		Preload("PurchaseOrder.OrgUnit").
		Preload("PurchaseOrder.Requester").
		Preload("PostedBy").
		First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Service) List() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.
		Preload("PurchaseOrder").
		Preload("PurchaseOrder.OrgUnit").
		Preload("PostedBy").
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
