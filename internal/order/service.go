package order

import (
	"errors"
	"log"
	"strings"
	"time"

	"compras-backend/internal/document"
	"compras-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("pedido não encontrado")
	ErrAlreadyProcessed = errors.New("esta solicitação já foi processada")
	ErrReasonRequired   = errors.New("é obrigatório informar o motivo da reprovação")
	ErrNotDraft         = errors.New("somente rascunhos podem ser alterados")
)

// ValidationError: entrada rejeitada antes de qualquer mutação.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Service concentra o fluxo de aprovação: submit, aprovar, reprovar.
// As transições de decisão usam compare-and-set no banco (WHERE status =
// SOLICITADO), então dois aprovadores concorrentes nunca decidem o mesmo
// pedido duas vezes.
type Service struct {
	db   *gorm.DB
	docs document.Generator
}

func NewService(db *gorm.DB, docs document.Generator) *Service {
	return &Service{db: db, docs: docs}
}

type DraftInput struct {
	OSNumber        string
	OSDate          time.Time
	RequesterID     uint
	ExecutionSector string
	OrgUnitID       uint
	CostCenterID    uint

	Objective    models.PurchaseObjective
	Specialty    models.Specialty
	ContractType models.ContractType
	Priority     models.Priority

	AccountingAccount models.AccountingAccount
	// Classification do chamador é ignorada; a classificação é sempre
	// derivada da conta contábil.
	Classification models.BudgetClass

	Description      string
	Justification    string
	Supplier         string
	SupplierEmail    string
	PaymentTerms     string
	EstimatedValue   decimal.Decimal
	BudgetAttachment string
}

func (in *DraftInput) validate() error {
	if strings.TrimSpace(in.OSNumber) == "" {
		return invalid("número da OS é obrigatório")
	}
	if in.OSDate.IsZero() {
		return invalid("data da OS é obrigatória")
	}
	if in.RequesterID == 0 {
		return invalid("solicitante é obrigatório")
	}
	if strings.TrimSpace(in.ExecutionSector) == "" {
		return invalid("setor de execução é obrigatório")
	}
	if in.OrgUnitID == 0 {
		return invalid("unidade é obrigatória")
	}
	if in.CostCenterID == 0 {
		return invalid("centro de custo é obrigatório")
	}
	if !in.AccountingAccount.Valid() {
		return invalid("conta contábil inválida")
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("descrição do material/serviço é obrigatória")
	}
	if strings.TrimSpace(in.Justification) == "" {
		return invalid("justificativa da compra é obrigatória")
	}
	if strings.TrimSpace(in.Supplier) == "" {
		return invalid("nome do fornecedor é obrigatório")
	}
	if strings.TrimSpace(in.PaymentTerms) == "" {
		return invalid("condição de pagamento é obrigatória")
	}
	if !in.EstimatedValue.IsPositive() {
		return invalid("valor estimado deve ser maior que zero")
	}
	if strings.TrimSpace(in.BudgetAttachment) == "" {
		return invalid("orçamento de apoio é obrigatório")
	}
	switch in.ContractType {
	case models.ContractRecurring, models.ContractOneOff:
	default:
		return invalid("tipo de contrato inválido")
	}
	return nil
}

func (in *DraftInput) apply(o *models.PurchaseOrder) {
	o.OSNumber = strings.TrimSpace(in.OSNumber)
	o.OSDate = in.OSDate
	o.RequesterID = in.RequesterID
	o.ExecutionSector = strings.TrimSpace(in.ExecutionSector)
	o.OrgUnitID = in.OrgUnitID
	o.CostCenterID = in.CostCenterID
	o.Objective = in.Objective
	o.Specialty = in.Specialty
	o.ContractType = in.ContractType
	o.Priority = in.Priority
	if o.Priority == "" {
		o.Priority = models.PriorityMedium
	}
	o.AccountingAccount = in.AccountingAccount
	o.Description = in.Description
	o.Justification = in.Justification
	o.Supplier = strings.TrimSpace(in.Supplier)
	o.SupplierEmail = strings.TrimSpace(in.SupplierEmail)
	o.PaymentTerms = strings.TrimSpace(in.PaymentTerms)
	o.EstimatedValue = in.EstimatedValue
	o.BudgetAttachment = in.BudgetAttachment

	// Regra de negócio: CAPEX/OPEX sai da conta contábil, sempre.
	o.Reclassify()
}

func (s *Service) CreateDraft(in DraftInput) (*models.PurchaseOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var o models.PurchaseOrder
	in.apply(&o)
	o.Status = models.StatusDraft

	if err := s.db.Create(&o).Error; err != nil {
		return nil, err
	}
	return s.Get(o.ID)
}

func (s *Service) UpdateDraft(id uint, in DraftInput) (*models.PurchaseOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var o models.PurchaseOrder
	if err := s.db.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.Status != models.StatusDraft {
		return nil, ErrNotDraft
	}

	in.apply(&o)
	if err := s.db.Save(&o).Error; err != nil {
		return nil, err
	}
	return s.Get(o.ID)
}

// Submit envia o rascunho para aprovação (RASCUNHO -> SOLICITADO).
func (s *Service) Submit(id uint) (*models.PurchaseOrder, error) {
	res := s.db.Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, models.StatusDraft).
		Update("status", models.StatusPending)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.conflictOrNotFound(id)
	}
	return s.Get(id)
}

// DocumentResult: resultado da geração do documento de aprovação.
// Generated=false indica modo degradado, nunca erro duro.
type DocumentResult struct {
	Generated   bool
	Filename    string
	Fingerprint string
	Content     []byte
	Notice      string
}

// Approve decide o pedido (SOLICITADO -> APROVADO) e dispara a geração do
// documento. A transição é um único UPDATE condicionado ao status atual;
// se outro aprovador chegou antes, nada é alterado e o chamador recebe
// ErrAlreadyProcessed.
func (s *Service) Approve(id uint, approverID uint) (*models.PurchaseOrder, *DocumentResult, error) {
	now := time.Now()
	res := s.db.Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":         models.StatusApproved,
			"approved_by_id": approverID,
			"approved_at":    now,
		})
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil, s.conflictOrNotFound(id)
	}

	o, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	// A aprovação já está gravada; falha do gerador degrada a resposta.
	return o, s.generateDocument(o), nil
}

// Reject reprova o pedido (SOLICITADO -> REPROVADO). O motivo é
// obrigatório e os campos de auditoria da decisão são preenchidos.
func (s *Service) Reject(id uint, approverID uint, reason string) (*models.PurchaseOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	now := time.Now()
	res := s.db.Model(&models.PurchaseOrder{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":           models.StatusRejected,
			"rejection_reason": reason,
			"approved_by_id":   approverID,
			"approved_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.conflictOrNotFound(id)
	}
	return s.Get(id)
}

func (s *Service) Delete(id uint) error {
	res := s.db.Delete(&models.PurchaseOrder{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Get(id uint) (*models.PurchaseOrder, error) {
	var o models.PurchaseOrder
	err := s.db.
		Preload("Requester").
		Preload("OrgUnit").
		Preload("CostCenter").
		Preload("ApprovedBy").
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

type ListFilters struct {
	Status         models.OrderStatus
	OrgUnitID      uint
	Classification models.BudgetClass
}

func (s *Service) List(f ListFilters) ([]models.PurchaseOrder, error) {
	dbq := s.db.
		Preload("Requester").
		Preload("OrgUnit").
		Preload("CostCenter").
		Preload("ApprovedBy")

	if f.Status != "" {
		dbq = dbq.Where("status = ?", f.Status)
	}
	if f.OrgUnitID != 0 {
		dbq = dbq.Where("org_unit_id = ?", f.OrgUnitID)
	}
	if f.Classification != "" {
		dbq = dbq.Where("classification = ?", f.Classification)
	}

	var orders []models.PurchaseOrder
	if err := dbq.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPending: fila do aprovador, mais recentes primeiro.
func (s *Service) ListPending() ([]models.PurchaseOrder, error) {
	return s.List(ListFilters{Status: models.StatusPending})
}

// ListAwaitingInvoice: pedidos aprovados e ainda sem NF. É o universo
// oferecido ao financeiro; a unicidade é revalidada no lançamento.
func (s *Service) ListAwaitingInvoice() ([]models.PurchaseOrder, error) {
	sub := s.db.Model(&models.Invoice{}).Select("purchase_order_id")

	var orders []models.PurchaseOrder
	err := s.db.
		Preload("Requester").
		Preload("OrgUnit").
		Preload("CostCenter").
		Where("status = ? AND id NOT IN (?)", models.StatusApproved, sub).
		Order("approved_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) generateDocument(o *models.PurchaseOrder) *DocumentResult {
	if s.docs == nil {
		return &DocumentResult{
			Generated: false,
			Notice:    "Pedido aprovado, mas o gerador de documentos não está configurado.",
		}
	}

	doc, err := s.docs.Generate(o)
	if err != nil {
		log.Printf("Geração do PDF do pedido %d falhou (aprovação mantida): %v", o.ID, err)
		return &DocumentResult{
			Generated: false,
			Notice:    "Pedido aprovado, mas o PDF não pôde ser gerado: " + err.Error(),
		}
	}

	return &DocumentResult{
		Generated:   true,
		Filename:    doc.Filename,
		Fingerprint: doc.Fingerprint,
		Content:     doc.Content,
	}
}

func (s *Service) conflictOrNotFound(id uint) error {
	var count int64
	if err := s.db.Model(&models.PurchaseOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrAlreadyProcessed
}
