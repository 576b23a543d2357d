package order

import (
	"errors"
	"fmt"
	"time"

	"compras-backend/internal/audit"
	"compras-backend/internal/auth"
	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OrderRequest struct {
	OSNumber        string `json:"os_number"`
	OSDate          string `json:"os_date"` // "2025-12-09"
	RequesterID     uint   `json:"requester_id"`
	ExecutionSector string `json:"execution_sector"`
	OrgUnitID       uint   `json:"org_unit_id"`
	CostCenterID    uint   `json:"cost_center_id"`

	Objective    string `json:"objective"`
	Specialty    string `json:"specialty"`
	ContractType string `json:"contract_type"`
	Priority     string `json:"priority"`

	AccountingAccount string `json:"accounting_account"`
	Classification    string `json:"classification"` // ignorado: sempre derivado da conta

	Description      string `json:"description"`
	Justification    string `json:"justification"`
	Supplier         string `json:"supplier"`
	SupplierEmail    string `json:"supplier_email"`
	PaymentTerms     string `json:"payment_terms"`
	EstimatedValue   string `json:"estimated_value"` // "1234.56"
	BudgetAttachment string `json:"budget_attachment"`
}

type OrderResponse struct {
	ID              uint   `json:"id"`
	OSNumber        string `json:"os_number"`
	OSDate          string `json:"os_date"`
	RequesterID     uint   `json:"requester_id"`
	RequesterName   string `json:"requester_name"`
	ExecutionSector string `json:"execution_sector"`
	OrgUnitID       uint   `json:"org_unit_id"`
	OrgUnitName     string `json:"org_unit_name"`
	OrgUnitCNPJ     string `json:"org_unit_cnpj"`
	CostCenterID    uint   `json:"cost_center_id"`
	CostCenterCode  string `json:"cost_center_code"`

	Objective    string `json:"objective"`
	Specialty    string `json:"specialty"`
	ContractType string `json:"contract_type"`
	Priority     string `json:"priority"`

	AccountingAccount string `json:"accounting_account"`
	Classification    string `json:"classification"`

	Description      string `json:"description"`
	Justification    string `json:"justification"`
	Supplier         string `json:"supplier"`
	SupplierEmail    string `json:"supplier_email"`
	PaymentTerms     string `json:"payment_terms"`
	EstimatedValue   string `json:"estimated_value"`
	BudgetAttachment string `json:"budget_attachment"`

	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	ApprovedAt      *string `json:"approved_at"`
	ApprovedBy      *string `json:"approved_by"`
	RejectionReason string  `json:"rejection_reason"`
}

func toOrderResponse(o *models.PurchaseOrder) OrderResponse {
	resp := OrderResponse{
		ID:                o.ID,
		OSNumber:          o.OSNumber,
		OSDate:            o.OSDate.Format("2006-01-02"),
		RequesterID:       o.RequesterID,
		RequesterName:     o.Requester.Name,
		ExecutionSector:   o.ExecutionSector,
		OrgUnitID:         o.OrgUnitID,
		OrgUnitName:       o.OrgUnit.Name,
		OrgUnitCNPJ:       o.OrgUnit.CNPJ,
		CostCenterID:      o.CostCenterID,
		CostCenterCode:    o.CostCenter.Code,
		Objective:         string(o.Objective),
		Specialty:         string(o.Specialty),
		ContractType:      string(o.ContractType),
		Priority:          string(o.Priority),
		AccountingAccount: string(o.AccountingAccount),
		Classification:    string(o.Classification),
		Description:       o.Description,
		Justification:     o.Justification,
		Supplier:          o.Supplier,
		SupplierEmail:     o.SupplierEmail,
		PaymentTerms:      o.PaymentTerms,
		EstimatedValue:    o.EstimatedValue.StringFixed(2),
		BudgetAttachment:  o.BudgetAttachment,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:         o.UpdatedAt.Format("2006-01-02 15:04:05"),
		RejectionReason:   o.RejectionReason,
	}

	if o.ApprovedAt != nil {
		formatted := o.ApprovedAt.Format("2006-01-02 15:04:05")
		resp.ApprovedAt = &formatted
	}
	if o.ApprovedBy != nil {
		name := o.ApprovedBy.Name
		resp.ApprovedBy = &name
	}

	return resp
}

func parseDraftInput(body *OrderRequest) (DraftInput, error) {
	var in DraftInput

	osDate, err := time.Parse("2006-01-02", body.OSDate)
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "Data da OS deve estar no formato 'YYYY-MM-DD'")
	}

	value, err := decimal.NewFromString(body.EstimatedValue)
	if err != nil {
		return in, fiber.NewError(fiber.StatusBadRequest, "Valor estimado inválido")
	}

	priority := models.Priority(body.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	in = DraftInput{
		OSNumber:          body.OSNumber,
		OSDate:            osDate,
		RequesterID:       body.RequesterID,
		ExecutionSector:   body.ExecutionSector,
		OrgUnitID:         body.OrgUnitID,
		CostCenterID:      body.CostCenterID,
		Objective:         models.PurchaseObjective(body.Objective),
		Specialty:         models.Specialty(body.Specialty),
		ContractType:      models.ContractType(body.ContractType),
		Priority:          priority,
		AccountingAccount: models.AccountingAccount(body.AccountingAccount),
		Classification:    models.BudgetClass(body.Classification),
		Description:       body.Description,
		Justification:     body.Justification,
		Supplier:          body.Supplier,
		SupplierEmail:     body.SupplierEmail,
		PaymentTerms:      body.PaymentTerms,
		EstimatedValue:    value,
		BudgetAttachment:  body.BudgetAttachment,
	}
	return in, nil
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "ID inválido")
	}
	return id, nil
}

func getUserInfo(c *fiber.Ctx) (uint, string, error) {
	userIDVal := c.Locals(auth.CtxUserIDKey)
	userID, ok := userIDVal.(uint)
	if !ok {
		return 0, "", fiber.NewError(fiber.StatusForbidden, "Não foi possível identificar o usuário")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", fiber.NewError(fiber.StatusInternalServerError, "Usuário não encontrado")
	}

	return userID, user.Name, nil
}

func mapServiceError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.NewError(fiber.StatusBadRequest, ve.Msg)
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Pedido não encontrado")
	case errors.Is(err, ErrAlreadyProcessed):
		return fiber.NewError(fiber.StatusConflict, "Esta solicitação já foi processada")
	case errors.Is(err, ErrReasonRequired):
		return fiber.NewError(fiber.StatusBadRequest, "É obrigatório informar o motivo da reprovação")
	case errors.Is(err, ErrNotDraft):
		return fiber.NewError(fiber.StatusConflict, "Somente rascunhos podem ser alterados")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Erro interno ao processar o pedido")
	}
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		in, err := parseDraftInput(&body)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, nil)
		o, err := svc.CreateDraft(in)
		if err != nil {
			return mapServiceError(err)
		}

		userID, userName, uerr := getUserInfo(c)
		if uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    o.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Rascunho criado: OS %s - %s", o.OSNumber, o.Supplier),
				After:       toOrderResponse(o),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(toOrderResponse(o))
	}
}

// PUT /api/orders/:id (somente rascunho)
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		var body OrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		in, err := parseDraftInput(&body)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, nil)

		before, err := svc.Get(id)
		if err != nil {
			return mapServiceError(err)
		}

		o, err := svc.UpdateDraft(id, in)
		if err != nil {
			return mapServiceError(err)
		}

		userID, userName, uerr := getUserInfo(c)
		if uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    o.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Rascunho atualizado: OS %s", o.OSNumber),
				Before:      toOrderResponse(before),
				After:       toOrderResponse(o),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}
		}

		return c.JSON(toOrderResponse(o))
	}
}

// GET /api/orders?status=...&org_unit_id=...&classification=...
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filters ListFilters

		if statusStr := c.Query("status"); statusStr != "" {
			status := models.OrderStatus(statusStr)
			if !status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status inválido")
			}
			filters.Status = status
		}

		if ouStr := c.Query("org_unit_id"); ouStr != "" {
			var ou uint
			if _, err := fmt.Sscan(ouStr, &ou); err != nil || ou == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "org_unit_id inválido")
			}
			filters.OrgUnitID = ou
		}

		if clStr := c.Query("classification"); clStr != "" {
			filters.Classification = models.BudgetClass(clStr)
		}

		svc := NewService(database.DB, nil)
		orders, err := svc.List(filters)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os pedidos")
		}

		resp := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, toOrderResponse(&orders[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/orders/pending (fila de aprovação)
func ListPendingOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc := NewService(database.DB, nil)
		orders, err := svc.ListPending()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as pendências")
		}

		resp := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, toOrderResponse(&orders[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/orders/awaiting-invoice (aprovados sem NF)
func ListAwaitingInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc := NewService(database.DB, nil)
		orders, err := svc.ListAwaitingInvoice()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os pedidos")
		}

		resp := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			resp = append(resp, toOrderResponse(&orders[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, nil)
		o, err := svc.Get(id)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(toOrderResponse(o))
	}
}

// POST /api/orders/:id/submit
func SubmitOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, nil)
		o, err := svc.Submit(id)
		if err != nil {
			return mapServiceError(err)
		}

		userID, userName, uerr := getUserInfo(c)
		if uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    o.ID,
				Action:      models.AuditActionSubmit,
				Description: fmt.Sprintf("OS %s enviada para aprovação", o.OSNumber),
				After:       toOrderResponse(o),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}
		}

		return c.JSON(toOrderResponse(o))
	}
}

// DELETE /api/orders/:id (a NF vinculada cai em cascata)
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, nil)

		before, err := svc.Get(id)
		if err != nil {
			return mapServiceError(err)
		}

		if err := svc.Delete(id); err != nil {
			return mapServiceError(err)
		}

		userID, userName, uerr := getUserInfo(c)
		if uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Pedido excluído: OS %s", before.OSNumber),
				Before:      toOrderResponse(before),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
