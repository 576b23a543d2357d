package invoice

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

type InvoiceRequest struct {
	PurchaseOrderID uint    `json:"purchase_order_id"`
	Number          string  `json:"number"`
	FluigNumber     string  `json:"fluig_number"`
	IssueDate       string  `json:"issue_date"` // "2025-12-09"
	DueDate         *string `json:"due_date"`
	FinalValue      string  `json:"final_value"`
	EntryType       string  `json:"entry_type"`
	AssetTag        string  `json:"asset_tag"` // obrigatório quando o pedido é CAPEX
	Attachment      string  `json:"attachment"`
}

type InvoiceResponse struct {
	ID              uint    `json:"id"`
	PurchaseOrderID uint    `json:"purchase_order_id"`
	OSNumber        string  `json:"os_number"`
	OrderStatus     string  `json:"order_status"`
	Number          string  `json:"number"`
	FluigNumber     string  `json:"fluig_number"`
	IssueDate       string  `json:"issue_date"`
	DueDate         *string `json:"due_date"`
	FinalValue      string  `json:"final_value"`
	EntryType       string  `json:"entry_type"`
	AssetTag        string  `json:"asset_tag"`
	Attachment      string  `json:"attachment"`
	PostedAt        string  `json:"posted_at"`
	PostedBy        *string `json:"posted_by"`
}

func toInvoiceResponse(inv *models.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:              inv.ID,
		PurchaseOrderID: inv.PurchaseOrderID,
		OSNumber:        inv.PurchaseOrder.OSNumber,
		OrderStatus:     string(inv.PurchaseOrder.Status),
		Number:          inv.Number,
		FluigNumber:     inv.FluigNumber,
		IssueDate:       inv.IssueDate.Format("2006-01-02"),
		FinalValue:      inv.FinalValue.StringFixed(2),
		EntryType:       string(inv.EntryType),
		AssetTag:        inv.AssetTag,
		Attachment:      inv.Attachment,
		PostedAt:        inv.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	if inv.DueDate != nil {
		formatted := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &formatted
	}
	if inv.PostedBy != nil {
		name := inv.PostedBy.Name
		resp.PostedBy = &name
	}

	return resp
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
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Pedido não encontrado")
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Nota fiscal não encontrada")
	case errors.Is(err, ErrDuplicateInvoice):
		return fiber.NewError(fiber.StatusConflict, "Este pedido já possui nota fiscal lançada")
	case errors.Is(err, ErrAssetTagRequired):
		return fiber.NewError(fiber.StatusBadRequest, "Plaqueta de patrimônio é obrigatória para pedidos CAPEX")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Erro interno ao processar a nota fiscal")
	}
}

// POST /api/invoices
// Lança a NF contra um pedido aprovado e encerra o ciclo dele.
func CreateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body InvoiceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		issueDate, err := time.Parse("2006-01-02", body.IssueDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Data de emissão deve estar no formato 'YYYY-MM-DD'")
		}

		var dueDate *time.Time
		if body.DueDate != nil && *body.DueDate != "" {
			d, err := time.Parse("2006-01-02", *body.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Data de vencimento deve estar no formato 'YYYY-MM-DD'")
			}
			dueDate = &d
		}

		value, err := decimal.NewFromString(body.FinalValue)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Valor final inválido")
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB)
		inv, err := svc.Record(RecordInput{
			PurchaseOrderID: body.PurchaseOrderID,
			Number:          body.Number,
			FluigNumber:     body.FluigNumber,
			IssueDate:       issueDate,
			DueDate:         dueDate,
			FinalValue:      value,
			EntryType:       models.InvoiceEntryType(body.EntryType),
			AssetTag:        body.AssetTag,
			Attachment:      body.Attachment,
		}, userID)
		if err != nil {
			return mapServiceError(err)
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "invoice",
			EntityID:    inv.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("NF %s lançada contra a OS %s", inv.Number, inv.PurchaseOrder.OSNumber),
			After:       toInvoiceResponse(inv),
		}); logErr != nil {
			fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(inv))
	}
}

// GET /api/invoices
func ListInvoicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc := NewService(database.DB)
		invoices, err := svc.List()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as notas fiscais")
		}

		resp := make([]InvoiceResponse, 0, len(invoices))
		for i := range invoices {
			resp = append(resp, toInvoiceResponse(&invoices[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/invoices/:id
func GetInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		svc := NewService(database.DB)
		inv, err := svc.Get(id)
		if err != nil {
			return mapServiceError(err)
		}

		return c.JSON(toInvoiceResponse(inv))
	}
}
