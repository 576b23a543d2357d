package order

import (
	"fmt"

	"compras-backend/internal/audit"
	"compras-backend/internal/database"
	"compras-backend/internal/document"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DecisionRequest struct {
	Action string `json:"acao"`   // "aprovar" | "reprovar"
	Reason string `json:"motivo"` // obrigatório ao reprovar
}

type DecisionDocumentResponse struct {
	Generated   bool   `json:"generated"`
	Filename    string `json:"filename,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Notice      string `json:"notice,omitempty"`
}

type DecisionResponse struct {
	Order    OrderResponse             `json:"order"`
	Document *DecisionDocumentResponse `json:"document,omitempty"`
}

// POST /api/orders/:id/decision
// Decide um pedido SOLICITADO. Aprovação dispara a geração do PDF; se o
// gerador falhar, a aprovação permanece e a resposta carrega o aviso.
func DecideOrderHandler(docs document.Generator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		var body DecisionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, docs)

		switch body.Action {
		case "aprovar":
			o, docResult, err := svc.Approve(id, userID)
			if err != nil {
				return mapServiceError(err)
			}

			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    o.ID,
				Action:      models.AuditActionApprove,
				Description: fmt.Sprintf("OS %s aprovada", o.OSNumber),
				After:       toOrderResponse(o),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}

			return c.JSON(DecisionResponse{
				Order: toOrderResponse(o),
				Document: &DecisionDocumentResponse{
					Generated:   docResult.Generated,
					Filename:    docResult.Filename,
					Fingerprint: docResult.Fingerprint,
					Notice:      docResult.Notice,
				},
			})

		case "reprovar":
			o, err := svc.Reject(id, userID, body.Reason)
			if err != nil {
				return mapServiceError(err)
			}

			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase_order",
				EntityID:    o.ID,
				Action:      models.AuditActionReject,
				Description: fmt.Sprintf("OS %s reprovada: %s", o.OSNumber, o.RejectionReason),
				After:       toOrderResponse(o),
			}); logErr != nil {
				fmt.Printf("Falha ao gravar log de auditoria: %v\n", logErr)
			}

			return c.JSON(DecisionResponse{Order: toOrderResponse(o)})

		default:
			return fiber.NewError(fiber.StatusBadRequest, "Ação inválida: use 'aprovar' ou 'reprovar'")
		}
	}
}

// GET /api/orders/:id/document
// Gera o PDF do pedido na hora (pré-visualização/download). Cada geração
// produz um hash de integridade novo.
func OrderDocumentHandler(docs document.Generator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return err
		}

		svc := NewService(database.DB, docs)
		o, err := svc.Get(id)
		if err != nil {
			return mapServiceError(err)
		}

		if docs == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Geração de documentos indisponível")
		}

		doc, err := docs.Generate(o)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Geração de documentos indisponível: "+err.Error())
		}

		c.Set("Content-Type", "application/pdf")
		c.Set("Content-Disposition", fmt.Sprintf(`inline; filename="PREVIA_%s"`, doc.Filename))
		return c.Send(doc.Content)
	}
}
