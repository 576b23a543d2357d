package admin

import (
	"strings"

	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type OrgUnitResponse struct {
	ID           uint   `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	LegalName    string `json:"legal_name"`
	CNPJ         string `json:"cnpj"`
	CreatedAt    string `json:"created_at"`
}

type CreateOrgUnitRequest struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	LegalName    string `json:"legal_name"`
	CNPJ         string `json:"cnpj"`
}

type UpdateOrgUnitRequest struct {
	Abbreviation *string `json:"abbreviation"`
	Name         *string `json:"name"`
	LegalName    *string `json:"legal_name"`
	CNPJ         *string `json:"cnpj"`
}

func toOrgUnitResponse(u *models.OrgUnit) OrgUnitResponse {
	return OrgUnitResponse{
		ID:           u.ID,
		Abbreviation: u.Abbreviation,
		Name:         u.Name,
		LegalName:    u.LegalName,
		CNPJ:         u.CNPJ,
		CreatedAt:    u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/admin/org-units
func CreateOrgUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrgUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Abbreviation = strings.TrimSpace(body.Abbreviation)
		body.CNPJ = strings.TrimSpace(body.CNPJ)

		if body.Name == "" || body.Abbreviation == "" || body.CNPJ == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Sigla, nome e CNPJ são obrigatórios")
		}

		unit := models.OrgUnit{
			Abbreviation: body.Abbreviation,
			Name:         body.Name,
			LegalName:    strings.TrimSpace(body.LegalName),
			CNPJ:         body.CNPJ,
		}

		if err := database.DB.Create(&unit).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível criar a unidade")
		}

		return c.Status(fiber.StatusCreated).JSON(toOrgUnitResponse(&unit))
	}
}

// GET /api/admin/org-units
func ListOrgUnitsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var units []models.OrgUnit
		if err := database.DB.Order("abbreviation asc").Find(&units).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar as unidades")
		}

		resp := make([]OrgUnitResponse, 0, len(units))
		for i := range units {
			resp = append(resp, toOrgUnitResponse(&units[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/org-units/:id
func UpdateOrgUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var unit models.OrgUnit
		if err := database.DB.First(&unit, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Unidade não encontrada")
		}

		var body UpdateOrgUnitRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		if body.Abbreviation != nil {
			v := strings.TrimSpace(*body.Abbreviation)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Sigla não pode ficar vazia")
			}
			unit.Abbreviation = v
		}
		if body.Name != nil {
			v := strings.TrimSpace(*body.Name)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Nome não pode ficar vazio")
			}
			unit.Name = v
		}
		if body.LegalName != nil {
			unit.LegalName = strings.TrimSpace(*body.LegalName)
		}
		if body.CNPJ != nil {
			v := strings.TrimSpace(*body.CNPJ)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "CNPJ não pode ficar vazio")
			}
			unit.CNPJ = v
		}

		if err := database.DB.Save(&unit).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar a unidade")
		}

		return c.JSON(toOrgUnitResponse(&unit))
	}
}

// DELETE /api/admin/org-units/:id
// Unidade referenciada por pedidos não pode ser excluída.
func DeleteOrgUnitHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var inUse int64
		if err := database.DB.Model(&models.PurchaseOrder{}).
			Where("org_unit_id = ?", id).
			Count(&inUse).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível verificar o uso da unidade")
		}
		if inUse > 0 {
			return fiber.NewError(fiber.StatusConflict, "Unidade em uso por pedidos de compra")
		}

		if err := database.DB.Delete(&models.OrgUnit{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível excluir a unidade")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/org-units/:id/cnpj
// Consulta usada pelo formulário para pré-preencher o CNPJ da unidade.
func OrgUnitCNPJHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var unit models.OrgUnit
		if err := database.DB.First(&unit, "id = ?", id).Error; err != nil {
			return c.JSON(fiber.Map{"cnpj": ""})
		}

		return c.JSON(fiber.Map{"cnpj": unit.CNPJ, "name": unit.Name})
	}
}
