package admin

import (
	"strings"

	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CostCenterResponse struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type CreateCostCenterRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type UpdateCostCenterRequest struct {
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

// POST /api/admin/cost-centers
func CreateCostCenterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCostCenterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		body.Code = strings.TrimSpace(body.Code)
		body.Description = strings.TrimSpace(body.Description)

		if body.Code == "" || body.Description == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Código e descrição são obrigatórios")
		}

		cc := models.CostCenter{Code: body.Code, Description: body.Description}
		if err := database.DB.Create(&cc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível criar o centro de custo")
		}

		return c.Status(fiber.StatusCreated).JSON(CostCenterResponse{
			ID:          cc.ID,
			Code:        cc.Code,
			Description: cc.Description,
		})
	}
}

// GET /api/admin/cost-centers
func ListCostCentersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var centers []models.CostCenter
		if err := database.DB.Order("code asc").Find(&centers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os centros de custo")
		}

		resp := make([]CostCenterResponse, 0, len(centers))
		for _, cc := range centers {
			resp = append(resp, CostCenterResponse{
				ID:          cc.ID,
				Code:        cc.Code,
				Description: cc.Description,
			})
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/cost-centers/:id
func UpdateCostCenterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cc models.CostCenter
		if err := database.DB.First(&cc, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Centro de custo não encontrado")
		}

		var body UpdateCostCenterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		if body.Code != nil {
			v := strings.TrimSpace(*body.Code)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Código não pode ficar vazio")
			}
			cc.Code = v
		}
		if body.Description != nil {
			v := strings.TrimSpace(*body.Description)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Descrição não pode ficar vazia")
			}
			cc.Description = v
		}

		if err := database.DB.Save(&cc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar o centro de custo")
		}

		return c.JSON(CostCenterResponse{ID: cc.ID, Code: cc.Code, Description: cc.Description})
	}
}

// DELETE /api/admin/cost-centers/:id
func DeleteCostCenterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var inUse int64
		if err := database.DB.Model(&models.PurchaseOrder{}).
			Where("cost_center_id = ?", id).
			Count(&inUse).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível verificar o uso do centro de custo")
		}
		if inUse > 0 {
			return fiber.NewError(fiber.StatusConflict, "Centro de custo em uso por pedidos de compra")
		}

		if err := database.DB.Delete(&models.CostCenter{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível excluir o centro de custo")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
