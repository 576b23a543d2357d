package admin

import (
	"strings"

	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RequesterResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	UserID   *uint  `json:"user_id"`
}

type CreateRequesterRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	UserID   *uint  `json:"user_id"`
}

type UpdateRequesterRequest struct {
	Name     *string `json:"name"`
	Position *string `json:"position"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	UserID   *uint   `json:"user_id"`
}

func toRequesterResponse(r *models.Requester) RequesterResponse {
	return RequesterResponse{
		ID:       r.ID,
		Name:     r.Name,
		Position: r.Position,
		Email:    r.Email,
		Phone:    r.Phone,
		UserID:   r.UserID,
	}
}

// POST /api/admin/requesters
func CreateRequesterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequesterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Name == "" || body.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome e email são obrigatórios")
		}

		r := models.Requester{
			Name:     body.Name,
			Position: strings.TrimSpace(body.Position),
			Email:    body.Email,
			Phone:    strings.TrimSpace(body.Phone),
			UserID:   body.UserID,
		}

		if err := database.DB.Create(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível criar o solicitante")
		}

		return c.Status(fiber.StatusCreated).JSON(toRequesterResponse(&r))
	}
}

// GET /api/admin/requesters
func ListRequestersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var requesters []models.Requester
		if err := database.DB.Order("name asc").Find(&requesters).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os solicitantes")
		}

		resp := make([]RequesterResponse, 0, len(requesters))
		for i := range requesters {
			resp = append(resp, toRequesterResponse(&requesters[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/requesters/:id
func UpdateRequesterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var r models.Requester
		if err := database.DB.First(&r, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Solicitante não encontrado")
		}

		var body UpdateRequesterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		if body.Name != nil {
			v := strings.TrimSpace(*body.Name)
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Nome não pode ficar vazio")
			}
			r.Name = v
		}
		if body.Position != nil {
			r.Position = strings.TrimSpace(*body.Position)
		}
		if body.Email != nil {
			v := strings.TrimSpace(strings.ToLower(*body.Email))
			if v == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Email não pode ficar vazio")
			}
			r.Email = v
		}
		if body.Phone != nil {
			r.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.UserID != nil {
			r.UserID = body.UserID
		}

		if err := database.DB.Save(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar o solicitante")
		}

		return c.JSON(toRequesterResponse(&r))
	}
}

// DELETE /api/admin/requesters/:id
func DeleteRequesterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var inUse int64
		if err := database.DB.Model(&models.PurchaseOrder{}).
			Where("requester_id = ?", id).
			Count(&inUse).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível verificar o uso do solicitante")
		}
		if inUse > 0 {
			return fiber.NewError(fiber.StatusConflict, "Solicitante em uso por pedidos de compra")
		}

		if err := database.DB.Delete(&models.Requester{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível excluir o solicitante")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/requesters/:id
// Consulta usada pelo formulário para pré-preencher os contatos.
func RequesterLookupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var r models.Requester
		if err := database.DB.First(&r, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Solicitante não encontrado")
		}

		return c.JSON(toRequesterResponse(&r))
	}
}
