package order

import (
	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// GET /api/orders/export/xlsx?status=...
// Exporta o livro de pedidos para a controladoria.
func ExportOrdersXLSXHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filters ListFilters
		if statusStr := c.Query("status"); statusStr != "" {
			status := models.OrderStatus(statusStr)
			if !status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status inválido")
			}
			filters.Status = status
		}

		svc := NewService(database.DB, nil)
		orders, err := svc.List(filters)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os pedidos")
		}

		f := excelize.NewFile()
		defer f.Close()

		const sheet = "Pedidos"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{
			"ID", "OS", "Data OS", "Solicitante", "Unidade", "Centro de Custo",
			"Setor", "Conta Contábil", "Classificação", "Fornecedor",
			"Valor Estimado", "Prioridade", "Status", "Criado em",
		}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		for row, o := range orders {
			values := []interface{}{
				o.ID,
				o.OSNumber,
				o.OSDate.Format("02/01/2006"),
				o.Requester.Name,
				o.OrgUnit.Abbreviation,
				o.CostCenter.Code,
				o.ExecutionSector,
				string(o.AccountingAccount),
				string(o.Classification),
				o.Supplier,
				o.EstimatedValue.StringFixed(2),
				string(o.Priority),
				string(o.Status),
				o.CreatedAt.Format("02/01/2006 15:04"),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível gerar a planilha")
		}

		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", `attachment; filename="pedidos.xlsx"`)
		return c.Send(buf.Bytes())
	}
}
