package main

import (
	"log"
	"strings"

	"compras-backend/internal/admin"
	"compras-backend/internal/audit"
	"compras-backend/internal/auth"
	"compras-backend/internal/config"
	"compras-backend/internal/database"
	"compras-backend/internal/document"
	"compras-backend/internal/invoice"
	"compras-backend/internal/models"
	"compras-backend/internal/order"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	database.Init(cfg)

	docs := document.NewPDFGenerator()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Erro inesperado:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Erro inesperado no servidor",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth pública
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protegidas
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Rotas de administração (cadastros gerais)
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", auth.CreateUserHandler())

	// Unidades
	adminRoutes.Post("/org-units", admin.CreateOrgUnitHandler())
	adminRoutes.Get("/org-units", admin.ListOrgUnitsHandler())
	adminRoutes.Put("/org-units/:id", admin.UpdateOrgUnitHandler())
	adminRoutes.Delete("/org-units/:id", admin.DeleteOrgUnitHandler())

	// Centros de custo
	adminRoutes.Post("/cost-centers", admin.CreateCostCenterHandler())
	adminRoutes.Get("/cost-centers", admin.ListCostCentersHandler())
	adminRoutes.Put("/cost-centers/:id", admin.UpdateCostCenterHandler())
	adminRoutes.Delete("/cost-centers/:id", admin.DeleteCostCenterHandler())

	// Solicitantes
	adminRoutes.Post("/requesters", admin.CreateRequesterHandler())
	adminRoutes.Get("/requesters", admin.ListRequestersHandler())
	adminRoutes.Put("/requesters/:id", admin.UpdateRequesterHandler())
	adminRoutes.Delete("/requesters/:id", admin.DeleteRequesterHandler())

	// Consultas de pré-preenchimento do formulário
	protected.Get("/org-units/:id/cnpj", admin.OrgUnitCNPJHandler())
	protected.Get("/requesters/:id", admin.RequesterLookupHandler())

	// Pedidos de compra (rotas fixas antes de /orders/:id)
	protected.Get("/orders/pending", auth.RequireRole(models.RoleAdmin, models.RoleApprover), order.ListPendingOrdersHandler())
	protected.Get("/orders/awaiting-invoice", auth.RequireRole(models.RoleAdmin, models.RoleFinance), order.ListAwaitingInvoiceHandler())
	protected.Get("/orders/export/xlsx", auth.RequireRole(models.RoleAdmin, models.RoleApprover), order.ExportOrdersXLSXHandler())

	protected.Post("/orders", order.CreateOrderHandler())
	protected.Get("/orders", order.ListOrdersHandler())
	protected.Get("/orders/:id", order.GetOrderHandler())
	protected.Put("/orders/:id", order.UpdateOrderHandler())
	protected.Post("/orders/:id/submit", order.SubmitOrderHandler())
	protected.Post("/orders/:id/decision", auth.RequireRole(models.RoleAdmin, models.RoleApprover), order.DecideOrderHandler(docs))
	protected.Get("/orders/:id/document", order.OrderDocumentHandler(docs))
	protected.Delete("/orders/:id", auth.RequireRole(models.RoleAdmin), order.DeleteOrderHandler())

	// Notas fiscais (conciliação)
	invoiceRoutes := protected.Group("/invoices")
	invoiceRoutes.Use(auth.RequireRole(models.RoleAdmin, models.RoleFinance))
	invoiceRoutes.Post("", invoice.CreateInvoiceHandler())
	invoiceRoutes.Get("", invoice.ListInvoicesHandler())
	invoiceRoutes.Get("/:id", invoice.GetInvoiceHandler())

	// Auditoria
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Servidor rodando na porta:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
