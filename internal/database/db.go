package database

import (
	"log"

	"compras-backend/internal/config"
	"compras-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Não foi possível conectar ao banco: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.OrgUnit{},
		&models.CostCenter{},
		&models.Requester{},
		&models.PurchaseOrder{},
		&models.Invoice{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("Erro no AutoMigrate: %v", err)
	}

	ensureConstraints()

	log.Println("Conexão com o banco ok. Migration concluída.")
}

// ensureConstraints garante as regras de integridade referencial que o
// AutoMigrate nem sempre aplica em tabelas pré-existentes: cadastros
// referenciados por pedidos são RESTRICT, e a NF cai junto com o pedido.
func ensureConstraints() {
	type fk struct {
		table      string
		constraint string
		ddl        string
	}

	fks := []fk{
		{
			table:      "purchase_orders",
			constraint: "fk_purchase_orders_requester",
			ddl: `ALTER TABLE purchase_orders ADD CONSTRAINT fk_purchase_orders_requester
				FOREIGN KEY (requester_id) REFERENCES requesters(id) ON DELETE RESTRICT`,
		},
		{
			table:      "purchase_orders",
			constraint: "fk_purchase_orders_org_unit",
			ddl: `ALTER TABLE purchase_orders ADD CONSTRAINT fk_purchase_orders_org_unit
				FOREIGN KEY (org_unit_id) REFERENCES org_units(id) ON DELETE RESTRICT`,
		},
		{
			table:      "purchase_orders",
			constraint: "fk_purchase_orders_cost_center",
			ddl: `ALTER TABLE purchase_orders ADD CONSTRAINT fk_purchase_orders_cost_center
				FOREIGN KEY (cost_center_id) REFERENCES cost_centers(id) ON DELETE RESTRICT`,
		},
		{
			table:      "invoices",
			constraint: "fk_invoices_purchase_order",
			ddl: `ALTER TABLE invoices ADD CONSTRAINT fk_invoices_purchase_order
				FOREIGN KEY (purchase_order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE`,
		},
	}

	for _, f := range fks {
		var exists bool
		DB.Raw(`
			SELECT EXISTS (
				SELECT 1
				FROM information_schema.table_constraints
				WHERE table_name = ?
				AND constraint_name = ?
			)
		`, f.table, f.constraint).Scan(&exists)

		if exists {
			continue
		}

		log.Printf("Adicionando constraint %s...", f.constraint)
		if err := DB.Exec(f.ddl).Error; err != nil {
			log.Printf("Erro ao adicionar constraint %s (pode já existir): %v", f.constraint, err)
		}
	}
}
