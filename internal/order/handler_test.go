package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"compras-backend/internal/auth"
	"compras-backend/internal/database"
	"compras-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// App de teste com o usuário já autenticado via Locals, dispensando o JWT.
func newTestApp(t *testing.T, db *gorm.DB, userID uint, role models.UserRole) *fiber.App {
	t.Helper()

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		c.Locals(auth.CtxUserRoleKey, role)
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out), "corpo: %s", data)
}

func TestDecideOrderHandlerApprove(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleApprover)
	app.Post("/orders/:id/decision", DecideOrderHandler(&stubGenerator{}))

	svc := NewService(db, nil)
	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/orders/%d/decision", o.ID), fiber.Map{"acao": "aprovar"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body DecisionResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, string(models.StatusApproved), body.Order.Status)
	require.NotNil(t, body.Document)
	assert.True(t, body.Document.Generated)
	assert.NotEmpty(t, body.Document.Fingerprint)

	// A decisão gera trilha de auditoria
	var logs int64
	db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND action = ?", "purchase_order", models.AuditActionApprove).
		Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestDecideOrderHandlerSecondDecisionConflicts(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleApprover)
	app.Post("/orders/:id/decision", DecideOrderHandler(&stubGenerator{}))

	svc := NewService(db, nil)
	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/orders/%d/decision", o.ID), fiber.Map{"acao": "aprovar"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/orders/%d/decision", o.ID), fiber.Map{"acao": "reprovar", "motivo": "tarde demais"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDecideOrderHandlerRejectNeedsReason(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleApprover)
	app.Post("/orders/:id/decision", DecideOrderHandler(nil))

	svc := NewService(db, nil)
	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/orders/%d/decision", o.ID), fiber.Map{"acao": "reprovar"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDecideOrderHandlerUnknownAction(t *testing.T) {
	db := setupTestDB(t)
	_, _, _, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleApprover)
	app.Post("/orders/:id/decision", DecideOrderHandler(nil))

	resp := doJSON(t, app, fiber.MethodPost, "/orders/1/decision", fiber.Map{"acao": "arquivar"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrderHandlerIgnoresClassification(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleAdmin)
	app.Post("/orders", CreateOrderHandler())

	payload := fiber.Map{
		"os_number":          "OS-2025-077",
		"os_date":            "2025-12-09",
		"requester_id":       req.ID,
		"execution_sector":   "Radiologia",
		"org_unit_id":        unit.ID,
		"cost_center_id":     cc.ID,
		"objective":          string(models.ObjectiveCorrectiveMnt),
		"specialty":          string(models.SpecialtyClinicalEng),
		"contract_type":      string(models.ContractOneOff),
		"accounting_account": string(models.AccountEnergy),
		"classification":     string(models.ClassCapex), // deve ser ignorado
		"description":        "Reparo no tomógrafo",
		"justification":      "Equipamento parado",
		"supplier":           "TechMed Ltda",
		"payment_terms":      "Boleto 30 dias",
		"estimated_value":    "1234.56",
		"budget_attachment":  "orcamentos/2025/12/techmed.pdf",
	}

	resp := doJSON(t, app, fiber.MethodPost, "/orders", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body OrderResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, string(models.ClassOpex), body.Classification)
	assert.Equal(t, string(models.StatusDraft), body.Status)
	assert.Equal(t, string(models.PriorityMedium), body.Priority)
}

func TestOrderDocumentHandlerUnavailable(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	app := newTestApp(t, db, approver.ID, models.RoleAdmin)
	app.Get("/orders/:id/document", OrderDocumentHandler(&stubGenerator{fail: true}))

	svc := NewService(db, nil)
	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)

	resp := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/orders/%d/document", o.ID), nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
