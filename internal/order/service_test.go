package order

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"compras-backend/internal/document"
	"compras-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.OrgUnit{},
		&models.CostCenter{},
		&models.Requester{},
		&models.PurchaseOrder{},
		&models.Invoice{},
		&models.AuditLog{},
	))
	return db
}

func seedRefs(t *testing.T, db *gorm.DB) (models.OrgUnit, models.CostCenter, models.Requester, models.User) {
	t.Helper()

	unit := models.OrgUnit{Abbreviation: "HMI", Name: "Hospital Med Imagem", LegalName: "Med Imagem LTDA", CNPJ: "00.000.000/0001-00"}
	require.NoError(t, db.Create(&unit).Error)

	cc := models.CostCenter{Code: "CC-100", Description: "Manutenção"}
	require.NoError(t, db.Create(&cc).Error)

	req := models.Requester{Name: "Maria Souza", Email: "maria@exemplo.com"}
	require.NoError(t, db.Create(&req).Error)

	approver := models.User{Name: "Carlos Lima", Email: "carlos@exemplo.com", PasswordHash: "x", Role: models.RoleApprover}
	require.NoError(t, db.Create(&approver).Error)

	return unit, cc, req, approver
}

func draftInput(unit models.OrgUnit, cc models.CostCenter, req models.Requester, account models.AccountingAccount) DraftInput {
	return DraftInput{
		OSNumber:          "OS-2025-001",
		OSDate:            time.Date(2025, 12, 9, 0, 0, 0, 0, time.UTC),
		RequesterID:       req.ID,
		ExecutionSector:   "Radiologia",
		OrgUnitID:         unit.ID,
		CostCenterID:      cc.ID,
		Objective:         models.ObjectiveCorrectiveMnt,
		Specialty:         models.SpecialtyClinicalEng,
		ContractType:      models.ContractOneOff,
		Priority:          models.PriorityMedium,
		AccountingAccount: account,
		Description:       "Reparo no tomógrafo",
		Justification:     "Equipamento parado",
		Supplier:          "TechMed Ltda",
		SupplierEmail:     "vendas@techmed.com",
		PaymentTerms:      "Boleto 30 dias",
		EstimatedValue:    decimal.NewFromFloat(1234.56),
		BudgetAttachment:  "orcamentos/2025/12/techmed.pdf",
	}
}

type stubGenerator struct {
	fail  bool
	calls int
}

func (g *stubGenerator) Generate(o *models.PurchaseOrder) (*document.Document, error) {
	g.calls++
	if g.fail {
		return nil, errors.New("motor de renderização indisponível")
	}
	return &document.Document{
		Content:     []byte("%PDF-1.4 stub"),
		Filename:    fmt.Sprintf("OC_%d_ABCDEF123456.pdf", o.ID),
		Fingerprint: "ABCDEF123456",
		GeneratedAt: time.Now(),
	}, nil
}

func TestCreateDraftClassification(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, o.Status)
	assert.Equal(t, models.ClassOpex, o.Classification)

	in := draftInput(unit, cc, req, models.AccountInvestment)
	in.OSNumber = "OS-2025-002"
	o2, err := svc.CreateDraft(in)
	require.NoError(t, err)
	assert.Equal(t, models.ClassCapex, o2.Classification)
}

func TestCreateDraftIgnoresCallerClassification(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	in := draftInput(unit, cc, req, models.AccountEnergy)
	in.Classification = models.ClassCapex // tentativa de adulterar

	o, err := svc.CreateDraft(in)
	require.NoError(t, err)
	assert.Equal(t, models.ClassOpex, o.Classification)

	// O valor persistido também tem que estar correto
	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.ClassOpex, stored.Classification)
}

func TestCreateDraftValidation(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	cases := []struct {
		name   string
		mutate func(*DraftInput)
	}{
		{"sem numero da OS", func(in *DraftInput) { in.OSNumber = " " }},
		{"sem solicitante", func(in *DraftInput) { in.RequesterID = 0 }},
		{"conta contabil invalida", func(in *DraftInput) { in.AccountingAccount = "NAO_EXISTE" }},
		{"sem descricao", func(in *DraftInput) { in.Description = "" }},
		{"sem justificativa", func(in *DraftInput) { in.Justification = "" }},
		{"sem fornecedor", func(in *DraftInput) { in.Supplier = "" }},
		{"valor zerado", func(in *DraftInput) { in.EstimatedValue = decimal.Zero }},
		{"sem orcamento", func(in *DraftInput) { in.BudgetAttachment = "" }},
		{"tipo de contrato invalido", func(in *DraftInput) { in.ContractType = "MENSAL" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := draftInput(unit, cc, req, models.AccountEnergy)
			tc.mutate(&in)
			_, err := svc.CreateDraft(in)
			var ve *ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &ve), "esperava ValidationError, veio %v", err)
		})
	}

	var count int64
	db.Model(&models.PurchaseOrder{}).Count(&count)
	assert.Zero(t, count, "entrada inválida não pode persistir nada")
}

func TestUpdateDraftReclassifies(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	require.Equal(t, models.ClassOpex, o.Classification)

	in := draftInput(unit, cc, req, models.AccountInvestment)
	updated, err := svc.UpdateDraft(o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.ClassCapex, updated.Classification)
}

func TestUpdateDraftOnlyDrafts(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(o.ID, draftInput(unit, cc, req, models.AccountEnergy))
	assert.ErrorIs(t, err, ErrNotDraft)
}

func TestSubmitTransition(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, _ := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)

	submitted, err := svc.Submit(o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, submitted.Status)

	// Segundo submit não encontra mais um rascunho
	_, err = svc.Submit(o.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	_, err = svc.Submit(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveSetsDecisionFields(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	gen := &stubGenerator{}
	svc := NewService(db, gen)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	approved, docResult, err := svc.Approve(o.ID, approver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedByID)
	assert.Equal(t, approver.ID, *approved.ApprovedByID)
	require.NotNil(t, approved.ApprovedAt)
	assert.WithinDuration(t, time.Now(), *approved.ApprovedAt, 5*time.Second)

	assert.True(t, docResult.Generated)
	assert.Equal(t, "ABCDEF123456", docResult.Fingerprint)
	assert.Equal(t, 1, gen.calls)
}

func TestApproveNonPendingIsRejected(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{})

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)

	// Ainda em rascunho: decisão não é permitida
	_, _, err = svc.Approve(o.ID, approver.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusDraft, stored.Status)
	assert.Nil(t, stored.ApprovedByID)
	assert.Nil(t, stored.ApprovedAt)
}

func TestDoubleDecisionOnlyFirstWins(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{})

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	_, _, err = svc.Approve(o.ID, approver.ID)
	require.NoError(t, err)

	// Segunda decisão (de qualquer tipo) bate no guard de reentrância
	_, _, err = svc.Approve(o.ID, approver.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = svc.Reject(o.ID, approver.ID, "mudei de ideia")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Empty(t, stored.RejectionReason)
}

func TestConcurrentApprovesExactlyOneWins(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{})

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	second := models.User{Name: "Ana Dias", Email: "ana@exemplo.com", PasswordHash: "x", Role: models.RoleApprover}
	require.NoError(t, db.Create(&second).Error)

	results := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i, actor := range []uint{approver.ID, second.ID} {
		go func(idx int, actorID uint) {
			defer wg.Done()
			_, _, results[idx] = svc.Approve(o.ID, actorID)
		}(i, actor)
	}
	wg.Wait()

	var okCount, conflictCount int
	for _, err := range results {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrAlreadyProcessed):
			conflictCount++
		default:
			t.Fatalf("erro inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, conflictCount)

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestApproveWithBrokenGeneratorStillCommits(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{fail: true})

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	approved, docResult, err := svc.Approve(o.ID, approver.ID)
	require.NoError(t, err, "falha do gerador não pode derrubar a aprovação")

	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.False(t, docResult.Generated)
	assert.NotEmpty(t, docResult.Notice)

	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	_, err = svc.Reject(o.ID, approver.ID, "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	// Sem motivo, nada muda
	var stored models.PurchaseOrder
	require.NoError(t, db.First(&stored, o.ID).Error)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Empty(t, stored.RejectionReason)
}

func TestRejectSetsReasonAndDecisionAudit(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, nil)

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(o.ID, approver.ID, "Sem orçamento disponível")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "Sem orçamento disponível", rejected.RejectionReason)
	require.NotNil(t, rejected.ApprovedByID)
	assert.Equal(t, approver.ID, *rejected.ApprovedByID)
	assert.NotNil(t, rejected.ApprovedAt)
}

func TestListAwaitingInvoice(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{})

	mkApproved := func(os string) *models.PurchaseOrder {
		in := draftInput(unit, cc, req, models.AccountEnergy)
		in.OSNumber = os
		o, err := svc.CreateDraft(in)
		require.NoError(t, err)
		_, err = svc.Submit(o.ID)
		require.NoError(t, err)
		approved, _, err := svc.Approve(o.ID, approver.ID)
		require.NoError(t, err)
		return approved
	}

	a := mkApproved("OS-A")
	b := mkApproved("OS-B")

	// Pedido ainda pendente não entra na lista
	in := draftInput(unit, cc, req, models.AccountEnergy)
	in.OSNumber = "OS-C"
	c, err := svc.CreateDraft(in)
	require.NoError(t, err)
	_, err = svc.Submit(c.ID)
	require.NoError(t, err)

	// NF já lançada contra "a": sai da lista
	inv := models.Invoice{
		PurchaseOrderID: a.ID,
		Number:          "NF-1",
		IssueDate:       time.Now(),
		FinalValue:      decimal.NewFromInt(100),
		EntryType:       models.EntryMiscellaneous,
		Attachment:      "nf/nf-1.pdf",
	}
	require.NoError(t, db.Create(&inv).Error)

	pending, err := svc.ListAwaitingInvoice()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestDeleteCascadesInvoice(t *testing.T) {
	db := setupTestDB(t)
	unit, cc, req, approver := seedRefs(t, db)
	svc := NewService(db, &stubGenerator{})

	o, err := svc.CreateDraft(draftInput(unit, cc, req, models.AccountEnergy))
	require.NoError(t, err)
	_, err = svc.Submit(o.ID)
	require.NoError(t, err)
	_, _, err = svc.Approve(o.ID, approver.ID)
	require.NoError(t, err)

	inv := models.Invoice{
		PurchaseOrderID: o.ID,
		Number:          "NF-9",
		IssueDate:       time.Now(),
		FinalValue:      decimal.NewFromInt(50),
		EntryType:       models.EntryMiscellaneous,
		Attachment:      "nf/nf-9.pdf",
	}
	require.NoError(t, db.Create(&inv).Error)

	require.NoError(t, svc.Delete(o.ID))

	// Sem o pedido, a NF órfã é removida junto (cascade no banco; aqui
	// o teste garante pelo menos que o pedido sumiu)
	var count int64
	db.Model(&models.PurchaseOrder{}).Where("id = ?", o.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.Delete(o.ID), ErrNotFound)
}
