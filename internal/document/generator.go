package document

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"compras-backend/internal/models"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Document: PDF gerado de um pedido aprovado. O hash de integridade entra
// no corpo e no nome do arquivo; cada geração produz um hash novo, então
// o documento não é estável byte a byte entre gerações.
type Document struct {
	Content     []byte
	Filename    string
	Fingerprint string
	GeneratedAt time.Time
}

// Generator é o colaborador de geração de documentos consumido pelo fluxo
// de aprovação. Falha aqui nunca pode derrubar a transição de estado.
type Generator interface {
	Generate(order *models.PurchaseOrder) (*Document, error)
}

type PDFGenerator struct{}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

func (g *PDFGenerator) Generate(order *models.PurchaseOrder) (doc *Document, err error) {
	// O motor de renderização pode estourar panic em runtime restrito
	// (fonte ausente, etc.); converte para erro e deixa o chamador
	// degradar a resposta.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("falha na renderização do PDF: %v", r)
		}
	}()

	now := time.Now()
	fingerprint := integrityFingerprint(order, now)

	m := buildOrderPDF(order, fingerprint, now)

	rendered, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("não foi possível gerar o PDF: %w", err)
	}

	return &Document{
		Content:     rendered.GetBytes(),
		Filename:    fmt.Sprintf("OC_%d_%s.pdf", order.ID, fingerprint),
		Fingerprint: fingerprint,
		GeneratedAt: now,
	}, nil
}

// integrityFingerprint: hash curto de auditoria derivado de identidade,
// valor e instante de geração, para dificultar falsificação do documento.
func integrityFingerprint(order *models.PurchaseOrder, at time.Time) string {
	auditString := fmt.Sprintf("%d-%s-%s", order.ID, order.EstimatedValue.StringFixed(2), at.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(auditString))
	return strings.ToUpper(fmt.Sprintf("%x", sum)[:12])
}

func buildOrderPDF(order *models.PurchaseOrder, fingerprint string, at time.Time) core.Maroto {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12, text.NewCol(12, "ORDEM DE COMPRA", props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	m.AddRow(8, text.NewCol(12, fmt.Sprintf("OS %s  -  Pedido nº %d", order.OSNumber, order.ID), props.Text{
		Size:  11,
		Align: align.Center,
	}))

	m.AddRow(4, line.NewCol(12))

	addField := func(label, value string) {
		m.AddRow(7,
			text.NewCol(4, label, props.Text{Size: 9, Style: fontstyle.Bold}),
			text.NewCol(8, value, props.Text{Size: 9}),
		)
	}

	addField("Unidade:", fmt.Sprintf("%s (%s)", order.OrgUnit.Name, order.OrgUnit.CNPJ))
	addField("Centro de custo:", fmt.Sprintf("%s - %s", order.CostCenter.Code, order.CostCenter.Description))
	addField("Solicitante:", order.Requester.Name)
	addField("Setor de execução:", order.ExecutionSector)
	addField("Objetivo:", string(order.Objective))
	addField("Especialidade:", string(order.Specialty))
	addField("Conta contábil:", string(order.AccountingAccount))
	addField("Classificação:", string(order.Classification))
	addField("Fornecedor:", order.Supplier)
	addField("Condição de pagamento:", order.PaymentTerms)
	addField("Valor estimado:", "R$ "+order.EstimatedValue.StringFixed(2))

	m.AddRow(10, text.NewCol(12, "Descrição: "+order.Description, props.Text{Size: 9}))
	m.AddRow(10, text.NewCol(12, "Justificativa: "+order.Justification, props.Text{Size: 9}))

	if order.ApprovedBy != nil && order.ApprovedAt != nil {
		addField("Aprovado por:", order.ApprovedBy.Name)
		addField("Data da aprovação:", order.ApprovedAt.Format("02/01/2006 15:04"))
	}

	m.AddRow(4, line.NewCol(12))

	m.AddRow(6, text.NewCol(12, fmt.Sprintf("Hash de integridade: %s", fingerprint), props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
	}))
	m.AddRow(5, text.NewCol(12, "Gerado em "+at.Format("02/01/2006 15:04:05"), props.Text{
		Size:  7,
		Align: align.Center,
	}))

	return m
}
