// Package pdf implementa la generación de la representación gráfica del
// comprobante electrónico autorizado por AFIP (RG 4291, con el código QR
// exigido por la RG 4892/2020).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + CUIT │ [Letra] Tipo + N° + Fecha    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Domicilio / Condición IVA                          │
//	│  RECEPTOR: Tipo y N° de documento                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  IMPORTES: Neto gravado / IVA / TOTAL                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER AFIP: CAE + Vto CAE + QR + Observaciones            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF del comprobante autorizado y devuelve
// sus bytes. El qrURL ya viene armado según la RG 4892 (payload base64).
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	inv *entity.AuthorizedInvoice,
	issuer billing.IssuerInfo,
	qrURL string,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(voucherTitle(inv), true).
		WithAuthor(issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	// Header principal con la letra fiscal
	m.AddRows(headerRow(inv, issuer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(issuer))
	m.AddRows(receptorRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	// Desglose de importes
	m.AddRows(amountsRow(inv))

	// Footer AFIP: CAE + QR + observaciones
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range afipFooterRows(inv, qrURL) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + CUIT (izq), letra + tipo + número + fecha (der).
func headerRow(inv *entity.AuthorizedInvoice, issuer billing.IssuerInfo) core.Row {
	letra := pkgafip.VoucherLetter(inv.VoucherType)
	numero := fmt.Sprintf("%04d-%08d", inv.PointOfSale, inv.Number)
	fecha := inv.IssueDate.Format("02/01/2006")

	return row.New(20).Add(
		col.New(6).Add(
			text.New(issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("CUIT: "+issuer.CUIT, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(1).Add(
			text.New(letra, props.Text{
				Style: fontstyle.Bold, Size: 22, Align: align.Center,
				Color: colorPrimary, Top: 2,
			}),
			text.New(fmt.Sprintf("Cód. %02d", inv.VoucherType), props.Text{
				Size: 6, Align: align.Center, Top: 13, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(voucherTitle(inv), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("N° "+numero, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha de emisión: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: datos del emisor.
func emisorRow(issuer billing.IssuerInfo) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Domicilio: %s   |   %s",
				nonEmpty(issuer.Address, "—"),
				nonEmpty(issuer.TaxCond, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// receptorRow: identificación del receptor.
func receptorRow(inv *entity.AuthorizedInvoice) core.Row {
	docName := pkgafip.DocTypeNames[inv.DocType]
	if docName == "" {
		docName = fmt.Sprintf("Doc. tipo %d", inv.DocType)
	}
	doc := docName + ": " + inv.DocNumber
	if inv.DocType == pkgafip.DocTypeConsumidorFinal {
		doc = "Consumidor Final"
	}

	return row.New(12).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(doc, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		),
	)
}

// amountsRow: desglose de importes alineado a la derecha. Los comprobantes
// clase B y C muestran el IVA incluido en el total.
func amountsRow(inv *entity.AuthorizedInvoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3), // espacio izquierdo
		col.New(4).Add(
			label("Importe neto gravado:"),
			label("IVA:"),
			grandLabel("IMPORTE TOTAL:"),
		),
		col.New(4).Add(
			value(money(inv.NetAmount, inv.Currency)),
			value(money(inv.VATAmount, inv.Currency)),
			grandValue(money(inv.TotalAmount, inv.Currency)),
		),
		col.New(1), // espacio derecho
	)
}

// afipFooterRows: CAE + vencimiento + QR de verificación + observaciones.
func afipFooterRows(inv *entity.AuthorizedInvoice, qrURL string) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("AUTORIZACIÓN ELECTRÓNICA AFIP", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	// QR + CAE
	rows = append(rows, row.New(40).Add(
		col.New(3).Add(code.NewQr(qrURL, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(9).Add(
			text.New("CAE: "+inv.CAE, props.Text{
				Style: fontstyle.Bold, Size: 11, Top: 6, Left: 3,
			}),
			text.New("Vencimiento CAE: "+inv.CAEExpiry.Format("02/01/2006"), props.Text{
				Size: 9, Top: 14, Left: 3, Color: colorGray,
			}),
			text.New("Escanee el código QR para verificar\neste comprobante en el sitio de AFIP.", props.Text{
				Size: 8, Top: 24, Left: 3, Color: colorGray,
			}),
		),
	))

	// Observaciones de aprobaciones con reparos
	if len(inv.Observations) > 0 {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("Observaciones:", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)))
		for _, obs := range inv.Observations {
			rows = append(rows, row.New(4).Add(col.New(12).Add(
				text.New(fmt.Sprintf("(%d) %s", obs.Code, obs.Message), props.Text{
					Size: 6.5, Color: colorGray, Top: 0.5, Left: 2,
				}),
			)))
		}
	}

	// Leyenda legal
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Comprobante autorizado por AFIP mediante Web Service de Factura "+
				"Electrónica (RG 4291). Conserve este documento como soporte fiscal.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func voucherTitle(inv *entity.AuthorizedInvoice) string {
	if name, ok := pkgafip.VoucherTypeNames[inv.VoucherType]; ok {
		return name
	}
	return fmt.Sprintf("Comprobante tipo %d", inv.VoucherType)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea un importe con separador de miles argentino.
// Ej: 1210.00 → "$ 1.210,00"; con moneda extranjera antepone el código.
func money(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	entero, dec := s[:len(s)-3], s[len(s)-2:]

	n := len(entero)
	buf := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, entero[i])
	}

	out := "$ " + string(buf) + "," + dec
	if neg {
		out = "-" + out
	}
	if currency != "" && currency != "PES" {
		out = currency + " " + out
	}
	return out
}
