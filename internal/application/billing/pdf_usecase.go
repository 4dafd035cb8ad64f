package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/repository"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// PDFUseCase genera la representación gráfica (PDF) de un comprobante ya
// autorizado. Solo se renderizan comprobantes con CAE.
type PDFUseCase struct {
	repo      repository.InvoiceRepository
	generator InvoicePDFGenerator
	issuer    IssuerInfo
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(repo repository.InvoiceRepository, generator InvoicePDFGenerator, issuer IssuerInfo) *PDFUseCase {
	return &PDFUseCase{repo: repo, generator: generator, issuer: issuer}
}

// DownloadInvoicePDF recupera el comprobante autorizado de la orden, arma la
// URL del QR fiscal y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil) si todo sale bien.
//   - domain.ErrNotFound        si la orden no tiene comprobante autorizado.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, orderID string) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener comprobante: %w", err)
	}
	if inv == nil || inv.CAE == "" {
		return nil, "", domain.ErrNotFound
	}

	issuerCUIT, _ := strconv.ParseInt(digitsOnly(uc.issuer.CUIT), 10, 64)
	docNumber, _ := strconv.ParseInt(digitsOnly(inv.DocNumber), 10, 64)
	cae, _ := strconv.ParseInt(inv.CAE, 10, 64)
	total, _ := inv.TotalAmount.Round(2).Float64()
	rate, _ := inv.CurrencyRate.Float64()

	qrURL, err := pkgafip.BuildQRURL(pkgafip.QRParams{
		IssueDate:    inv.IssueDate,
		IssuerCUIT:   issuerCUIT,
		PointOfSale:  inv.PointOfSale,
		VoucherType:  inv.VoucherType,
		Number:       inv.Number,
		Total:        total,
		Currency:     inv.Currency,
		CurrencyRate: rate,
		DocType:      inv.DocType,
		DocNumber:    docNumber,
		CAE:          cae,
	})
	if err != nil {
		return nil, "", fmt.Errorf("pdf: armar QR: %w", err)
	}

	bytes, err := uc.generator.GenerateInvoicePDF(ctx, inv, uc.issuer, qrURL)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar documento: %w", err)
	}

	letter := pkgafip.VoucherLetter(inv.VoucherType)
	filename = fmt.Sprintf("factura_%s_%04d-%08d.pdf", letter, inv.PointOfSale, inv.Number)
	return bytes, filename, nil
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
