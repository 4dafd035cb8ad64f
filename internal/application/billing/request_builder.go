package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	domafip "github.com/tu-usuario/facturador-afip/internal/domain/afip"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// afipDate formato de fecha corta del WSFEv1 (CbteFch, FchServDesde, ...).
const afipDate = "20060102"

// FiscalRequest solicitud estructurada para FECAESolicitar, ya numerada y
// validada. Es la forma interna tipada; el cliente WSFE la traduce al sobre SOAP.
type FiscalRequest struct {
	PointOfSale int
	VoucherType int
	Concept     int
	Number      int64  // CbteDesde = CbteHasta
	IssueDate   string // CbteFch, yyyymmdd

	DocType      int
	DocNumber    string
	TaxCondition int // CondicionIVAReceptorId (ARCA v4.0)

	NetAmount        decimal.Decimal
	VATAmount        decimal.Decimal
	NonTaxableAmount decimal.Decimal
	ExemptAmount     decimal.Decimal
	TributesAmount   decimal.Decimal
	TotalAmount      decimal.Decimal

	Currency     string
	CurrencyRate decimal.Decimal

	VATLines     []entity.VATLine
	TributeLines []entity.TributeLine

	// Solo con conceptos 2 y 3, en formato yyyymmdd.
	ServiceFrom    string
	ServiceTo      string
	PaymentDueDate string
}

// RequestBuilder arma la FiscalRequest a partir de la orden interna aplicando
// las reglas fiscales. La validación corre antes de reservar numeración.
type RequestBuilder struct {
	allowedPOS []int
	now        func() time.Time
}

// NewRequestBuilder construye el builder. allowedPOS puede ser vacío para no
// restringir puntos de venta; now permite inyectar reloj en tests (nil usa time.Now).
func NewRequestBuilder(allowedPOS []int, now func() time.Time) *RequestBuilder {
	if now == nil {
		now = time.Now
	}
	return &RequestBuilder{allowedPOS: allowedPOS, now: now}
}

// Validate aplica las reglas fiscales locales sin efectos de red ni de secuencia.
func (b *RequestBuilder) Validate(order *entity.BillingOrder) error {
	return domafip.ValidateOrder(order, b.allowedPOS)
}

// Build mapea la orden validada al request de AFIP con el número reservado.
// Falla con *domain.ValidationError si la orden no cumple las reglas.
func (b *RequestBuilder) Build(order *entity.BillingOrder, number int64) (*FiscalRequest, error) {
	if err := b.Validate(order); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, domain.NewValidationError("numero", "número de comprobante inválido")
	}

	today := b.now().Format(afipDate)
	req := &FiscalRequest{
		PointOfSale:      order.PointOfSale,
		VoucherType:      order.VoucherType,
		Concept:          order.Concept,
		Number:           number,
		IssueDate:        today,
		DocType:          order.DocType,
		DocNumber:        normalizeDocNumber(order),
		TaxCondition:     order.TaxCondition,
		NetAmount:        order.NetAmount,
		VATAmount:        order.VATAmount,
		NonTaxableAmount: order.NonTaxableAmount,
		ExemptAmount:     order.ExemptAmount,
		TributesAmount:   order.TributesAmount,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		CurrencyRate:     order.CurrencyRate,
		VATLines:         order.VATLines,
		TributeLines:     order.TributeLines,
	}

	if order.Concept == pkgafip.ConceptServices || order.Concept == pkgafip.ConceptProductsAndServices {
		req.ServiceFrom = order.ServiceFrom.Format(afipDate)
		req.ServiceTo = order.ServiceTo.Format(afipDate)
		if order.PaymentDueDate.IsZero() {
			req.PaymentDueDate = today
		} else {
			req.PaymentDueDate = order.PaymentDueDate.Format(afipDate)
		}
	}
	return req, nil
}

// normalizeDocNumber deja solo dígitos; consumidor final viaja como "0".
func normalizeDocNumber(order *entity.BillingOrder) string {
	if order.DocType == pkgafip.DocTypeConsumidorFinal {
		return "0"
	}
	var sb strings.Builder
	for _, r := range order.DocNumber {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
