package afip_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	domafip "github.com/tu-usuario/facturador-afip/internal/domain/afip"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// buildOrderB construye una Factura B válida: neto 1000, IVA 210 (21%), total 1210.
func buildOrderB() *entity.BillingOrder {
	return &entity.BillingOrder{
		OrderID:      "orden-001",
		ServiceRef:   "viaje-123",
		PointOfSale:  1,
		VoucherType:  pkgafip.VoucherFacturaB,
		Concept:      pkgafip.ConceptProducts,
		DocType:      pkgafip.DocTypeCUIT,
		DocNumber:    "20111111112",
		TaxCondition: pkgafip.TaxCondConsumidorFinal,
		NetAmount:    decimal.NewFromInt(1000),
		VATAmount:    decimal.NewFromInt(210),
		TotalAmount:  decimal.NewFromInt(1210),
		Currency:     pkgafip.CurrencyPeso,
		CurrencyRate: decimal.NewFromInt(1),
	}
}

func TestValidateOrder_FacturaBValida(t *testing.T) {
	err := domafip.ValidateOrder(buildOrderB(), nil)
	assert.NoError(t, err, "una Factura B con IVA al 21%% debe pasar la validación")
}

func TestValidateOrder_DesgloseNoCoincideConTotal(t *testing.T) {
	order := buildOrderB()
	order.TotalAmount = decimal.NewFromInt(1300) // neto 1000 + IVA 210 ≠ 1300

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "debe ser *domain.ValidationError")
	assert.Equal(t, "imp_total", verr.Field)
}

func TestValidateOrder_FacturaARequiereResponsableInscripto(t *testing.T) {
	order := buildOrderB()
	order.VoucherType = pkgafip.VoucherFacturaA
	order.TaxCondition = pkgafip.TaxCondConsumidorFinal

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "condicion_iva", verr.Field)
}

func TestValidateOrder_FacturaAConReceptorInscriptoOK(t *testing.T) {
	order := buildOrderB()
	order.VoucherType = pkgafip.VoucherFacturaA
	order.TaxCondition = pkgafip.TaxCondResponsableInscripto

	assert.NoError(t, domafip.ValidateOrder(order, nil))
}

func TestValidateOrder_FacturaBNoAdmiteResponsableInscripto(t *testing.T) {
	order := buildOrderB()
	order.TaxCondition = pkgafip.TaxCondResponsableInscripto

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "condicion_iva", verr.Field)
}

func TestValidateOrder_CUITInvalido(t *testing.T) {
	order := buildOrderB()
	order.DocNumber = "20111111113" // verificador incorrecto

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "nro_doc", verr.Field)
}

func TestValidateOrder_PuntoVentaNoHabilitado(t *testing.T) {
	order := buildOrderB()
	order.PointOfSale = 9

	err := domafip.ValidateOrder(order, []int{1, 2})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "punto_venta", verr.Field)
}

func TestValidateOrder_PuntoVentaHabilitado(t *testing.T) {
	order := buildOrderB()
	order.PointOfSale = 2
	assert.NoError(t, domafip.ValidateOrder(order, []int{1, 2}))
}

func TestValidateOrder_ConceptoServiciosRequiereFechas(t *testing.T) {
	order := buildOrderB()
	order.Concept = pkgafip.ConceptServices

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "fch_serv", verr.Field)

	order.ServiceFrom = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	order.ServiceTo = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	order.PaymentDueDate = order.ServiceTo
	assert.NoError(t, domafip.ValidateOrder(order, nil))
}

func TestValidateOrder_LineasIVACoherentes(t *testing.T) {
	order := buildOrderB()
	order.VATLines = []entity.VATLine{
		{AliquotID: pkgafip.VATTwentyOne, Base: decimal.NewFromInt(1000), Amount: decimal.NewFromInt(210)},
	}
	assert.NoError(t, domafip.ValidateOrder(order, nil))
}

func TestValidateOrder_LineaIVAConImporteErroneo(t *testing.T) {
	order := buildOrderB()
	order.VATLines = []entity.VATLine{
		{AliquotID: pkgafip.VATTwentyOne, Base: decimal.NewFromInt(1000), Amount: decimal.NewFromInt(200)},
	}

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "iva", verr.Field)
}

func TestValidateOrder_MonedaPesosConCotizacionDistintaDeUno(t *testing.T) {
	order := buildOrderB()
	order.CurrencyRate = decimal.NewFromInt(2)

	err := domafip.ValidateOrder(order, nil)
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "moneda_cotiz", verr.Field)
}
