package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingOrder orden de facturación interna. La crea el sistema llamador
// (ventas/viajes) y el núcleo la referencia sin mutarla una vez enviada a
// autorizar.
type BillingOrder struct {
	OrderID     string // id externo de la orden; clave de idempotencia
	ServiceRef  string // referencia al viaje/servicio que origina la factura
	PointOfSale int    // punto de venta habilitado ante AFIP
	VoucherType int    // tipo de comprobante (catálogo pkg/afip)
	Concept     int    // 1=Productos, 2=Servicios, 3=Ambos

	// Receptor
	DocType      int    // 80=CUIT, 86=CUIL, 96=DNI, 99=Consumidor Final
	DocNumber    string // CUIT/CUIL/DNI del receptor; "0" para consumidor final
	TaxCondition int    // condición IVA del receptor (catálogo pkg/afip)

	// Importes (desglose WSFEv1)
	NetAmount        decimal.Decimal // ImpNeto: neto gravado
	VATAmount        decimal.Decimal // ImpIVA
	NonTaxableAmount decimal.Decimal // ImpTotConc: no gravado
	ExemptAmount     decimal.Decimal // ImpOpEx: exento
	TributesAmount   decimal.Decimal // ImpTrib: otros tributos
	TotalAmount      decimal.Decimal // ImpTotal

	Currency     string          // MonId ("PES", "DOL", ...)
	CurrencyRate decimal.Decimal // MonCotiz; 1 para PES

	VATLines     []VATLine     // desglose por alícuota (array AlicIva)
	TributeLines []TributeLine // otros tributos (array Tributos)

	// Fechas de servicio, obligatorias cuando Concept es 2 o 3.
	ServiceFrom    time.Time
	ServiceTo      time.Time
	PaymentDueDate time.Time
}

// VATLine línea de IVA por alícuota.
type VATLine struct {
	AliquotID int             // Id de alícuota (catálogo pkg/afip)
	Base      decimal.Decimal // BaseImp
	Amount    decimal.Decimal // Importe
}

// TributeLine otro tributo (percepciones, tasas municipales, etc.).
type TributeLine struct {
	ID          int
	Description string
	Base        decimal.Decimal
	Aliquot     decimal.Decimal
	Amount      decimal.Decimal
}
