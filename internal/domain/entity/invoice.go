package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizedInvoice comprobante autorizado por AFIP. Inmutable: lo crea el
// Invoice Store solo ante una respuesta aprobada del WSFEv1.
type AuthorizedInvoice struct {
	ID          string // uuid interno del registro
	OrderID     string // orden de facturación que lo originó
	ServiceRef  string
	PointOfSale int
	VoucherType int
	Number      int64 // CbteNro asignado dentro de la secuencia del punto de venta

	CAE       string    // Código de Autorización Electrónica
	CAEExpiry time.Time // FchVtoCAE
	IssueDate time.Time // CbteFch

	// Receptor e importes, copiados de la orden al momento de autorizar.
	DocType      int
	DocNumber    string
	NetAmount    decimal.Decimal
	VATAmount    decimal.Decimal
	TotalAmount  decimal.Decimal
	Currency     string
	CurrencyRate decimal.Decimal

	Observations []Observation // observaciones de AFIP en aprobaciones con reparos
	CreatedAt    time.Time
}

// Observation observación devuelta por AFIP junto a una aprobación.
type Observation struct {
	Code    int
	Message string
}

// RejectedAttempt intento de autorización rechazado por AFIP. Registro
// append-only; el número reservado se libera y puede reutilizarse tras resync.
type RejectedAttempt struct {
	ID          string
	OrderID     string
	PointOfSale int
	VoucherType int
	Codes       []int
	Messages    []string
	CreatedAt   time.Time
}
