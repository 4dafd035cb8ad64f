// DTOs de la API de facturación. Los nombres de campo JSON siguen la
// nomenclatura del WSFEv1 (punto_venta, tipo_cbte, imp_total, ...) para que el
// contrato externo hable el mismo idioma que AFIP.

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// fecha corta del contrato externo (ISO, no el yyyymmdd de AFIP).
const apiDate = "2006-01-02"

// ErrorResponse respuesta de error uniforme de la API.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ── Request de emisión ────────────────────────────────────────────────────────

// IvaDTO línea de IVA por alícuota.
type IvaDTO struct {
	ID      int             `json:"id"`
	BaseImp decimal.Decimal `json:"base_imp"`
	Importe decimal.Decimal `json:"importe"`
}

// TributoDTO otro tributo (percepciones, tasas).
type TributoDTO struct {
	ID      int             `json:"id"`
	Desc    string          `json:"desc,omitempty"`
	BaseImp decimal.Decimal `json:"base_imp"`
	Alic    decimal.Decimal `json:"alic"`
	Importe decimal.Decimal `json:"importe"`
}

// FacturarRequest orden de facturación entrante.
// POST /api/facturas
type FacturarRequest struct {
	OrderID    string `json:"order_id"`
	ServiceRef string `json:"service_ref"`

	PuntoVenta int `json:"punto_venta"`
	TipoCbte   int `json:"tipo_cbte"`
	Concepto   int `json:"concepto"`

	TipoDoc      int    `json:"tipo_doc"`
	NroDoc       string `json:"nro_doc"`
	CondicionIVA int    `json:"condicion_iva"`

	ImpNeto    decimal.Decimal `json:"imp_neto"`
	ImpIVA     decimal.Decimal `json:"imp_iva"`
	ImpTotConc decimal.Decimal `json:"imp_tot_conc"`
	ImpOpEx    decimal.Decimal `json:"imp_op_ex"`
	ImpTrib    decimal.Decimal `json:"imp_trib"`
	ImpTotal   decimal.Decimal `json:"imp_total"`

	Moneda      string          `json:"moneda,omitempty"`
	MonedaCotiz decimal.Decimal `json:"moneda_cotiz,omitempty"`

	Iva      []IvaDTO     `json:"iva,omitempty"`
	Tributos []TributoDTO `json:"tributos,omitempty"`

	// Obligatorias con concepto 2 o 3, formato 2006-01-02.
	FchServDesde string `json:"fch_serv_desde,omitempty"`
	FchServHasta string `json:"fch_serv_hasta,omitempty"`
	FchVtoPago   string `json:"fch_vto_pago,omitempty"`
}

// ToOrder convierte el request al agregado interno, aplicando defaults (moneda
// PES cotización 1) y validando el formato de las fechas.
func (r *FacturarRequest) ToOrder() (*entity.BillingOrder, error) {
	if r.OrderID == "" {
		return nil, domain.NewValidationError("order_id", "es obligatorio")
	}

	order := &entity.BillingOrder{
		OrderID:          r.OrderID,
		ServiceRef:       r.ServiceRef,
		PointOfSale:      r.PuntoVenta,
		VoucherType:      r.TipoCbte,
		Concept:          r.Concepto,
		DocType:          r.TipoDoc,
		DocNumber:        r.NroDoc,
		TaxCondition:     r.CondicionIVA,
		NetAmount:        r.ImpNeto,
		VATAmount:        r.ImpIVA,
		NonTaxableAmount: r.ImpTotConc,
		ExemptAmount:     r.ImpOpEx,
		TributesAmount:   r.ImpTrib,
		TotalAmount:      r.ImpTotal,
		Currency:         r.Moneda,
		CurrencyRate:     r.MonedaCotiz,
	}
	if order.Currency == "" {
		order.Currency = pkgafip.CurrencyPeso
	}
	if order.CurrencyRate.IsZero() && order.Currency == pkgafip.CurrencyPeso {
		order.CurrencyRate = decimal.NewFromInt(1)
	}

	for _, line := range r.Iva {
		order.VATLines = append(order.VATLines, entity.VATLine{
			AliquotID: line.ID,
			Base:      line.BaseImp,
			Amount:    line.Importe,
		})
	}
	for _, trib := range r.Tributos {
		order.TributeLines = append(order.TributeLines, entity.TributeLine{
			ID:          trib.ID,
			Description: trib.Desc,
			Base:        trib.BaseImp,
			Aliquot:     trib.Alic,
			Amount:      trib.Importe,
		})
	}

	var err error
	if order.ServiceFrom, err = parseOptionalDate(r.FchServDesde); err != nil {
		return nil, domain.NewValidationError("fch_serv_desde", "formato esperado 2006-01-02")
	}
	if order.ServiceTo, err = parseOptionalDate(r.FchServHasta); err != nil {
		return nil, domain.NewValidationError("fch_serv_hasta", "formato esperado 2006-01-02")
	}
	if order.PaymentDueDate, err = parseOptionalDate(r.FchVtoPago); err != nil {
		return nil, domain.NewValidationError("fch_vto_pago", "formato esperado 2006-01-02")
	}
	return order, nil
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(apiDate, s)
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// ObservacionDTO observación de AFIP adjunta a una aprobación.
type ObservacionDTO struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FacturaResponse comprobante autorizado.
type FacturaResponse struct {
	OrderID    string `json:"order_id"`
	ServiceRef string `json:"service_ref,omitempty"`

	PuntoVenta int    `json:"punto_venta"`
	TipoCbte   int    `json:"tipo_cbte"`
	Letra      string `json:"letra"`
	Numero     int64  `json:"numero"`

	CAE          string `json:"cae"`
	CAEVto       string `json:"cae_vto"`
	FechaEmision string `json:"fecha_emision"`

	TipoDoc int    `json:"tipo_doc"`
	NroDoc  string `json:"nro_doc"`

	ImpNeto  decimal.Decimal `json:"imp_neto"`
	ImpIVA   decimal.Decimal `json:"imp_iva"`
	ImpTotal decimal.Decimal `json:"imp_total"`
	Moneda   string          `json:"moneda"`

	Observaciones []ObservacionDTO `json:"observaciones,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// FromInvoice mapea la entidad al DTO de salida.
func FromInvoice(inv *entity.AuthorizedInvoice) FacturaResponse {
	resp := FacturaResponse{
		OrderID:      inv.OrderID,
		ServiceRef:   inv.ServiceRef,
		PuntoVenta:   inv.PointOfSale,
		TipoCbte:     inv.VoucherType,
		Letra:        pkgafip.VoucherLetter(inv.VoucherType),
		Numero:       inv.Number,
		CAE:          inv.CAE,
		CAEVto:       inv.CAEExpiry.Format(apiDate),
		FechaEmision: inv.IssueDate.Format(apiDate),
		TipoDoc:      inv.DocType,
		NroDoc:       inv.DocNumber,
		ImpNeto:      inv.NetAmount,
		ImpIVA:       inv.VATAmount,
		ImpTotal:     inv.TotalAmount,
		Moneda:       inv.Currency,
		CreatedAt:    inv.CreatedAt,
	}
	for _, obs := range inv.Observations {
		resp.Observaciones = append(resp.Observaciones, ObservacionDTO{Code: obs.Code, Msg: obs.Message})
	}
	return resp
}

// RechazoResponse intento rechazado por AFIP.
type RechazoResponse struct {
	OrderID    string    `json:"order_id"`
	PuntoVenta int       `json:"punto_venta"`
	TipoCbte   int       `json:"tipo_cbte"`
	Codigos    []int     `json:"codigos"`
	Mensajes   []string  `json:"mensajes"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromRejection mapea un intento rechazado al DTO de salida.
func FromRejection(att *entity.RejectedAttempt) RechazoResponse {
	return RechazoResponse{
		OrderID:    att.OrderID,
		PuntoVenta: att.PointOfSale,
		TipoCbte:   att.VoucherType,
		Codigos:    att.Codes,
		Mensajes:   att.Messages,
		CreatedAt:  att.CreatedAt,
	}
}

// ConsultaAFIPRequest consulta directa de un comprobante en AFIP.
// POST /api/afip/consultar
type ConsultaAFIPRequest struct {
	PuntoVenta int   `json:"punto_venta"`
	TipoCbte   int   `json:"tipo_cbte"`
	Numero     int64 `json:"numero"`
}

// ComprobanteAFIPResponse comprobante según los registros de AFIP.
type ComprobanteAFIPResponse struct {
	PuntoVenta   int             `json:"punto_venta"`
	TipoCbte     int             `json:"tipo_cbte"`
	Numero       int64           `json:"numero"`
	Resultado    string          `json:"resultado"`
	CAE          string          `json:"cae"`
	CAEVto       string          `json:"cae_vto,omitempty"`
	FechaEmision string          `json:"fecha_emision,omitempty"`
	TipoDoc      int             `json:"tipo_doc"`
	NroDoc       string          `json:"nro_doc"`
	ImpTotal     decimal.Decimal `json:"imp_total"`
}

// EstadoAFIPResponse estado de los servidores de AFIP.
type EstadoAFIPResponse struct {
	AppServer  string `json:"app_server"`
	DbServer   string `json:"db_server"`
	AuthServer string `json:"auth_server"`
}

// CatalogoItemResponse entrada de un catálogo de parámetros.
type CatalogoItemResponse struct {
	ID          int    `json:"id"`
	Descripcion string `json:"descripcion"`
}

// MonedaResponse entrada del catálogo de monedas (identificador alfabético).
type MonedaResponse struct {
	ID          string `json:"id"`
	Descripcion string `json:"descripcion"`
}

// PuntoVentaResponse punto de venta habilitado en AFIP.
type PuntoVentaResponse struct {
	Numero      int    `json:"numero"`
	TipoEmision string `json:"tipo_emision"`
	Bloqueado   bool   `json:"bloqueado"`
}
