package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/application/dto"
)

// AFIPHandler expone consultas directas contra los webservices de AFIP:
// verificación de comprobantes, estado de servidores y catálogos de parámetros.
type AFIPHandler struct {
	query *billing.QueryUseCase
}

// NewAFIPHandler construye el handler.
func NewAFIPHandler(query *billing.QueryUseCase) *AFIPHandler {
	return &AFIPHandler{query: query}
}

// Consultar verifica un comprobante directamente en los registros de AFIP.
// POST /api/afip/consultar
func (h *AFIPHandler) Consultar(c *fiber.Ctx) error {
	var in dto.ConsultaAFIPRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.PuntoVenta <= 0 || in.TipoCbte <= 0 || in.Numero <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "punto_venta, tipo_cbte y numero son obligatorios"})
	}
	info, err := h.query.QueryAuthority(c.Context(), in.PuntoVenta, in.TipoCbte, in.Numero)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := dto.ComprobanteAFIPResponse{
		PuntoVenta: info.PointOfSale,
		TipoCbte:   info.VoucherType,
		Numero:     info.Number,
		Resultado:  info.Result,
		CAE:        info.CAE,
		TipoDoc:    info.DocType,
		NroDoc:     info.DocNumber,
		ImpTotal:   info.TotalAmount,
	}
	if !info.CAEExpiry.IsZero() {
		out.CAEVto = info.CAEExpiry.Format("2006-01-02")
	}
	if !info.IssueDate.IsZero() {
		out.FechaEmision = info.IssueDate.Format("2006-01-02")
	}
	return c.JSON(out)
}

// Estado reporta el estado de los servidores de AFIP (FEDummy).
// GET /api/afip/estado
func (h *AFIPHandler) Estado(c *fiber.Ctx) error {
	status, err := h.query.AuthorityStatus(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.EstadoAFIPResponse{
		AppServer:  status.AppServer,
		DbServer:   status.DbServer,
		AuthServer: status.AuthServer,
	})
}

// TiposCbte lista el catálogo de tipos de comprobante.
// GET /api/afip/parametros/tipos-cbte
func (h *AFIPHandler) TiposCbte(c *fiber.Ctx) error {
	return h.catalogo(c, h.query.VoucherTypes)
}

// TiposDoc lista el catálogo de tipos de documento del receptor.
// GET /api/afip/parametros/tipos-doc
func (h *AFIPHandler) TiposDoc(c *fiber.Ctx) error {
	return h.catalogo(c, h.query.DocumentTypes)
}

// TiposIva lista las alícuotas de IVA reconocidas por AFIP.
// GET /api/afip/parametros/tipos-iva
func (h *AFIPHandler) TiposIva(c *fiber.Ctx) error {
	return h.catalogo(c, h.query.VATTypes)
}

// TiposConcepto lista los conceptos admitidos (productos, servicios, ambos).
// GET /api/afip/parametros/tipos-concepto
func (h *AFIPHandler) TiposConcepto(c *fiber.Ctx) error {
	return h.catalogo(c, h.query.ConceptTypes)
}

// CondicionesIva lista las condiciones frente al IVA admitidas para el receptor.
// GET /api/afip/parametros/condiciones-iva
func (h *AFIPHandler) CondicionesIva(c *fiber.Ctx) error {
	return h.catalogo(c, h.query.ReceiverTaxConditions)
}

// Monedas lista las monedas habilitadas.
// GET /api/afip/parametros/monedas
func (h *AFIPHandler) Monedas(c *fiber.Ctx) error {
	items, err := h.query.Currencies(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.MonedaResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.MonedaResponse{ID: it.ID, Descripcion: it.Description})
	}
	return c.JSON(out)
}

// catalogo resuelve un catálogo de parámetros con Id numérico y lo serializa.
func (h *AFIPHandler) catalogo(c *fiber.Ctx, fetch func(ctx context.Context) ([]billing.CatalogItem, error)) error {
	items, err := fetch(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.CatalogoItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.CatalogoItemResponse{ID: it.ID, Descripcion: it.Description})
	}
	return c.JSON(out)
}

// PtosVenta lista los puntos de venta habilitados para el CUIT emisor.
// GET /api/afip/parametros/ptos-venta
func (h *AFIPHandler) PtosVenta(c *fiber.Ctx) error {
	points, err := h.query.SalesPoints(c.Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.PuntoVentaResponse, 0, len(points))
	for _, pv := range points {
		out = append(out, dto.PuntoVentaResponse{
			Numero:      pv.Number,
			TipoEmision: pv.EmissionType,
			Bloqueado:   pv.Blocked,
		})
	}
	return c.JSON(out)
}
