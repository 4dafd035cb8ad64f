package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/application/dto"
	"github.com/tu-usuario/facturador-afip/internal/domain"
)

// InvoiceHandler maneja las peticiones HTTP de facturación (protegido).
type InvoiceHandler struct {
	issue *billing.IssueUseCase
	query *billing.QueryUseCase
	pdf   *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(issue *billing.IssueUseCase, query *billing.QueryUseCase, pdf *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{issue: issue, query: query, pdf: pdf}
}

// Create autoriza un comprobante ante AFIP. Idempotente por order_id.
// POST /api/facturas
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.FacturarRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	order, err := in.ToOrder()
	if err != nil {
		return writeDomainError(c, err)
	}
	invoice, err := h.issue.Issue(c.Context(), order)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromInvoice(invoice))
}

// List lista los comprobantes autorizados más recientes.
// GET /api/facturas?limit=50&offset=0
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	invoices, err := h.query.ListRecent(c.Context(), limit, offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.FacturaResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, dto.FromInvoice(inv))
	}
	return c.JSON(out)
}

// GetByOrder devuelve el comprobante de la orden, o sus rechazos si nunca se autorizó.
// GET /api/facturas/:orderID
func (h *InvoiceHandler) GetByOrder(c *fiber.Ctx) error {
	orderID := c.Params("orderID")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "order_id requerido"})
	}
	invoice, rejections, err := h.query.GetByOrder(c.Context(), orderID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if invoice != nil {
		return c.JSON(dto.FromInvoice(invoice))
	}
	out := make([]dto.RechazoResponse, 0, len(rejections))
	for _, att := range rejections {
		out = append(out, dto.FromRejection(att))
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"rechazos": out})
}

// GetByDocument busca por la clave fiscal.
// GET /api/facturas/documento/:pos/:tipo/:numero
func (h *InvoiceHandler) GetByDocument(c *fiber.Ctx) error {
	pos, err1 := strconv.Atoi(c.Params("pos"))
	tipo, err2 := strconv.Atoi(c.Params("tipo"))
	numero, err3 := strconv.ParseInt(c.Params("numero"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "pos, tipo y numero deben ser numéricos"})
	}
	invoice, err := h.query.GetByDocument(c.Context(), pos, tipo, numero)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.FromInvoice(invoice))
}

// DownloadPDF descarga la representación gráfica del comprobante autorizado.
// GET /api/facturas/:orderID/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	orderID := c.Params("orderID")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "order_id requerido"})
	}
	pdfBytes, filename, err := h.pdf.DownloadInvoicePDF(c.Context(), orderID)
	if err != nil {
		return writeDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// writeDomainError mapea la taxonomía de errores del dominio a códigos HTTP.
func writeDomainError(c *fiber.Ctx, err error) error {
	var (
		verr        *domain.ValidationError
		rejected    *domain.RejectedError
		unavailable *domain.AuthorityUnavailableError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: verr.Reason, Details: []string{verr.Field},
		})
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Code: "RECHAZADO", Message: rejected.Error(), Details: rejected.Messages,
		})
	case errors.As(err, &unavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "AFIP_NO_DISPONIBLE", Message: "AFIP no disponible, reintentar más tarde",
		})
	case errors.Is(err, domain.ErrAuthFailure):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Code: "AFIP_AUTH", Message: "fallo de autenticación con AFIP, requiere intervención",
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
