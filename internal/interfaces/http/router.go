package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	IssueUC   *billing.IssueUseCase
	QueryUC   *billing.QueryUseCase
	PDFUC     *billing.PDFUseCase
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Health (público, para orquestadores y balanceadores)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	invoiceHandler := NewInvoiceHandler(deps.IssueUC, deps.QueryUC, deps.PDFUC)
	afipHandler := NewAFIPHandler(deps.QueryUC)

	// Facturación: emitir requiere scope de facturación, el resto es lectura.
	facturas := api.Group("/facturas")
	facturas.Post("/", RequireScope(ScopeFacturacion), invoiceHandler.Create)
	facturas.Get("/", RequireScope(ScopeConsulta), invoiceHandler.List)
	facturas.Get("/documento/:pos/:tipo/:numero", RequireScope(ScopeConsulta), invoiceHandler.GetByDocument)
	facturas.Get("/:orderID", RequireScope(ScopeConsulta), invoiceHandler.GetByOrder)
	facturas.Get("/:orderID/pdf", RequireScope(ScopeConsulta), invoiceHandler.DownloadPDF)

	// Consultas directas contra AFIP
	afip := api.Group("/afip")
	afip.Post("/consultar", RequireScope(ScopeConsulta), afipHandler.Consultar)
	afip.Get("/estado", RequireScope(ScopeConsulta), afipHandler.Estado)
	afip.Get("/parametros/tipos-cbte", RequireScope(ScopeConsulta), afipHandler.TiposCbte)
	afip.Get("/parametros/tipos-doc", RequireScope(ScopeConsulta), afipHandler.TiposDoc)
	afip.Get("/parametros/tipos-iva", RequireScope(ScopeConsulta), afipHandler.TiposIva)
	afip.Get("/parametros/tipos-concepto", RequireScope(ScopeConsulta), afipHandler.TiposConcepto)
	afip.Get("/parametros/condiciones-iva", RequireScope(ScopeConsulta), afipHandler.CondicionesIva)
	afip.Get("/parametros/monedas", RequireScope(ScopeConsulta), afipHandler.Monedas)
	afip.Get("/parametros/ptos-venta", RequireScope(ScopeConsulta), afipHandler.PtosVenta)
}
