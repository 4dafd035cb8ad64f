package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

// TicketSource define el puerto de la caché de credenciales WSAA. La
// implementación concreta devuelve el ticket cacheado mientras sea válido y
// lo readquiere ante expiración; para tests se inyecta un fake.
type TicketSource interface {
	GetValidTicket(ctx context.Context, service string) (*entity.AccessTicket, error)
}

// Resultado de la autorización, como conjunto cerrado de variantes tipadas.
// El parseo de la respuesta laxa de AFIP ocurre en la frontera (cliente WSFE);
// el resto del núcleo opera solo sobre estos casos.
type Outcome int

const (
	OutcomeApproved Outcome = iota + 1
	OutcomeApprovedWithObservations
	OutcomeRejected
)

// AuthorizationResult resultado de FECAESolicitar ya interpretado.
type AuthorizationResult struct {
	Outcome   Outcome
	CAE       string
	CAEExpiry time.Time

	// Observaciones de AFIP (aprobaciones con reparos).
	Observations []entity.Observation

	// Códigos y mensajes de rechazo (Outcome == OutcomeRejected).
	Codes    []int
	Messages []string
}

// VoucherInfo comprobante existente en AFIP, devuelto por FECompConsultar.
// Se usa para la reconciliación de envíos con resultado desconocido y para la
// consulta directa expuesta por la API.
type VoucherInfo struct {
	PointOfSale int
	VoucherType int
	Number      int64
	CAE         string
	CAEExpiry   time.Time
	IssueDate   time.Time
	Result      string // "A" aprobado, "R" rechazado
	DocType     int
	DocNumber   string
	TotalAmount decimal.Decimal
	NetAmount   decimal.Decimal
	VATAmount   decimal.Decimal
}

// AuthorizationService puerto de salida hacia el WSFEv1. Las fallas
// transitorias llegan como *domain.TransientAuthorityError; los problemas de
// credenciales como domain.ErrAuthFailure envuelto. Un rechazo de negocio NO
// es un error: llega como AuthorizationResult con OutcomeRejected.
type AuthorizationService interface {
	Authorize(ctx context.Context, ticket *entity.AccessTicket, req *FiscalRequest) (*AuthorizationResult, error)

	// LastAuthorized consulta FECompUltimoAutorizado para sembrar la secuencia.
	LastAuthorized(ctx context.Context, ticket *entity.AccessTicket, pointOfSale, voucherType int) (int64, error)

	// QueryVoucher consulta FECompConsultar; devuelve nil si el comprobante no existe.
	QueryVoucher(ctx context.Context, ticket *entity.AccessTicket, pointOfSale, voucherType int, number int64) (*VoucherInfo, error)
}

// ServerStatus estado de los servidores de AFIP (FEDummy).
type ServerStatus struct {
	AppServer  string
	DbServer   string
	AuthServer string
}

// CatalogItem entrada de un catálogo de parámetros de AFIP (FEParamGet*).
type CatalogItem struct {
	ID          int
	Description string
}

// CurrencyItem entrada del catálogo de monedas; el identificador de AFIP es
// alfabético ("PES", "DOL").
type CurrencyItem struct {
	ID          string
	Description string
}

// SalesPoint punto de venta habilitado (FEParamGetPtosVenta).
type SalesPoint struct {
	Number       int
	EmissionType string
	Blocked      bool
}

// AuthorityInfoService operaciones informativas del WSFEv1 expuestas por la API.
type AuthorityInfoService interface {
	ServerStatus(ctx context.Context) (*ServerStatus, error)
	VoucherTypes(ctx context.Context, ticket *entity.AccessTicket) ([]CatalogItem, error)
	DocumentTypes(ctx context.Context, ticket *entity.AccessTicket) ([]CatalogItem, error)
	VATTypes(ctx context.Context, ticket *entity.AccessTicket) ([]CatalogItem, error)
	ConceptTypes(ctx context.Context, ticket *entity.AccessTicket) ([]CatalogItem, error)
	ReceiverTaxConditions(ctx context.Context, ticket *entity.AccessTicket) ([]CatalogItem, error)
	Currencies(ctx context.Context, ticket *entity.AccessTicket) ([]CurrencyItem, error)
	SalesPoints(ctx context.Context, ticket *entity.AccessTicket) ([]SalesPoint, error)
}

// IssuerInfo datos del emisor para la representación gráfica.
type IssuerInfo struct {
	Name    string
	CUIT    string
	Address string
	TaxCond string // condición IVA del emisor, ej. "IVA Responsable Inscripto"
}

// InvoicePDFGenerator puerto del renderizador PDF: función pura de un
// comprobante autorizado a bytes.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, inv *entity.AuthorizedInvoice, issuer IssuerInfo, qrURL string) ([]byte, error)
}
