package billing

import (
	"context"
	"fmt"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	"github.com/tu-usuario/facturador-afip/internal/domain/repository"
)

// QueryUseCase consultas de comprobantes: contra el Invoice Store local y,
// para verificación, directamente contra AFIP.
type QueryUseCase struct {
	repo    repository.InvoiceRepository
	tickets TicketSource
	authz   AuthorizationService
	info    AuthorityInfoService
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(
	repo repository.InvoiceRepository,
	tickets TicketSource,
	authz AuthorizationService,
	info AuthorityInfoService,
) *QueryUseCase {
	return &QueryUseCase{repo: repo, tickets: tickets, authz: authz, info: info}
}

// GetByOrder devuelve el comprobante autorizado para la orden, o los rechazos
// registrados si nunca se autorizó. domain.ErrNotFound si no hay rastro.
func (uc *QueryUseCase) GetByOrder(ctx context.Context, orderID string) (*entity.AuthorizedInvoice, []*entity.RejectedAttempt, error) {
	inv, err := uc.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("consultar orden %s: %w", orderID, err)
	}
	if inv != nil {
		return inv, nil, nil
	}
	rejections, err := uc.repo.FindRejectionsByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("consultar rechazos de %s: %w", orderID, err)
	}
	if len(rejections) == 0 {
		return nil, nil, domain.ErrNotFound
	}
	return nil, rejections, nil
}

// GetByDocument busca por clave fiscal (punto de venta, tipo, número).
func (uc *QueryUseCase) GetByDocument(ctx context.Context, pointOfSale, voucherType int, number int64) (*entity.AuthorizedInvoice, error) {
	inv, err := uc.repo.FindByDocument(ctx, pointOfSale, voucherType, number)
	if err != nil {
		return nil, fmt.Errorf("consultar comprobante %d-%d-%d: %w", pointOfSale, voucherType, number, err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// ListRecent lista los comprobantes autorizados más recientes.
func (uc *QueryUseCase) ListRecent(ctx context.Context, limit, offset int) ([]*entity.AuthorizedInvoice, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.ListRecent(ctx, limit, offset)
}

// QueryAuthority consulta FECompConsultar directamente en AFIP, sin pasar por
// el almacenamiento local. Útil para verificación y conciliación manual.
func (uc *QueryUseCase) QueryAuthority(ctx context.Context, pointOfSale, voucherType int, number int64) (*VoucherInfo, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	info, err := uc.authz.QueryVoucher(ctx, ticket, pointOfSale, voucherType, number)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, domain.ErrNotFound
	}
	return info, nil
}

// AuthorityStatus estado de los servidores de AFIP (FEDummy, sin ticket).
func (uc *QueryUseCase) AuthorityStatus(ctx context.Context) (*ServerStatus, error) {
	return uc.info.ServerStatus(ctx)
}

// VoucherTypes catálogo de tipos de comprobante de AFIP.
func (uc *QueryUseCase) VoucherTypes(ctx context.Context) ([]CatalogItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.VoucherTypes(ctx, ticket)
}

// DocumentTypes catálogo de tipos de documento del receptor.
func (uc *QueryUseCase) DocumentTypes(ctx context.Context) ([]CatalogItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.DocumentTypes(ctx, ticket)
}

// VATTypes catálogo de alícuotas de IVA.
func (uc *QueryUseCase) VATTypes(ctx context.Context) ([]CatalogItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.VATTypes(ctx, ticket)
}

// ConceptTypes catálogo de conceptos (productos, servicios, ambos).
func (uc *QueryUseCase) ConceptTypes(ctx context.Context) ([]CatalogItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.ConceptTypes(ctx, ticket)
}

// ReceiverTaxConditions condiciones frente al IVA admitidas para el receptor.
func (uc *QueryUseCase) ReceiverTaxConditions(ctx context.Context) ([]CatalogItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.ReceiverTaxConditions(ctx, ticket)
}

// Currencies catálogo de monedas habilitadas.
func (uc *QueryUseCase) Currencies(ctx context.Context) ([]CurrencyItem, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.Currencies(ctx, ticket)
}

// SalesPoints puntos de venta habilitados según AFIP.
func (uc *QueryUseCase) SalesPoints(ctx context.Context) ([]SalesPoint, error) {
	ticket, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
	if err != nil {
		return nil, err
	}
	return uc.info.SalesPoints(ctx, ticket)
}
