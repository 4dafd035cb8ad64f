package repository

import (
	"context"

	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

// InvoiceRepository persistencia de resultados de autorización (Invoice Store).
// Los registros son append-only. RecordAuthorized debe ser idempotente por
// order_id: un segundo registro con el mismo CAE es un no-op.
type InvoiceRepository interface {
	RecordAuthorized(ctx context.Context, inv *entity.AuthorizedInvoice) error
	RecordRejected(ctx context.Context, att *entity.RejectedAttempt) error

	// FindByOrder devuelve el comprobante autorizado para la orden, o nil si
	// no existe.
	FindByOrder(ctx context.Context, orderID string) (*entity.AuthorizedInvoice, error)

	// FindByDocument busca por la clave fiscal (punto de venta, tipo, número).
	FindByDocument(ctx context.Context, pointOfSale, voucherType int, number int64) (*entity.AuthorizedInvoice, error)

	// FindRejectionsByOrder devuelve los intentos rechazados para la orden,
	// del más reciente al más antiguo.
	FindRejectionsByOrder(ctx context.Context, orderID string) ([]*entity.RejectedAttempt, error)

	// ListRecent lista comprobantes autorizados ordenados por creación descendente.
	ListRecent(ctx context.Context, limit, offset int) ([]*entity.AuthorizedInvoice, error)
}
