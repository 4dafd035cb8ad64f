package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	"github.com/tu-usuario/facturador-afip/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository sobre PostgreSQL (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, order_id, service_ref, punto_venta, tipo_cbte, numero,
	cae, cae_vto, fecha_emision, tipo_doc, nro_doc,
	imp_neto, imp_iva, imp_total, moneda, moneda_cotiz,
	observaciones, created_at`

// RecordAuthorized persiste un comprobante autorizado. Idempotente por
// order_id: si la orden ya tiene un registro con el mismo CAE es un no-op; con
// un CAE distinto devuelve ErrDuplicate, porque eso indica doble autorización.
// Una colisión de numeración fiscal (otra orden ya registró ese número) es
// ErrConflict: la secuencia local quedó desfasada, no es un duplicado de orden.
func (r *InvoiceRepo) RecordAuthorized(ctx context.Context, inv *entity.AuthorizedInvoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	obs, err := json.Marshal(inv.Observations)
	if err != nil {
		return fmt.Errorf("serializar observaciones: %w", err)
	}

	query := `
		INSERT INTO facturas_autorizadas (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = r.q.Exec(ctx, query,
		inv.ID, inv.OrderID, inv.ServiceRef, inv.PointOfSale, inv.VoucherType, inv.Number,
		inv.CAE, inv.CAEExpiry, inv.IssueDate, inv.DocType, inv.DocNumber,
		inv.NetAmount, inv.VATAmount, inv.TotalAmount, inv.Currency, inv.CurrencyRate,
		obs, inv.CreatedAt,
	)
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	if !ok {
		return fmt.Errorf("insert factura autorizada: %w", err)
	}
	if constraint == "uq_facturas_numero" {
		return fmt.Errorf("%w: el comprobante %d-%d-%d ya está registrado para otra orden",
			domain.ErrConflict, inv.PointOfSale, inv.VoucherType, inv.Number)
	}

	existing, ferr := r.FindByOrder(ctx, inv.OrderID)
	if ferr != nil {
		return fmt.Errorf("verificar duplicado de orden %s: %w", inv.OrderID, ferr)
	}
	if existing == nil {
		// La unicidad violada no fue la de la orden: colisión de numeración.
		return fmt.Errorf("%w: el comprobante %d-%d-%d ya está registrado para otra orden",
			domain.ErrConflict, inv.PointOfSale, inv.VoucherType, inv.Number)
	}
	if existing.CAE == inv.CAE {
		return nil
	}
	return fmt.Errorf("%w: la orden %s ya tiene un comprobante con otro CAE", domain.ErrDuplicate, inv.OrderID)
}

// RecordRejected registra un intento rechazado (append-only, sin unicidad).
func (r *InvoiceRepo) RecordRejected(ctx context.Context, att *entity.RejectedAttempt) error {
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	query := `
		INSERT INTO intentos_rechazados (id, order_id, punto_venta, tipo_cbte, codigos, mensajes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		att.ID, att.OrderID, att.PointOfSale, att.VoucherType,
		toInt32Slice(att.Codes), att.Messages, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert intento rechazado: %w", err)
	}
	return nil
}

// FindByOrder devuelve el comprobante autorizado de la orden, o nil si no existe.
func (r *InvoiceRepo) FindByOrder(ctx context.Context, orderID string) (*entity.AuthorizedInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM facturas_autorizadas WHERE order_id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, orderID))
}

// FindByDocument busca por la clave fiscal (punto de venta, tipo, número).
func (r *InvoiceRepo) FindByDocument(ctx context.Context, pointOfSale, voucherType int, number int64) (*entity.AuthorizedInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM facturas_autorizadas
		WHERE punto_venta = $1 AND tipo_cbte = $2 AND numero = $3`
	return r.scanOne(r.q.QueryRow(ctx, query, pointOfSale, voucherType, number))
}

// FindRejectionsByOrder lista los rechazos de la orden, del más reciente al más antiguo.
func (r *InvoiceRepo) FindRejectionsByOrder(ctx context.Context, orderID string) ([]*entity.RejectedAttempt, error) {
	query := `
		SELECT id, order_id, punto_venta, tipo_cbte, codigos, mensajes, created_at
		FROM intentos_rechazados
		WHERE order_id = $1
		ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("listar rechazos: %w", err)
	}
	defer rows.Close()

	var out []*entity.RejectedAttempt
	for rows.Next() {
		att := &entity.RejectedAttempt{}
		var codes []int32
		if err := rows.Scan(
			&att.ID, &att.OrderID, &att.PointOfSale, &att.VoucherType,
			&codes, &att.Messages, &att.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rechazo: %w", err)
		}
		att.Codes = toIntSlice(codes)
		out = append(out, att)
	}
	return out, rows.Err()
}

// ListRecent lista comprobantes autorizados ordenados por creación descendente.
func (r *InvoiceRepo) ListRecent(ctx context.Context, limit, offset int) ([]*entity.AuthorizedInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM facturas_autorizadas
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar facturas: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuthorizedInvoice
	for rows.Next() {
		inv, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ── Scan helpers ──────────────────────────────────────────────────────────────

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.AuthorizedInvoice, error) {
	inv, err := r.scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) scanRow(row pgx.Row) (*entity.AuthorizedInvoice, error) {
	inv := &entity.AuthorizedInvoice{}
	var obs []byte
	if err := row.Scan(
		&inv.ID, &inv.OrderID, &inv.ServiceRef, &inv.PointOfSale, &inv.VoucherType, &inv.Number,
		&inv.CAE, &inv.CAEExpiry, &inv.IssueDate, &inv.DocType, &inv.DocNumber,
		&inv.NetAmount, &inv.VATAmount, &inv.TotalAmount, &inv.Currency, &inv.CurrencyRate,
		&obs, &inv.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan factura: %w", err)
	}
	if len(obs) > 0 {
		if err := json.Unmarshal(obs, &inv.Observations); err != nil {
			return nil, fmt.Errorf("deserializar observaciones: %w", err)
		}
	}
	return inv, nil
}

func toInt32Slice(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func toIntSlice(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
