package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	"github.com/tu-usuario/facturador-afip/internal/domain/repository"
)

// ServiceWSFE nombre del servicio de facturación ante WSAA.
const ServiceWSFE = "wsfe"

// IssueUseCase orquesta la emisión completa de un comprobante:
//
//	idempotencia → validación → ticket WSAA → reserva de numeración →
//	armado del request → FECAESolicitar (con reintentos acotados) →
//	confirmar/liberar numeración → persistir resultado
//
// Es seguro invocarlo concurrentemente para órdenes distintas del mismo punto
// de venta: la serialización ocurre solo en la reserva del SequenceTracker.
type IssueUseCase struct {
	tickets TicketSource
	authz   AuthorizationService
	seq     *SequenceTracker
	repo    repository.InvoiceRepository
	builder *RequestBuilder
	retry   RetryPolicy
	log     zerolog.Logger
	now     func() time.Time
}

// NewIssueUseCase construye el orquestador. now permite inyectar reloj en tests.
func NewIssueUseCase(
	tickets TicketSource,
	authz AuthorizationService,
	seq *SequenceTracker,
	repo repository.InvoiceRepository,
	builder *RequestBuilder,
	retry RetryPolicy,
	log zerolog.Logger,
	now func() time.Time,
) *IssueUseCase {
	if now == nil {
		now = time.Now
	}
	return &IssueUseCase{
		tickets: tickets,
		authz:   authz,
		seq:     seq,
		repo:    repo,
		builder: builder,
		retry:   retry,
		log:     log,
		now:     now,
	}
}

// Issue emite el comprobante para la orden. Devuelve el comprobante autorizado
// o un error tipado de la taxonomía de dominio (*ValidationError,
// ErrAuthFailure, *RejectedError, *AuthorityUnavailableError).
func (uc *IssueUseCase) Issue(ctx context.Context, order *entity.BillingOrder) (*entity.AuthorizedInvoice, error) {
	// ── 1. Idempotencia: una orden ya autorizada no vuelve a tocar AFIP ──────
	existing, err := uc.repo.FindByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, fmt.Errorf("consultar orden %s: %w", order.OrderID, err)
	}
	if existing != nil {
		uc.log.Info().Str("order_id", order.OrderID).Str("cae", existing.CAE).
			Msg("orden ya autorizada, se devuelve el registro existente")
		return existing, nil
	}

	// ── 2. Validación fiscal local: sin red, sin consumo de numeración ───────
	if err := uc.builder.Validate(order); err != nil {
		return nil, err
	}

	// ── 3. Ticket de acceso (la caché absorbe el costo entre llamadas) ───────
	ticket, err := uc.ensureTicket(ctx)
	if err != nil {
		return nil, err
	}

	// ── 4. Reserva exclusiva del próximo número del par (PV, tipo) ───────────
	res, err := uc.seq.Reserve(ctx, order.PointOfSale, order.VoucherType)
	if err != nil {
		return nil, err
	}

	// ── 5. Armado del request con el número reservado ────────────────────────
	req, err := uc.builder.Build(order, res.Number)
	if err != nil {
		res.Release()
		return nil, err
	}

	// ── 6. Autorización con reintentos acotados y reconciliación ─────────────
	invoice, err := uc.authorize(ctx, ticket, order, req)
	if err != nil {
		res.Release()
		uc.logReleased(order, res.Number, err)
		return nil, err
	}

	// ── 7. Confirmar numeración y persistir ─────────────────────────────────
	res.Confirm()
	if err := uc.repo.RecordAuthorized(ctx, invoice); err != nil {
		// El número ya fue consumido ante AFIP: esto exige conciliación manual,
		// no reemisión.
		uc.log.Error().Err(err).Str("order_id", order.OrderID).
			Int64("numero", invoice.Number).Str("cae", invoice.CAE).
			Msg("comprobante autorizado pero no persistido")
		return nil, fmt.Errorf("persistir comprobante autorizado: %w", err)
	}

	uc.log.Info().Str("order_id", order.OrderID).
		Int("punto_venta", invoice.PointOfSale).Int("tipo_cbte", invoice.VoucherType).
		Int64("numero", invoice.Number).Str("cae", invoice.CAE).
		Msg("comprobante autorizado")
	return invoice, nil
}

// ensureTicket obtiene un ticket válido reintentando fallas transitorias de WSAA.
func (uc *IssueUseCase) ensureTicket(ctx context.Context) (*entity.AccessTicket, error) {
	var ticket *entity.AccessTicket
	err := uc.retry.Run(ctx, func() error {
		t, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
		if err != nil {
			return err
		}
		ticket = t
		return nil
	})
	return ticket, err
}

// authorize ejecuta FECAESolicitar bajo la política de reintentos. Tras un
// envío con resultado desconocido (falla de transporte después de enviar),
// antes de reintentar consulta FECompConsultar por el número reservado para no
// autorizar dos veces la misma operación.
func (uc *IssueUseCase) authorize(
	ctx context.Context,
	ticket *entity.AccessTicket,
	order *entity.BillingOrder,
	req *FiscalRequest,
) (*entity.AuthorizedInvoice, error) {
	var (
		result    *AuthorizationResult
		recovered *VoucherInfo
		submitted bool
	)

	err := uc.retry.Run(ctx, func() error {
		t, err := uc.tickets.GetValidTicket(ctx, ServiceWSFE)
		if err != nil {
			if !domain.IsTransient(err) {
				// Credenciales revocadas en pleno reintento: no hay con qué seguir.
				return err
			}
			uc.log.Warn().Err(err).Str("order_id", order.OrderID).
				Msg("no se pudo renovar el ticket, se reintenta con el vigente")
			t = ticket // el ticket original puede seguir vigente
		}

		if submitted {
			info, qerr := uc.authz.QueryVoucher(ctx, t, req.PointOfSale, req.VoucherType, req.Number)
			switch {
			case qerr != nil:
				// Resultado aún desconocido: no reenviar a ciegas.
				return qerr
			case info != nil && info.Result == "A":
				if !voucherMatchesOrder(info, req) {
					// El número fue consumido por otra emisión: la secuencia
					// local quedó desfasada.
					uc.seq.Invalidate(req.PointOfSale, req.VoucherType)
					return fmt.Errorf("%w: el comprobante %d del PV %d ya existe con otros datos",
						domain.ErrConflict, req.Number, req.PointOfSale)
				}
				uc.log.Warn().Str("order_id", order.OrderID).Int64("numero", info.Number).
					Msg("envío previo ya autorizado por AFIP, se recupera sin reemitir")
				recovered = info
				return nil
			}
			// No existe en AFIP: es seguro reenviar.
		}

		submitted = true
		r, err := uc.authz.Authorize(ctx, t, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if recovered != nil {
		return uc.invoiceFromRecovered(order, recovered), nil
	}

	switch result.Outcome {
	case OutcomeApproved, OutcomeApprovedWithObservations:
		return uc.invoiceFromResult(order, req, result), nil
	case OutcomeRejected:
		rejErr := &domain.RejectedError{Codes: result.Codes, Messages: result.Messages}
		uc.recordRejection(ctx, order, rejErr)
		return nil, rejErr
	default:
		return nil, fmt.Errorf("resultado de autorización desconocido: %d", result.Outcome)
	}
}

func (uc *IssueUseCase) invoiceFromResult(
	order *entity.BillingOrder,
	req *FiscalRequest,
	result *AuthorizationResult,
) *entity.AuthorizedInvoice {
	now := uc.now()
	issueDate, _ := time.Parse(afipDate, req.IssueDate)
	return &entity.AuthorizedInvoice{
		ID:           uuid.New().String(),
		OrderID:      order.OrderID,
		ServiceRef:   order.ServiceRef,
		PointOfSale:  req.PointOfSale,
		VoucherType:  req.VoucherType,
		Number:       req.Number,
		CAE:          result.CAE,
		CAEExpiry:    result.CAEExpiry,
		IssueDate:    issueDate,
		DocType:      req.DocType,
		DocNumber:    req.DocNumber,
		NetAmount:    order.NetAmount,
		VATAmount:    order.VATAmount,
		TotalAmount:  order.TotalAmount,
		Currency:     order.Currency,
		CurrencyRate: order.CurrencyRate,
		Observations: result.Observations,
		CreatedAt:    now,
	}
}

func (uc *IssueUseCase) invoiceFromRecovered(order *entity.BillingOrder, info *VoucherInfo) *entity.AuthorizedInvoice {
	return &entity.AuthorizedInvoice{
		ID:           uuid.New().String(),
		OrderID:      order.OrderID,
		ServiceRef:   order.ServiceRef,
		PointOfSale:  info.PointOfSale,
		VoucherType:  info.VoucherType,
		Number:       info.Number,
		CAE:          info.CAE,
		CAEExpiry:    info.CAEExpiry,
		IssueDate:    info.IssueDate,
		DocType:      info.DocType,
		DocNumber:    info.DocNumber,
		NetAmount:    order.NetAmount,
		VATAmount:    order.VATAmount,
		TotalAmount:  order.TotalAmount,
		Currency:     order.Currency,
		CurrencyRate: order.CurrencyRate,
		CreatedAt:    uc.now(),
	}
}

func (uc *IssueUseCase) recordRejection(ctx context.Context, order *entity.BillingOrder, rejErr *domain.RejectedError) {
	att := &entity.RejectedAttempt{
		ID:          uuid.New().String(),
		OrderID:     order.OrderID,
		PointOfSale: order.PointOfSale,
		VoucherType: order.VoucherType,
		Codes:       rejErr.Codes,
		Messages:    rejErr.Messages,
		CreatedAt:   uc.now(),
	}
	if err := uc.repo.RecordRejected(ctx, att); err != nil {
		uc.log.Error().Err(err).Str("order_id", order.OrderID).
			Msg("no se pudo registrar el rechazo")
	}
	uc.log.Warn().Str("order_id", order.OrderID).Ints("codigos", rejErr.Codes).
		Msg("comprobante rechazado por AFIP")
}

// logReleased deja rastro de numeración liberada sin uso: ante
// AuthorityUnavailable puede quedar un hueco acotado que requiere conciliación
// manual contra AFIP.
func (uc *IssueUseCase) logReleased(order *entity.BillingOrder, number int64, cause error) {
	var unavailable *domain.AuthorityUnavailableError
	evt := uc.log.Warn()
	if errors.As(cause, &unavailable) {
		evt = uc.log.Error()
	}
	evt.Str("order_id", order.OrderID).
		Int("punto_venta", order.PointOfSale).Int("tipo_cbte", order.VoucherType).
		Int64("numero_liberado", number).Err(cause).
		Msg("numeración liberada sin autorizar")
}

// voucherMatchesOrder compara el comprobante existente en AFIP con lo que este
// proceso intentó emitir: mismo receptor y mismo total.
func voucherMatchesOrder(info *VoucherInfo, req *FiscalRequest) bool {
	if info.DocNumber != "" && info.DocNumber != req.DocNumber {
		return false
	}
	return info.TotalAmount.Equal(req.TotalAmount)
}
