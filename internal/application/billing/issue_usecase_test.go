package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de los puertos de salida
// ──────────────────────────────────────────────────────────────────────────────

type fakeTicketSource struct {
	calls    int
	failFrom int // a partir de esta llamada (1-based) devuelve err; 0 = siempre
	err      error
}

func (f *fakeTicketSource) GetValidTicket(_ context.Context, service string) (*entity.AccessTicket, error) {
	f.calls++
	if f.err != nil && f.calls >= f.failFrom {
		return nil, f.err
	}
	now := time.Now()
	return &entity.AccessTicket{
		Token:       "tok",
		Sign:        "sig",
		Service:     service,
		Environment: entity.EnvHomologation,
		IssuedAt:    now,
		ExpiresAt:   now.Add(12 * time.Hour),
	}, nil
}

// fakeAuthz simula el cliente WSFEv1. Cada campo de comportamiento modela un
// escenario: respuestas fijas, fallas transitorias agotables y el estado del
// FECompConsultar para la reconciliación.
type fakeAuthz struct {
	mu sync.Mutex

	authorizeCalls int
	transientLeft  int // fallas transitorias a devolver antes de responder
	result         *billing.AuthorizationResult

	lastAuthorized int64

	queryCalls int
	voucher    *billing.VoucherInfo // lo que "existe" en AFIP al consultar
	queryErr   error
}

func (f *fakeAuthz) Authorize(_ context.Context, _ *entity.AccessTicket, _ *billing.FiscalRequest) (*billing.AuthorizationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorizeCalls++
	if f.transientLeft > 0 {
		f.transientLeft--
		return nil, domain.NewTransientError(errors.New("read tcp: connection reset"))
	}
	return f.result, nil
}

func (f *fakeAuthz) LastAuthorized(_ context.Context, _ *entity.AccessTicket, _, _ int) (int64, error) {
	return f.lastAuthorized, nil
}

func (f *fakeAuthz) QueryVoucher(_ context.Context, _ *entity.AccessTicket, _, _ int, _ int64) (*billing.VoucherInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.voucher, nil
}

// seqSourceFromAuthz adapta el fake a LastNumberSource, como hace el wiring real.
type seqSourceFromAuthz struct{ authz *fakeAuthz }

func (s seqSourceFromAuthz) LastAuthorizedNumber(_ context.Context, _, _ int) (int64, error) {
	return s.authz.lastAuthorized, nil
}

type fakeRepo struct {
	mu         sync.Mutex
	byOrder    map[string]*entity.AuthorizedInvoice
	rejections []*entity.RejectedAttempt
	recordErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byOrder: make(map[string]*entity.AuthorizedInvoice)}
}

func (f *fakeRepo) RecordAuthorized(_ context.Context, inv *entity.AuthorizedInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.byOrder[inv.OrderID] = inv
	return nil
}

func (f *fakeRepo) RecordRejected(_ context.Context, att *entity.RejectedAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, att)
	return nil
}

func (f *fakeRepo) FindByOrder(_ context.Context, orderID string) (*entity.AuthorizedInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byOrder[orderID], nil
}

func (f *fakeRepo) FindByDocument(_ context.Context, _, _ int, _ int64) (*entity.AuthorizedInvoice, error) {
	return nil, nil
}

func (f *fakeRepo) FindRejectionsByOrder(_ context.Context, orderID string) ([]*entity.RejectedAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.RejectedAttempt
	for _, att := range f.rejections {
		if att.OrderID == orderID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListRecent(_ context.Context, _, _ int) ([]*entity.AuthorizedInvoice, error) {
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado del caso de uso bajo test
// ──────────────────────────────────────────────────────────────────────────────

type issueFixture struct {
	uc      *billing.IssueUseCase
	tickets *fakeTicketSource
	authz   *fakeAuthz
	repo    *fakeRepo
	seq     *billing.SequenceTracker
}

func approvedResult(cae string) *billing.AuthorizationResult {
	return &billing.AuthorizationResult{
		Outcome:   billing.OutcomeApproved,
		CAE:       cae,
		CAEExpiry: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	}
}

func newIssueFixture(t *testing.T, authz *fakeAuthz) *issueFixture {
	t.Helper()
	tickets := &fakeTicketSource{}
	repo := newFakeRepo()
	seq := billing.NewSequenceTracker(seqSourceFromAuthz{authz: authz})
	builder := billing.NewRequestBuilder(nil, func() time.Time {
		return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	})
	uc := billing.NewIssueUseCase(
		tickets, authz, seq, repo, builder,
		testPolicy(3), zerolog.Nop(), nil,
	)
	return &issueFixture{uc: uc, tickets: tickets, authz: authz, repo: repo, seq: seq}
}

func orderForIssue(id string) *entity.BillingOrder {
	return &entity.BillingOrder{
		OrderID:      id,
		ServiceRef:   "viaje-77",
		PointOfSale:  1,
		VoucherType:  pkgafip.VoucherFacturaB,
		Concept:      pkgafip.ConceptProducts,
		DocType:      pkgafip.DocTypeCUIT,
		DocNumber:    "20111111112",
		TaxCondition: pkgafip.TaxCondConsumidorFinal,
		NetAmount:    decimal.NewFromInt(1000),
		VATAmount:    decimal.NewFromInt(210),
		TotalAmount:  decimal.NewFromInt(1210),
		Currency:     pkgafip.CurrencyPeso,
		CurrencyRate: decimal.NewFromInt(1),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestIssue_CaminoFeliz(t *testing.T) {
	authz := &fakeAuthz{result: approvedResult("71234567890123"), lastAuthorized: 41}
	fx := newIssueFixture(t, authz)

	inv, err := fx.uc.Issue(context.Background(), orderForIssue("orden-100"))
	require.NoError(t, err)

	assert.Equal(t, "71234567890123", inv.CAE)
	assert.Equal(t, int64(42), inv.Number, "debe usar último autorizado + 1")
	assert.Equal(t, 1, authz.authorizeCalls)

	persisted, _ := fx.repo.FindByOrder(context.Background(), "orden-100")
	require.NotNil(t, persisted, "el comprobante aprobado debe persistirse")
	assert.Equal(t, inv.CAE, persisted.CAE)

	// La numeración quedó confirmada: la próxima emisión usa el siguiente número.
	res, err := fx.seq.Reserve(context.Background(), 1, pkgafip.VoucherFacturaB)
	require.NoError(t, err)
	assert.Equal(t, int64(43), res.Number)
	res.Release()
}

func TestIssue_IdempotenciaNoTocaAFIP(t *testing.T) {
	authz := &fakeAuthz{result: approvedResult("71234567890123")}
	fx := newIssueFixture(t, authz)

	first, err := fx.uc.Issue(context.Background(), orderForIssue("orden-200"))
	require.NoError(t, err)
	require.Equal(t, 1, authz.authorizeCalls)
	ticketCalls := fx.tickets.calls

	second, err := fx.uc.Issue(context.Background(), orderForIssue("orden-200"))
	require.NoError(t, err)

	assert.Equal(t, first.CAE, second.CAE)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, 1, authz.authorizeCalls, "la reemisión de una orden autorizada no llama a AFIP")
	assert.Equal(t, ticketCalls, fx.tickets.calls, "tampoco vuelve a pedir ticket")
}

func TestIssue_ValidacionFallaSinRedNiNumeracion(t *testing.T) {
	authz := &fakeAuthz{result: approvedResult("71234567890123")}
	fx := newIssueFixture(t, authz)

	order := orderForIssue("orden-300")
	order.TotalAmount = decimal.NewFromInt(1300) // no cierra contra el desglose

	_, err := fx.uc.Issue(context.Background(), order)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "imp_total", verr.Field)
	assert.Zero(t, authz.authorizeCalls, "una orden inválida no genera tráfico a AFIP")
	assert.Zero(t, fx.tickets.calls, "ni siquiera se pide ticket")
}

func TestIssue_RechazoLiberaNumeroYRegistraIntento(t *testing.T) {
	authz := &fakeAuthz{
		result: &billing.AuthorizationResult{
			Outcome:  billing.OutcomeRejected,
			Codes:    []int{10016},
			Messages: []string{"Campo CbteFch: la fecha es inválida"},
		},
		lastAuthorized: 9,
	}
	fx := newIssueFixture(t, authz)

	_, err := fx.uc.Issue(context.Background(), orderForIssue("orden-400"))

	var rejErr *domain.RejectedError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, []int{10016}, rejErr.Codes)

	// El rechazo quedó registrado para auditoría.
	rejs, _ := fx.repo.FindRejectionsByOrder(context.Background(), "orden-400")
	require.Len(t, rejs, 1)
	assert.Equal(t, []int{10016}, rejs[0].Codes)

	// Y no hay comprobante autorizado.
	inv, _ := fx.repo.FindByOrder(context.Background(), "orden-400")
	assert.Nil(t, inv)

	// El número reservado volvió al pool: la próxima reserva lo reutiliza.
	res, err := fx.seq.Reserve(context.Background(), 1, pkgafip.VoucherFacturaB)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Number, "el número del intento rechazado debe reutilizarse")
	res.Release()
}

func TestIssue_TransitoriosAgotadosLiberaNumero(t *testing.T) {
	authz := &fakeAuthz{
		transientLeft:  10, // más fallas que intentos disponibles
		lastAuthorized: 4,
		// la reconciliación no encuentra nada en AFIP, así que se reintenta
		voucher: nil,
	}
	fx := newIssueFixture(t, authz)

	_, err := fx.uc.Issue(context.Background(), orderForIssue("orden-500"))

	var unavailable *domain.AuthorityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, 3, authz.authorizeCalls, "se respeta el presupuesto de intentos")

	inv, _ := fx.repo.FindByOrder(context.Background(), "orden-500")
	assert.Nil(t, inv, "sin autorización no se persiste nada")

	res, err := fx.seq.Reserve(context.Background(), 1, pkgafip.VoucherFacturaB)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Number, "el número liberado queda disponible")
	res.Release()
}

func TestIssue_TicketRevocadoDuranteReintentosCortaLaEmision(t *testing.T) {
	// El intento 1 falla por transporte; antes del intento 2 la renovación del
	// ticket devuelve una falla de credenciales. Eso es terminal: no se sigue
	// reintentando con el ticket viejo.
	authz := &fakeAuthz{transientLeft: 1, lastAuthorized: 41}
	fx := newIssueFixture(t, authz)
	fx.tickets.failFrom = 3 // llamada 1: paso de emisión; llamada 2: intento 1
	fx.tickets.err = fmt.Errorf("%w: certificado revocado", domain.ErrAuthFailure)

	_, err := fx.uc.Issue(context.Background(), orderForIssue("orden-900"))

	require.ErrorIs(t, err, domain.ErrAuthFailure)
	assert.Equal(t, 1, authz.authorizeCalls, "sin credenciales no se vuelve a enviar")

	// El número reservado volvió al pool.
	res, rerr := fx.seq.Reserve(context.Background(), 1, pkgafip.VoucherFacturaB)
	require.NoError(t, rerr)
	assert.Equal(t, int64(42), res.Number)
	res.Release()
}

func TestIssue_ReconciliacionRecuperaComprobanteYaAutorizado(t *testing.T) {
	// Primer envío: falla de transporte DESPUÉS de llegar a AFIP. El segundo
	// intento consulta FECompConsultar, encuentra el comprobante aprobado con
	// los mismos datos y lo recupera sin reemitir.
	authz := &fakeAuthz{
		transientLeft:  1,
		lastAuthorized: 41,
		voucher: &billing.VoucherInfo{
			PointOfSale: 1,
			VoucherType: pkgafip.VoucherFacturaB,
			Number:      42,
			CAE:         "79876543210987",
			CAEExpiry:   time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			IssueDate:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			Result:      "A",
			DocType:     pkgafip.DocTypeCUIT,
			DocNumber:   "20111111112",
			TotalAmount: decimal.NewFromInt(1210),
		},
	}
	fx := newIssueFixture(t, authz)

	inv, err := fx.uc.Issue(context.Background(), orderForIssue("orden-600"))
	require.NoError(t, err)

	assert.Equal(t, "79876543210987", inv.CAE, "se adopta el CAE del comprobante existente")
	assert.Equal(t, int64(42), inv.Number)
	assert.Equal(t, 1, authz.authorizeCalls, "no se reenvía un comprobante que AFIP ya autorizó")
	assert.Equal(t, 1, authz.queryCalls)

	persisted, _ := fx.repo.FindByOrder(context.Background(), "orden-600")
	require.NotNil(t, persisted)
	assert.Equal(t, "79876543210987", persisted.CAE)
}

func TestIssue_ReconciliacionDetectaNumeroAjeno(t *testing.T) {
	// El comprobante 42 existe en AFIP pero con OTRO receptor y otro total:
	// otro emisor consumió la numeración. No hay que adoptarlo ni pisarlo.
	authz := &fakeAuthz{
		transientLeft:  1,
		lastAuthorized: 41,
		voucher: &billing.VoucherInfo{
			PointOfSale: 1,
			VoucherType: pkgafip.VoucherFacturaB,
			Number:      42,
			CAE:         "70000000000001",
			Result:      "A",
			DocType:     pkgafip.DocTypeCUIT,
			DocNumber:   "30500010912",
			TotalAmount: decimal.NewFromInt(999),
		},
	}
	fx := newIssueFixture(t, authz)

	// La reconciliación invalida la secuencia con su reserva todavía abierta;
	// Issue debe terminar igual, sin bloquearse sobre el tracker.
	var issueErr error
	done := make(chan struct{})
	go func() {
		_, issueErr = fx.uc.Issue(context.Background(), orderForIssue("orden-700"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Issue no terminó tras detectar el conflicto de numeración")
	}

	require.ErrorIs(t, issueErr, domain.ErrConflict)
	assert.Equal(t, 1, authz.authorizeCalls, "ante el conflicto no se reemite")

	inv, _ := fx.repo.FindByOrder(context.Background(), "orden-700")
	assert.Nil(t, inv)

	// La secuencia quedó invalidada: la próxima reserva consulta de nuevo a AFIP.
	authz.lastAuthorized = 42
	res, err := fx.seq.Reserve(context.Background(), 1, pkgafip.VoucherFacturaB)
	require.NoError(t, err)
	assert.Equal(t, int64(43), res.Number, "tras el conflicto se resiembra desde el último autorizado real")
	res.Release()
}

func TestIssue_AprobadoConObservaciones(t *testing.T) {
	authz := &fakeAuthz{
		result: &billing.AuthorizationResult{
			Outcome:   billing.OutcomeApprovedWithObservations,
			CAE:       "71111111111111",
			CAEExpiry: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			Observations: []entity.Observation{
				{Code: 10017, Message: "Fecha de servicio ajustada"},
			},
		},
	}
	fx := newIssueFixture(t, authz)

	inv, err := fx.uc.Issue(context.Background(), orderForIssue("orden-800"))
	require.NoError(t, err)

	assert.Equal(t, "71111111111111", inv.CAE)
	require.Len(t, inv.Observations, 1, "las observaciones de AFIP se conservan en el registro")
	assert.Equal(t, 10017, inv.Observations[0].Code)
}
