package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
)

// fakeLastNumberSource simula FECompUltimoAutorizado con contadores por par.
type fakeLastNumberSource struct {
	mu    sync.Mutex
	last  map[[2]int]int64
	calls int
	err   error
}

func newFakeLastNumberSource(lastByPair map[[2]int]int64) *fakeLastNumberSource {
	if lastByPair == nil {
		lastByPair = make(map[[2]int]int64)
	}
	return &fakeLastNumberSource{last: lastByPair}
}

func (f *fakeLastNumberSource) LastAuthorizedNumber(_ context.Context, pos, vt int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.last[[2]int{pos, vt}], nil
}

func TestSequenceTracker_SiembraDesdeUltimoAutorizado(t *testing.T) {
	source := newFakeLastNumberSource(map[[2]int]int64{{1, 6}: 41})
	tracker := billing.NewSequenceTracker(source)

	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Number, "la primera reserva debe ser último autorizado + 1")
	res.Confirm()

	// La siembra ocurre una sola vez por par.
	res, err = tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(43), res.Number)
	res.Confirm()
	assert.Equal(t, 1, source.calls, "solo la primera reserva del par consulta a AFIP")
}

func TestSequenceTracker_ReleaseReutilizaElNumero(t *testing.T) {
	tracker := billing.NewSequenceTracker(newFakeLastNumberSource(nil))

	res, err := tracker.Reserve(context.Background(), 3, 11)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Number)
	res.Release()

	res, err = tracker.Reserve(context.Background(), 3, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Number, "un número liberado vuelve a entregarse")
	res.Confirm()

	res, err = tracker.Reserve(context.Background(), 3, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Number)
	res.Release()
}

func TestSequenceTracker_ParesIndependientes(t *testing.T) {
	source := newFakeLastNumberSource(map[[2]int]int64{
		{1, 6}:  100,
		{1, 11}: 7,
	})
	tracker := billing.NewSequenceTracker(source)

	resB, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	resC, err := tracker.Reserve(context.Background(), 1, 11)
	require.NoError(t, err)

	assert.Equal(t, int64(101), resB.Number)
	assert.Equal(t, int64(8), resC.Number, "cada par (PV, tipo) numera por separado")
	resB.Confirm()
	resC.Confirm()
}

func TestSequenceTracker_ErrorDeSiembraNoDejaBloqueado(t *testing.T) {
	source := newFakeLastNumberSource(nil)
	source.err = errors.New("AFIP caído")
	tracker := billing.NewSequenceTracker(source)

	_, err := tracker.Reserve(context.Background(), 1, 6)
	require.Error(t, err)

	// El par no queda bloqueado: al recuperarse la fuente, la reserva funciona.
	source.mu.Lock()
	source.err = nil
	source.last[[2]int{1, 6}] = 10
	source.mu.Unlock()

	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.Number)
	res.Confirm()
}

func TestSequenceTracker_InvalidateFuerzaResiembra(t *testing.T) {
	source := newFakeLastNumberSource(map[[2]int]int64{{1, 6}: 5})
	tracker := billing.NewSequenceTracker(source)

	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	require.Equal(t, int64(6), res.Number)
	res.Confirm()

	// Otro emisor consumió numeración por fuera de este proceso.
	source.mu.Lock()
	source.last[[2]int{1, 6}] = 20
	source.mu.Unlock()
	tracker.Invalidate(1, 6)

	res, err = tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(21), res.Number, "tras Invalidate se vuelve a consultar el último autorizado")
	res.Confirm()
	assert.Equal(t, 2, source.calls)
}

func TestSequenceTracker_InvalidateNoBloqueaConReservaAbierta(t *testing.T) {
	// La reconciliación del orquestador invalida la secuencia mientras su
	// propia reserva sigue abierta: Invalidate no puede esperar a Release.
	source := newFakeLastNumberSource(map[[2]int]int64{{1, 6}: 5})
	tracker := billing.NewSequenceTracker(source)

	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		tracker.Invalidate(1, 6)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Invalidate quedó bloqueado con una reserva abierta del mismo par")
	}
	res.Release()

	// La invalidación surte efecto: la próxima reserva resiembra.
	source.mu.Lock()
	source.last[[2]int{1, 6}] = 30
	source.mu.Unlock()

	res, err = tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(31), res.Number)
	res.Release()
	assert.Equal(t, 2, source.calls)
}

func TestSequenceTracker_ReservasConcurrentesNuncaRepitenNumero(t *testing.T) {
	const emisiones = 50
	tracker := billing.NewSequenceTracker(newFakeLastNumberSource(nil))

	var (
		mu    sync.Mutex
		vista = make(map[int64]bool)
		wg    sync.WaitGroup
	)
	for i := 0; i < emisiones; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tracker.Reserve(context.Background(), 1, 6)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			if vista[res.Number] {
				t.Errorf("número %d entregado dos veces", res.Number)
			}
			vista[res.Number] = true
			mu.Unlock()
			res.Confirm()
		}()
	}
	wg.Wait()

	assert.Len(t, vista, emisiones)
	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(emisiones+1), res.Number, "la secuencia debe avanzar sin huecos")
	res.Release()
}

func TestReservation_ConfirmYReleaseSonIdempotentes(t *testing.T) {
	tracker := billing.NewSequenceTracker(newFakeLastNumberSource(nil))

	res, err := tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	res.Confirm()
	res.Confirm() // segunda llamada: no-op, no panic por doble unlock
	res.Release() // tras Confirm: no-op

	res, err = tracker.Reserve(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Number)
	res.Release()
	res.Release()
}
