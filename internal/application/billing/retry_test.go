package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/domain"
)

// testPolicy política rápida para no dormir en los tests.
func testPolicy(attempts int) billing.RetryPolicy {
	return billing.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := billing.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}

	assert.Equal(t, time.Duration(0), p.Backoff(1), "el primer intento no espera")
	assert.Equal(t, 500*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 1*time.Second, p.Backoff(3))
	assert.Equal(t, 2*time.Second, p.Backoff(4))
	assert.Equal(t, 4*time.Second, p.Backoff(5))
	assert.Equal(t, 5*time.Second, p.Backoff(6), "el backoff queda acotado por MaxDelay")
}

func TestRetryPolicy_Run_ExitoAlPrimerIntento(t *testing.T) {
	calls := 0
	err := testPolicy(3).Run(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Run_ReintentaSoloTransitorios(t *testing.T) {
	calls := 0
	err := testPolicy(3).Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return domain.NewTransientError(errors.New("timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "las fallas transitorias se reintentan hasta el éxito")
}

func TestRetryPolicy_Run_ErrorTerminalCortaDeInmediato(t *testing.T) {
	calls := 0
	sentinel := domain.ErrAuthFailure
	err := testPolicy(3).Run(context.Background(), func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls, "un error no transitorio nunca se reintenta")
}

func TestRetryPolicy_Run_PresupuestoAgotado(t *testing.T) {
	calls := 0
	cause := domain.NewTransientError(errors.New("503"))
	err := testPolicy(3).Run(context.Background(), func() error {
		calls++
		return cause
	})

	assert.Equal(t, 3, calls)
	var unavailable *domain.AuthorityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.ErrorIs(t, err, cause.Cause, "la última causa queda envuelta en el error final")
}

func TestRetryPolicy_Run_RespetaContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := billing.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Hour, // la cancelación debe ganarle a la espera
		MaxDelay:    time.Hour,
	}
	err := p.Run(ctx, func() error {
		calls++
		cancel()
		return domain.NewTransientError(errors.New("timeout"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "tras cancelar el contexto no hay más intentos")
}
