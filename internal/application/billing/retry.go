package billing

import (
	"context"
	"time"

	"github.com/tu-usuario/facturador-afip/internal/domain"
)

// RetryPolicy política de reintentos explícita y acotada para fallas
// transitorias de AFIP. Parametriza al orquestador, único punto de decisión de
// reintento del sistema.
type RetryPolicy struct {
	MaxAttempts int           // intentos totales, incluido el primero
	BaseDelay   time.Duration // espera antes del segundo intento
	MaxDelay    time.Duration // techo del backoff exponencial
}

// DefaultRetryPolicy presupuesto por defecto: 3 intentos, backoff 500ms × 2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Backoff espera para el intento dado (1-based): BaseDelay × 2^(attempt-1),
// acotada por MaxDelay. El intento 1 no espera.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Run ejecuta fn reintentando solo fallas transitorias, con backoff y respeto
// del contexto. Agotado el presupuesto devuelve *domain.AuthorityUnavailableError;
// cualquier error no transitorio corta de inmediato.
func (p RetryPolicy) Run(ctx context.Context, fn func() error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if wait := p.Backoff(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
		last = err
	}
	return &domain.AuthorityUnavailableError{Attempts: p.MaxAttempts, Last: last}
}
