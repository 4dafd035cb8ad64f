package afip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

type fakeLogin struct {
	calls int
	ttl   time.Duration
	err   error
	now   func() time.Time
}

func (f *fakeLogin) Login(_ context.Context, service string) (*entity.AccessTicket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	now := f.now()
	return &entity.AccessTicket{
		Token:       "tok",
		Sign:        "sig",
		Service:     service,
		Environment: entity.EnvHomologation,
		IssuedAt:    now,
		ExpiresAt:   now.Add(f.ttl),
	}, nil
}

func TestTicketCache_ReutilizaTicketVigente(t *testing.T) {
	clock := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	login := &fakeLogin{ttl: 12 * time.Hour, now: func() time.Time { return clock }}
	cache := NewTicketCache(login, zerolog.Nop(), func() time.Time { return clock })

	first, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)
	second, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)

	assert.Same(t, first, second, "mientras el ticket sea válido no se vuelve al WSAA")
	assert.Equal(t, 1, login.calls)
}

func TestTicketCache_ReadquiereDentroDelMargen(t *testing.T) {
	// El ticket vence en 5 minutos: está dentro del margen de seguridad de 10,
	// así que debe readquirirse aunque técnicamente siga vigente.
	clock := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	login := &fakeLogin{ttl: 5 * time.Minute, now: func() time.Time { return clock }}
	cache := NewTicketCache(login, zerolog.Nop(), func() time.Time { return clock })

	_, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)
	_, err = cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)

	assert.Equal(t, 2, login.calls, "un ticket por vencer no debe reutilizarse")
}

func TestTicketCache_ExpiracionPorAvanceDelReloj(t *testing.T) {
	clock := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	login := &fakeLogin{ttl: 12 * time.Hour, now: func() time.Time { return clock }}
	cache := NewTicketCache(login, zerolog.Nop(), func() time.Time { return clock })

	_, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)

	clock = clock.Add(13 * time.Hour)
	_, err = cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)

	assert.Equal(t, 2, login.calls)
}

func TestTicketCache_CadaServicioTieneSuTicket(t *testing.T) {
	clock := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	login := &fakeLogin{ttl: 12 * time.Hour, now: func() time.Time { return clock }}
	cache := NewTicketCache(login, zerolog.Nop(), func() time.Time { return clock })

	a, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)
	b, err := cache.GetValidTicket(context.Background(), "ws_sr_padron_a13")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, login.calls)
}

func TestTicketCache_PropagaErrorDeLogin(t *testing.T) {
	login := &fakeLogin{err: domain.ErrAuthFailure, now: time.Now}
	cache := NewTicketCache(login, zerolog.Nop(), nil)

	_, err := cache.GetValidTicket(context.Background(), "wsfe")
	assert.ErrorIs(t, err, domain.ErrAuthFailure)

	// Un fallo no deja nada cacheado: el próximo intento vuelve a loguearse.
	login.err = errors.New("otra cosa")
	_, err = cache.GetValidTicket(context.Background(), "wsfe")
	assert.Error(t, err)
	assert.Equal(t, 2, login.calls)
}

func TestTicketCache_InvalidateDescartaElTicket(t *testing.T) {
	clock := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	login := &fakeLogin{ttl: 12 * time.Hour, now: func() time.Time { return clock }}
	cache := NewTicketCache(login, zerolog.Nop(), func() time.Time { return clock })

	_, err := cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)

	cache.Invalidate("wsfe")
	_, err = cache.GetValidTicket(context.Background(), "wsfe")
	require.NoError(t, err)
	assert.Equal(t, 2, login.calls)
}
