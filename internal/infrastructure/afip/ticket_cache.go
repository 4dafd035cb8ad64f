package afip

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

// ticketExpiryMargin margen de seguridad: un ticket a menos de este tiempo de
// su vencimiento se considera expirado y se readquiere.
const ticketExpiryMargin = 10 * time.Minute

// LoginService puerto hacia el WSAA; lo implementa WSAAClient.
type LoginService interface {
	Login(ctx context.Context, service string) (*entity.AccessTicket, error)
}

// TicketCache caché en memoria de tickets WSAA, uno por servicio dentro del
// entorno del cliente subyacente. Concurrencia-segura: una sola goroutine
// readquiere por servicio; las demás esperan y reutilizan el resultado.
type TicketCache struct {
	login LoginService
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.Mutex
	tickets map[string]*entity.AccessTicket
}

// NewTicketCache construye la caché vacía. now permite inyectar reloj en tests.
func NewTicketCache(login LoginService, log zerolog.Logger, now func() time.Time) *TicketCache {
	if now == nil {
		now = time.Now
	}
	return &TicketCache{
		login:   login,
		log:     log,
		now:     now,
		tickets: make(map[string]*entity.AccessTicket),
	}
}

// GetValidTicket devuelve el ticket cacheado para el servicio si sigue siendo
// válido con margen, o readquiere uno nuevo contra WSAA. El error de login se
// propaga sin tocar el ticket cacheado (que ya se sabe inválido).
func (c *TicketCache) GetValidTicket(ctx context.Context, service string) (*entity.AccessTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t := c.tickets[service]; t.ValidAt(c.now(), ticketExpiryMargin) {
		return t, nil
	}

	c.log.Debug().Str("servicio", service).Msg("ticket WSAA ausente o por vencer, readquiriendo")
	ticket, err := c.login.Login(ctx, service)
	if err != nil {
		return nil, err
	}
	c.tickets[service] = ticket
	return ticket, nil
}

// Invalidate descarta el ticket cacheado del servicio. Se usa cuando WSFE
// rechaza las credenciales pese a no estar vencidas localmente.
func (c *TicketCache) Invalidate(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tickets, service)
}
