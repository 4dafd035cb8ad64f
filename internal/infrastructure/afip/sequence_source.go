package afip

import (
	"context"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
)

// SequenceSource adapta el par (caché de tickets, cliente WSFE) al puerto
// LastNumberSource del tracker de numeración: cada siembra consulta
// FECompUltimoAutorizado con un ticket vigente.
type SequenceSource struct {
	Tickets billing.TicketSource
	Client  *WSFEClient
}

func (s *SequenceSource) LastAuthorizedNumber(ctx context.Context, pointOfSale, voucherType int) (int64, error) {
	ticket, err := s.Tickets.GetValidTicket(ctx, billing.ServiceWSFE)
	if err != nil {
		return 0, err
	}
	return s.Client.LastAuthorized(ctx, ticket, pointOfSale, voucherType)
}
