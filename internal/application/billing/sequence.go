package billing

import (
	"context"
	"fmt"
	"sync"
)

// LastNumberSource obtiene de AFIP el último número autorizado para un
// (punto de venta, tipo de comprobante). Lo implementa el cliente WSFE
// combinado con la caché de tickets.
type LastNumberSource interface {
	LastAuthorizedNumber(ctx context.Context, pointOfSale, voucherType int) (int64, error)
}

type seqKey struct {
	pointOfSale int
	voucherType int
}

type seqEntry struct {
	mu sync.Mutex // tomada por Reserve, liberada por Confirm/Release

	stateMu sync.Mutex // protege seeded; Invalidate puede llegar con mu tomada
	seeded  bool
	next    int64
}

// SequenceTracker lleva la numeración local por (punto de venta, tipo de
// comprobante). La reserva es exclusiva por par: Reserve toma el mutex del par
// y recién Confirm o Release lo sueltan, de modo que el ciclo
// reservar→autorizar→confirmar/liberar queda serializado y dos emisiones
// concurrentes nunca reclaman el mismo número.
type SequenceTracker struct {
	source LastNumberSource

	mu      sync.Mutex // protege el mapa, no las entradas
	entries map[seqKey]*seqEntry
}

// NewSequenceTracker construye el tracker sembrando cada par on-demand desde source.
func NewSequenceTracker(source LastNumberSource) *SequenceTracker {
	return &SequenceTracker{
		source:  source,
		entries: make(map[seqKey]*seqEntry),
	}
}

// Reservation numeración reservada pendiente de confirmación. Exactamente una
// de Confirm o Release debe invocarse; ambas son idempotentes entre sí.
type Reservation struct {
	PointOfSale int
	VoucherType int
	Number      int64

	entry *seqEntry
	done  bool
}

// Confirm consume el número: la próxima reserva del par será Number+1.
func (r *Reservation) Confirm() {
	if r == nil || r.done {
		return
	}
	r.entry.next = r.Number + 1
	r.done = true
	r.entry.mu.Unlock()
}

// Release devuelve el número sin consumirlo: la próxima reserva del par
// obtiene el mismo número. Debe llamarse ante cualquier falla de autorización.
func (r *Reservation) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	r.entry.mu.Unlock()
}

// Reserve toma en exclusiva la numeración del par y devuelve el próximo número
// válido. En el primer uso, o tras Invalidate, siembra el contador con
// FECompUltimoAutorizado + 1. Si la siembra falla, la exclusión se libera y el
// error (transitorio o no) se propaga al orquestador.
func (t *SequenceTracker) Reserve(ctx context.Context, pointOfSale, voucherType int) (*Reservation, error) {
	entry := t.entryFor(pointOfSale, voucherType)
	entry.mu.Lock()

	entry.stateMu.Lock()
	seeded := entry.seeded
	entry.stateMu.Unlock()

	if !seeded {
		last, err := t.source.LastAuthorizedNumber(ctx, pointOfSale, voucherType)
		if err != nil {
			entry.mu.Unlock()
			return nil, fmt.Errorf("sembrar secuencia PV %d tipo %d: %w", pointOfSale, voucherType, err)
		}
		entry.next = last + 1
		entry.stateMu.Lock()
		entry.seeded = true
		entry.stateMu.Unlock()
	}

	return &Reservation{
		PointOfSale: pointOfSale,
		VoucherType: voucherType,
		Number:      entry.next,
		entry:       entry,
	}, nil
}

// Invalidate marca la secuencia del par como sospechosa de estar desactualizada
// (reinicio tras caída, desajuste reportado por AFIP). La próxima reserva
// vuelve a consultar el último autorizado antes de numerar. No toma el mutex
// de reserva: el orquestador la invoca durante la reconciliación con su propia
// reserva todavía abierta.
func (t *SequenceTracker) Invalidate(pointOfSale, voucherType int) {
	entry := t.entryFor(pointOfSale, voucherType)
	entry.stateMu.Lock()
	entry.seeded = false
	entry.stateMu.Unlock()
}

func (t *SequenceTracker) entryFor(pointOfSale, voucherType int) *seqEntry {
	key := seqKey{pointOfSale: pointOfSale, voucherType: voucherType}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &seqEntry{}
		t.entries[key] = entry
	}
	return entry
}
