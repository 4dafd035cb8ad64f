package entity

import "time"

// Entornos de los webservices de AFIP.
const (
	EnvHomologation = "homologacion" // wsaahomo / wswhomo
	EnvProduction   = "produccion"   // wsaa / servicios1
)

// AccessTicket ticket de acceso firmado emitido por WSAA. Estado cacheado en
// memoria de proceso, uno por (entorno, servicio); nunca se persiste ni se
// comparte entre entornos.
type AccessTicket struct {
	Token       string
	Sign        string
	Service     string // servicio autorizado, ej. "wsfe"
	Environment string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ValidAt indica si el ticket sigue siendo utilizable en el instante now con
// el margen de seguridad dado antes del vencimiento real.
func (t *AccessTicket) ValidAt(now time.Time, margin time.Duration) bool {
	if t == nil || t.Token == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}
