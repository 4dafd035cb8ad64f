package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrAuthFailure indica un problema de credenciales con AFIP (certificado,
	// clave privada o respuesta de WSAA). Terminal: requiere intervención del
	// operador, nunca se reintenta.
	ErrAuthFailure = errors.New("fallo de autenticación con AFIP")
)

// ValidationError error de validación fiscal local, previo a cualquier llamada
// de red. Nunca consume numeración ni se reintenta.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: campo %q: %s", e.Field, e.Reason)
}

// NewValidationError construye un *ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientAuthorityError falla transitoria del servicio de AFIP (red, timeout,
// 5xx, "servicio no disponible"). El orquestador puede reintentarla con backoff.
type TransientAuthorityError struct {
	Cause error
}

func (e *TransientAuthorityError) Error() string {
	return fmt.Sprintf("falla transitoria de AFIP: %v", e.Cause)
}

func (e *TransientAuthorityError) Unwrap() error { return e.Cause }

// NewTransientError envuelve una causa como falla transitoria.
func NewTransientError(cause error) *TransientAuthorityError {
	return &TransientAuthorityError{Cause: cause}
}

// RejectedError rechazo de negocio de AFIP (Resultado "R"). Terminal para el
// intento: la numeración reservada se libera y el error llega al caller con
// los códigos y mensajes de la autoridad.
type RejectedError struct {
	Codes    []int
	Messages []string
}

func (e *RejectedError) Error() string {
	if len(e.Messages) == 0 {
		return "comprobante rechazado por AFIP"
	}
	return "comprobante rechazado por AFIP: " + strings.Join(e.Messages, "; ")
}

// AuthorityUnavailableError presupuesto de reintentos agotado. Terminal para la
// operación pero reintentable por el caller más adelante (distinto de un rechazo).
type AuthorityUnavailableError struct {
	Attempts int
	Last     error
}

func (e *AuthorityUnavailableError) Error() string {
	return fmt.Sprintf("AFIP no disponible tras %d intentos: %v", e.Attempts, e.Last)
}

func (e *AuthorityUnavailableError) Unwrap() error { return e.Last }

// IsTransient indica si err es (o envuelve) una falla transitoria de AFIP.
func IsTransient(err error) bool {
	var te *TransientAuthorityError
	return errors.As(err, &te)
}
