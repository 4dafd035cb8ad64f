package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tu-usuario/facturador-afip/internal/application/dto"
	"github.com/tu-usuario/facturador-afip/pkg/jwt"
)

// Locals keys para ClientID y Scope en Fiber.
const (
	LocalClientID = "client_id"
	LocalScope    = "scope"
)

// Scopes conocidos de la API.
const (
	ScopeFacturacion = "facturacion" // emitir comprobantes
	ScopeConsulta    = "consulta"    // solo lectura
)

// AuthMiddleware valida el Bearer Token JWT y extrae ClientID y Scope a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		clientID, scope, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalClientID, clientID)
		c.Locals(LocalScope, scope)
		return c.Next()
	}
}

// RequireScope autoriza solo a los scopes listados. El scope "facturacion"
// incluye lectura: quien puede emitir también puede consultar.
func RequireScope(scopes ...string) fiber.Handler {
	allowed := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		allowed[s] = true
	}
	return func(c *fiber.Ctx) error {
		scope := GetScope(c)
		if allowed[scope] || (scope == ScopeFacturacion && allowed[ScopeConsulta]) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "scope insuficiente"})
	}
}

// GetClientID devuelve el ClientID del contexto (después del middleware de auth).
func GetClientID(c *fiber.Ctx) string {
	v := c.Locals(LocalClientID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetScope devuelve el Scope del contexto (después del middleware de auth).
func GetScope(c *fiber.Ctx) string {
	v := c.Locals(LocalScope)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
