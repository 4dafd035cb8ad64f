// Package afip contiene las reglas de validación fiscal para la emisión de
// comprobantes electrónicos AFIP (WSFEv1, RG 4291). Utiliza los catálogos de
// pkg/afip. Toda la validación es local: corre antes de reservar numeración y
// antes de cualquier llamada de red.
package afip

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
	pkgafip "github.com/tu-usuario/facturador-afip/pkg/afip"
)

// amountTolerance tolerancia fija de redondeo para el desglose de importes.
var amountTolerance = decimal.NewFromFloat(0.01)

// ValidateOrder valida la orden contra las reglas de emisión WSFEv1.
// allowedPOS es el conjunto de puntos de venta habilitados; vacío acepta
// cualquier punto de venta positivo.
// Devuelve *domain.ValidationError en el primer incumplimiento.
func ValidateOrder(order *entity.BillingOrder, allowedPOS []int) error {
	if order == nil {
		return domain.NewValidationError("orden", "orden nula")
	}
	if order.OrderID == "" {
		return domain.NewValidationError("order_id", "requerido")
	}

	if err := validatePointOfSale(order.PointOfSale, allowedPOS); err != nil {
		return err
	}

	letter := pkgafip.VoucherLetter(order.VoucherType)
	if letter == "" {
		return domain.NewValidationError("tipo_cbte",
			fmt.Sprintf("tipo de comprobante %d no soportado", order.VoucherType))
	}

	if err := validateConcept(order); err != nil {
		return err
	}
	if err := validateBuyer(order, letter); err != nil {
		return err
	}
	if err := validateCurrency(order); err != nil {
		return err
	}
	return validateAmounts(order)
}

func validatePointOfSale(pos int, allowed []int) error {
	if pos <= 0 {
		return domain.NewValidationError("punto_venta", "debe ser mayor que cero")
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, p := range allowed {
		if p == pos {
			return nil
		}
	}
	return domain.NewValidationError("punto_venta",
		fmt.Sprintf("punto de venta %d no habilitado", pos))
}

func validateConcept(order *entity.BillingOrder) error {
	switch order.Concept {
	case pkgafip.ConceptProducts:
		return nil
	case pkgafip.ConceptServices, pkgafip.ConceptProductsAndServices:
		// AFIP exige período de servicio y vencimiento de pago para conceptos 2 y 3.
		if order.ServiceFrom.IsZero() || order.ServiceTo.IsZero() {
			return domain.NewValidationError("fch_serv",
				"conceptos de servicios requieren fechas de inicio y fin")
		}
		if order.ServiceTo.Before(order.ServiceFrom) {
			return domain.NewValidationError("fch_serv", "fecha de fin anterior a la de inicio")
		}
		return nil
	default:
		return domain.NewValidationError("concepto",
			fmt.Sprintf("concepto %d inválido", order.Concept))
	}
}

// validateBuyer aplica la compatibilidad entre la letra del comprobante y la
// condición IVA del receptor, y valida su documento.
func validateBuyer(order *entity.BillingOrder, letter string) error {
	switch letter {
	case "A":
		// Comprobantes A solo entre responsables inscriptos, identificados por CUIT.
		if order.TaxCondition != pkgafip.TaxCondResponsableInscripto {
			return domain.NewValidationError("condicion_iva",
				"comprobantes A requieren receptor Responsable Inscripto")
		}
		if order.DocType != pkgafip.DocTypeCUIT {
			return domain.NewValidationError("tipo_doc",
				"comprobantes A requieren CUIT del receptor")
		}
	case "B":
		if order.TaxCondition == pkgafip.TaxCondResponsableInscripto {
			return domain.NewValidationError("condicion_iva",
				"comprobantes B no admiten receptor Responsable Inscripto")
		}
	}

	switch order.DocType {
	case pkgafip.DocTypeCUIT, pkgafip.DocTypeCUIL:
		if err := pkgafip.ValidateCUIT(order.DocNumber); err != nil {
			return domain.NewValidationError("nro_doc", err.Error())
		}
	case pkgafip.DocTypeDNI:
		if order.DocNumber == "" {
			return domain.NewValidationError("nro_doc", "DNI requerido")
		}
	case pkgafip.DocTypeConsumidorFinal:
		// Sin identificar: AFIP espera 0.
	default:
		return domain.NewValidationError("tipo_doc",
			fmt.Sprintf("tipo de documento %d no soportado", order.DocType))
	}
	return nil
}

func validateCurrency(order *entity.BillingOrder) error {
	if order.Currency == "" {
		return domain.NewValidationError("moneda", "requerida")
	}
	if order.Currency == pkgafip.CurrencyPeso && !order.CurrencyRate.Equal(decimal.NewFromInt(1)) {
		return domain.NewValidationError("moneda_cotiz", "la cotización de PES debe ser 1")
	}
	if order.Currency != pkgafip.CurrencyPeso && !order.CurrencyRate.IsPositive() {
		return domain.NewValidationError("moneda_cotiz", "cotización requerida para moneda extranjera")
	}
	return nil
}

// validateAmounts comprueba la coherencia del desglose:
//   - ImpTotal = ImpNeto + ImpIVA + ImpTotConc + ImpOpEx + ImpTrib (± tolerancia)
//   - la suma de las líneas AlicIva coincide con ImpIVA (± tolerancia)
//   - cada línea de IVA coincide con base × alícuota del catálogo (± tolerancia)
func validateAmounts(order *entity.BillingOrder) error {
	if order.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidationError("imp_total", "debe ser mayor que cero")
	}
	if order.NetAmount.IsNegative() || order.VATAmount.IsNegative() ||
		order.NonTaxableAmount.IsNegative() || order.ExemptAmount.IsNegative() ||
		order.TributesAmount.IsNegative() {
		return domain.NewValidationError("importes", "no se admiten importes negativos")
	}

	expectedTotal := order.NetAmount.
		Add(order.VATAmount).
		Add(order.NonTaxableAmount).
		Add(order.ExemptAmount).
		Add(order.TributesAmount)
	if order.TotalAmount.Sub(expectedTotal).Abs().GreaterThan(amountTolerance) {
		return domain.NewValidationError("imp_total",
			fmt.Sprintf("el desglose no coincide con el total: declarado %s, calculado %s",
				order.TotalAmount.StringFixed(2), expectedTotal.StringFixed(2)))
	}

	if len(order.VATLines) > 0 {
		var sumVAT decimal.Decimal
		for i, line := range order.VATLines {
			ratePct, ok := pkgafip.VATRatePercent[line.AliquotID]
			if !ok {
				return domain.NewValidationError("iva",
					fmt.Sprintf("alícuota %d desconocida en línea %d", line.AliquotID, i+1))
			}
			expected := line.Base.Mul(decimal.New(ratePct, -4)).Round(2)
			if line.Amount.Sub(expected).Abs().GreaterThan(amountTolerance) {
				return domain.NewValidationError("iva",
					fmt.Sprintf("línea %d: importe %s no coincide con base %s a alícuota id %d",
						i+1, line.Amount.StringFixed(2), line.Base.StringFixed(2), line.AliquotID))
			}
			sumVAT = sumVAT.Add(line.Amount)
		}
		if sumVAT.Sub(order.VATAmount).Abs().GreaterThan(amountTolerance) {
			return domain.NewValidationError("imp_iva",
				fmt.Sprintf("la suma de líneas de IVA (%s) no coincide con ImpIVA (%s)",
					sumVAT.StringFixed(2), order.VATAmount.StringFixed(2)))
		}
	} else if order.VATAmount.IsPositive() {
		// Sin desglose explícito: el IVA declarado debe corresponder a alguna
		// alícuota del catálogo aplicada sobre el neto gravado.
		if !matchesAnyAliquot(order.NetAmount, order.VATAmount) {
			return domain.NewValidationError("imp_iva",
				fmt.Sprintf("ImpIVA %s no corresponde a ninguna alícuota sobre el neto %s",
					order.VATAmount.StringFixed(2), order.NetAmount.StringFixed(2)))
		}
	}

	if len(order.TributeLines) > 0 {
		var sumTrib decimal.Decimal
		for _, t := range order.TributeLines {
			sumTrib = sumTrib.Add(t.Amount)
		}
		if sumTrib.Sub(order.TributesAmount).Abs().GreaterThan(amountTolerance) {
			return domain.NewValidationError("imp_trib",
				fmt.Sprintf("la suma de tributos (%s) no coincide con ImpTrib (%s)",
					sumTrib.StringFixed(2), order.TributesAmount.StringFixed(2)))
		}
	}
	return nil
}

func matchesAnyAliquot(net, vat decimal.Decimal) bool {
	for _, ratePct := range pkgafip.VATRatePercent {
		if ratePct == 0 {
			continue
		}
		expected := net.Mul(decimal.New(ratePct, -4)).Round(2)
		if vat.Sub(expected).Abs().LessThanOrEqual(amountTolerance) {
			return true
		}
	}
	return false
}
