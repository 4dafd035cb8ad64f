// Package afip contiene catálogos y validaciones alineados al manual del
// desarrollador de WSFEv1 (RG 4291, ARCA v4.1) de AFIP (Argentina).
package afip

// =============================================================================
// Tipos de comprobante (FEParamGetTiposCbte) - códigos de uso frecuente.
// La "letra" del comprobante (A/B/C) determina las reglas de emisión según la
// condición frente al IVA del receptor.
// =============================================================================

const (
	VoucherFacturaA     = 1  // Factura A
	VoucherNotaDebitoA  = 2  // Nota de Débito A
	VoucherNotaCreditoA = 3  // Nota de Crédito A
	VoucherFacturaB     = 6  // Factura B
	VoucherNotaDebitoB  = 7  // Nota de Débito B
	VoucherNotaCreditoB = 8  // Nota de Crédito B
	VoucherFacturaC     = 11 // Factura C
	VoucherNotaDebitoC  = 12 // Nota de Débito C
	VoucherNotaCreditoC = 13 // Nota de Crédito C
)

// VoucherTypeNames nombres de los tipos de comprobante soportados.
var VoucherTypeNames = map[int]string{
	VoucherFacturaA:     "Factura A",
	VoucherNotaDebitoA:  "Nota de Débito A",
	VoucherNotaCreditoA: "Nota de Crédito A",
	VoucherFacturaB:     "Factura B",
	VoucherNotaDebitoB:  "Nota de Débito B",
	VoucherNotaCreditoB: "Nota de Crédito B",
	VoucherFacturaC:     "Factura C",
	VoucherNotaDebitoC:  "Nota de Débito C",
	VoucherNotaCreditoC: "Nota de Crédito C",
}

// VoucherLetter devuelve la letra fiscal del comprobante ("A", "B", "C"),
// o cadena vacía si el tipo no está en el catálogo soportado.
func VoucherLetter(voucherType int) string {
	switch voucherType {
	case VoucherFacturaA, VoucherNotaDebitoA, VoucherNotaCreditoA:
		return "A"
	case VoucherFacturaB, VoucherNotaDebitoB, VoucherNotaCreditoB:
		return "B"
	case VoucherFacturaC, VoucherNotaDebitoC, VoucherNotaCreditoC:
		return "C"
	}
	return ""
}

// IsCreditNote indica si el tipo de comprobante es una nota de crédito.
func IsCreditNote(voucherType int) bool {
	return voucherType == VoucherNotaCreditoA ||
		voucherType == VoucherNotaCreditoB ||
		voucherType == VoucherNotaCreditoC
}

// =============================================================================
// Conceptos (FEParamGetTiposConcepto).
// Conceptos 2 y 3 exigen fechas de servicio (FchServDesde/Hasta/VtoPago).
// =============================================================================

const (
	ConceptProducts            = 1 // Productos
	ConceptServices            = 2 // Servicios
	ConceptProductsAndServices = 3 // Productos y Servicios
)

// =============================================================================
// Tipos de documento del receptor (FEParamGetTiposDoc).
// =============================================================================

const (
	DocTypeCUIT            = 80 // CUIT
	DocTypeCUIL            = 86 // CUIL
	DocTypeDNI             = 96 // DNI
	DocTypeConsumidorFinal = 99 // Consumidor Final (sin identificar)
)

// DocTypeNames nombres de los tipos de documento soportados.
var DocTypeNames = map[int]string{
	DocTypeCUIT:            "CUIT",
	DocTypeCUIL:            "CUIL",
	DocTypeDNI:             "DNI",
	DocTypeConsumidorFinal: "Sin identificar",
}

// =============================================================================
// Condición frente al IVA del receptor (FEParamGetCondicionIvaReceptor, v4.0).
// =============================================================================

const (
	TaxCondResponsableInscripto = 1 // IVA Responsable Inscripto
	TaxCondExento               = 4 // IVA Sujeto Exento
	TaxCondConsumidorFinal      = 5 // Consumidor Final
	TaxCondMonotributo          = 6 // Responsable Monotributo
	TaxCondNoCategorizado       = 7 // Sujeto No Categorizado
	TaxCondProveedorExterior    = 8 // Proveedor del Exterior
)

// TaxConditionNames nombres de las condiciones IVA del receptor.
var TaxConditionNames = map[int]string{
	TaxCondResponsableInscripto: "IVA Responsable Inscripto",
	TaxCondExento:               "IVA Sujeto Exento",
	TaxCondConsumidorFinal:      "Consumidor Final",
	TaxCondMonotributo:          "Responsable Monotributo",
	TaxCondNoCategorizado:       "Sujeto No Categorizado",
	TaxCondProveedorExterior:    "Proveedor del Exterior",
}

// =============================================================================
// Alícuotas de IVA (FEParamGetTiposIva). El Id viaja en el array AlicIva del
// FECAESolicitar; el porcentaje se usa para validar el desglose de importes.
// =============================================================================

const (
	VATZero         = 3 // 0%
	VATTenAndHalf   = 4 // 10.5%
	VATTwentyOne    = 5 // 21%
	VATTwentySeven  = 6 // 27%
	VATFive         = 8 // 5%
	VATTwoAndHalf   = 9 // 2.5%
)

// VATRatePercent porcentaje de cada alícuota, en centésimas (2100 = 21.00%)
// para evitar flotantes en el catálogo.
var VATRatePercent = map[int]int64{
	VATZero:        0,
	VATTenAndHalf:  1050,
	VATTwentyOne:   2100,
	VATTwentySeven: 2700,
	VATFive:        500,
	VATTwoAndHalf:  250,
}

// =============================================================================
// Monedas (FEParamGetTiposMonedas) - códigos de uso frecuente.
// =============================================================================

const (
	CurrencyPeso   = "PES" // Peso argentino (cotización 1)
	CurrencyDollar = "DOL" // Dólar estadounidense
)
