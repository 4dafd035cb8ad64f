package afip

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// qrBaseURL URL pública de verificación de comprobantes (RG 4892, QR AFIP).
const qrBaseURL = "https://www.afip.gob.ar/fe/qr/?p="

// qrPayload estructura JSON del QR según la especificación de AFIP v1.
type qrPayload struct {
	Ver        int     `json:"ver"`
	Fecha      string  `json:"fecha"` // yyyy-mm-dd
	CUIT       int64   `json:"cuit"`
	PtoVta     int     `json:"ptoVta"`
	TipoCmp    int     `json:"tipoCmp"`
	NroCmp     int64   `json:"nroCmp"`
	Importe    float64 `json:"importe"`
	Moneda     string  `json:"moneda"`
	Ctz        float64 `json:"ctz"`
	TipoDocRec int     `json:"tipoDocRec"`
	NroDocRec  int64   `json:"nroDocRec"`
	TipoCodAut string  `json:"tipoCodAut"` // "E" para CAE
	CodAut     int64   `json:"codAut"`
}

// QRParams datos del comprobante autorizado necesarios para el QR.
type QRParams struct {
	IssueDate    time.Time
	IssuerCUIT   int64
	PointOfSale  int
	VoucherType  int
	Number       int64
	Total        float64
	Currency     string
	CurrencyRate float64
	DocType      int
	DocNumber    int64
	CAE          int64
}

// BuildQRURL arma la URL del QR fiscal: base64 del JSON de la especificación
// AFIP sobre la URL pública de verificación.
func BuildQRURL(p QRParams) (string, error) {
	payload := qrPayload{
		Ver:        1,
		Fecha:      p.IssueDate.Format("2006-01-02"),
		CUIT:       p.IssuerCUIT,
		PtoVta:     p.PointOfSale,
		TipoCmp:    p.VoucherType,
		NroCmp:     p.Number,
		Importe:    p.Total,
		Moneda:     p.Currency,
		Ctz:        p.CurrencyRate,
		TipoDocRec: p.DocType,
		NroDocRec:  p.DocNumber,
		TipoCodAut: "E",
		CodAut:     p.CAE,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return qrBaseURL + base64.StdEncoding.EncodeToString(raw), nil
}
