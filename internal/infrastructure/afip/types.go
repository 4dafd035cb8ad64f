// Estructuras SOAP del WSFEv1 (namespace http://ar.gov.afip.dif.FEV1/).
// Los nombres de campo siguen el WSDL de AFIP, no la convención Go.

package afip

import "encoding/xml"

const wsfeNS = "http://ar.gov.afip.dif.FEV1/"

// ── Sobre de request ──────────────────────────────────────────────────────────

type wsfeEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	XmlnsS  string   `xml:"xmlns:soapenv,attr"`
	XmlnsAr string   `xml:"xmlns:ar,attr"`
	Body    wsfeBody `xml:"soapenv:Body"`
}

type wsfeBody struct {
	Content any
}

func (b wsfeBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// feAuth credenciales WSAA más el CUIT del emisor, presentes en toda operación.
type feAuth struct {
	Token string `xml:"ar:Token"`
	Sign  string `xml:"ar:Sign"`
	Cuit  int64  `xml:"ar:Cuit"`
}

// ── FECAESolicitar ────────────────────────────────────────────────────────────

type feCAESolicitarBody struct {
	XMLName  xml.Name     `xml:"ar:FECAESolicitar"`
	Auth     feAuth       `xml:"ar:Auth"`
	FeCAEReq feCAERequest `xml:"ar:FeCAEReq"`
}

type feCAERequest struct {
	FeCabReq feCabRequest   `xml:"ar:FeCabReq"`
	FeDetReq []feDetRequest `xml:"ar:FeDetReq>ar:FECAEDetRequest"`
}

type feCabRequest struct {
	CantReg  int `xml:"ar:CantReg"`
	PtoVta   int `xml:"ar:PtoVta"`
	CbteTipo int `xml:"ar:CbteTipo"`
}

type feDetRequest struct {
	Concepto   int    `xml:"ar:Concepto"`
	DocTipo    int    `xml:"ar:DocTipo"`
	DocNro     string `xml:"ar:DocNro"`
	CbteDesde  int64  `xml:"ar:CbteDesde"`
	CbteHasta  int64  `xml:"ar:CbteHasta"`
	CbteFch    string `xml:"ar:CbteFch"`
	ImpTotal   string `xml:"ar:ImpTotal"`
	ImpTotConc string `xml:"ar:ImpTotConc"`
	ImpNeto    string `xml:"ar:ImpNeto"`
	ImpOpEx    string `xml:"ar:ImpOpEx"`
	ImpTrib    string `xml:"ar:ImpTrib"`
	ImpIVA     string `xml:"ar:ImpIVA"`

	// Solo conceptos 2 y 3.
	FchServDesde string `xml:"ar:FchServDesde,omitempty"`
	FchServHasta string `xml:"ar:FchServHasta,omitempty"`
	FchVtoPago   string `xml:"ar:FchVtoPago,omitempty"`

	MonID    string `xml:"ar:MonId"`
	MonCotiz string `xml:"ar:MonCotiz"`

	CondicionIVAReceptorID int `xml:"ar:CondicionIVAReceptorId"`

	Tributos []feTributo `xml:"ar:Tributos>ar:Tributo,omitempty"`
	Iva      []feAlicIva `xml:"ar:Iva>ar:AlicIva,omitempty"`
}

type feAlicIva struct {
	ID      int    `xml:"ar:Id"`
	BaseImp string `xml:"ar:BaseImp"`
	Importe string `xml:"ar:Importe"`
}

type feTributo struct {
	ID      int    `xml:"ar:Id"`
	Desc    string `xml:"ar:Desc,omitempty"`
	BaseImp string `xml:"ar:BaseImp"`
	Alic    string `xml:"ar:Alic"`
	Importe string `xml:"ar:Importe"`
}

// ── FECompUltimoAutorizado ────────────────────────────────────────────────────

type feUltimoAutorizadoBody struct {
	XMLName  xml.Name `xml:"ar:FECompUltimoAutorizado"`
	Auth     feAuth   `xml:"ar:Auth"`
	PtoVta   int      `xml:"ar:PtoVta"`
	CbteTipo int      `xml:"ar:CbteTipo"`
}

// ── FECompConsultar ───────────────────────────────────────────────────────────

type feCompConsultarBody struct {
	XMLName       xml.Name           `xml:"ar:FECompConsultar"`
	Auth          feAuth             `xml:"ar:Auth"`
	FeCompConsReq feCompConsultarReq `xml:"ar:FeCompConsReq"`
}

type feCompConsultarReq struct {
	CbteTipo int   `xml:"ar:CbteTipo"`
	CbteNro  int64 `xml:"ar:CbteNro"`
	PtoVta   int   `xml:"ar:PtoVta"`
}

// ── FEDummy y FEParamGet* ─────────────────────────────────────────────────────

type feDummyBody struct {
	XMLName xml.Name `xml:"ar:FEDummy"`
}

type feParamTiposCbteBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetTiposCbte"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamTiposDocBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetTiposDoc"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamTiposIvaBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetTiposIva"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamTiposConceptoBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetTiposConcepto"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamMonedasBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetTiposMonedas"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamCondIvaBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetCondicionIvaReceptor"`
	Auth    feAuth   `xml:"ar:Auth"`
}

type feParamPtosVentaBody struct {
	XMLName xml.Name `xml:"ar:FEParamGetPtosVenta"`
	Auth    feAuth   `xml:"ar:Auth"`
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// feError entrada del array Errors de cualquier operación.
type feError struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type feEvento struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type feObservacion struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type wsfeResponseEnvelope struct {
	Body struct {
		CAEResponse *struct {
			Result feCAESolicitarResult `xml:"FECAESolicitarResult"`
		} `xml:"FECAESolicitarResponse"`

		UltimoResponse *struct {
			Result feUltimoAutorizadoResult `xml:"FECompUltimoAutorizadoResult"`
		} `xml:"FECompUltimoAutorizadoResponse"`

		ConsultarResponse *struct {
			Result feCompConsultarResult `xml:"FECompConsultarResult"`
		} `xml:"FECompConsultarResponse"`

		DummyResponse *struct {
			Result feDummyResult `xml:"FEDummyResult"`
		} `xml:"FEDummyResponse"`

		TiposCbteResponse *struct {
			Result feTiposCbteResult `xml:"FEParamGetTiposCbteResult"`
		} `xml:"FEParamGetTiposCbteResponse"`

		TiposDocResponse *struct {
			Result feTiposDocResult `xml:"FEParamGetTiposDocResult"`
		} `xml:"FEParamGetTiposDocResponse"`

		TiposIvaResponse *struct {
			Result feTiposIvaResult `xml:"FEParamGetTiposIvaResult"`
		} `xml:"FEParamGetTiposIvaResponse"`

		TiposConceptoResponse *struct {
			Result feTiposConceptoResult `xml:"FEParamGetTiposConceptoResult"`
		} `xml:"FEParamGetTiposConceptoResponse"`

		MonedasResponse *struct {
			Result feMonedasResult `xml:"FEParamGetTiposMonedasResult"`
		} `xml:"FEParamGetTiposMonedasResponse"`

		CondIvaResponse *struct {
			Result feCondIvaResult `xml:"FEParamGetCondicionIvaReceptorResult"`
		} `xml:"FEParamGetCondicionIvaReceptorResponse"`

		PtosVentaResponse *struct {
			Result fePtosVentaResult `xml:"FEParamGetPtosVentaResult"`
		} `xml:"FEParamGetPtosVentaResponse"`

		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

type feCAESolicitarResult struct {
	FeCabResp struct {
		PtoVta    int    `xml:"PtoVta"`
		CbteTipo  int    `xml:"CbteTipo"`
		Resultado string `xml:"Resultado"` // "A", "R" o "P"
	} `xml:"FeCabResp"`
	FeDetResp []struct {
		CbteDesde     int64           `xml:"CbteDesde"`
		Resultado     string          `xml:"Resultado"`
		CAE           string          `xml:"CAE"`
		CAEFchVto     string          `xml:"CAEFchVto"`
		Observaciones []feObservacion `xml:"Observaciones>Obs"`
	} `xml:"FeDetResp>FECAEDetResponse"`
	Events []feEvento `xml:"Events>Evt"`
	Errors []feError  `xml:"Errors>Err"`
}

type feUltimoAutorizadoResult struct {
	PtoVta   int       `xml:"PtoVta"`
	CbteTipo int       `xml:"CbteTipo"`
	CbteNro  int64     `xml:"CbteNro"`
	Errors   []feError `xml:"Errors>Err"`
}

type feCompConsultarResult struct {
	ResultGet *struct {
		Concepto        int    `xml:"Concepto"`
		DocTipo         int    `xml:"DocTipo"`
		DocNro          string `xml:"DocNro"`
		CbteDesde       int64  `xml:"CbteDesde"`
		CbteFch         string `xml:"CbteFch"`
		ImpTotal        string `xml:"ImpTotal"`
		ImpNeto         string `xml:"ImpNeto"`
		ImpIVA          string `xml:"ImpIVA"`
		MonID           string `xml:"MonId"`
		MonCotiz        string `xml:"MonCotiz"`
		Resultado       string `xml:"Resultado"`
		CodAutorizacion string `xml:"CodAutorizacion"`
		FchVto          string `xml:"FchVto"`
		PtoVta          int    `xml:"PtoVta"`
		CbteTipo        int    `xml:"CbteTipo"`
	} `xml:"ResultGet"`
	Errors []feError `xml:"Errors>Err"`
}

type feDummyResult struct {
	AppServer  string `xml:"AppServer"`
	DbServer   string `xml:"DbServer"`
	AuthServer string `xml:"AuthServer"`
}

// feCatalogItem entrada genérica de los catálogos FEParamGet* con Id numérico.
type feCatalogItem struct {
	ID   int    `xml:"Id"`
	Desc string `xml:"Desc"`
}

// Cada catálogo envuelve sus entradas en un elemento propio del WSDL, de ahí
// un tipo de resultado por operación.

type feTiposCbteResult struct {
	ResultGet []feCatalogItem `xml:"ResultGet>CbteTipo"`
	Errors    []feError       `xml:"Errors>Err"`
}

type feTiposDocResult struct {
	ResultGet []feCatalogItem `xml:"ResultGet>DocTipo"`
	Errors    []feError       `xml:"Errors>Err"`
}

type feTiposIvaResult struct {
	ResultGet []feCatalogItem `xml:"ResultGet>IvaTipo"`
	Errors    []feError       `xml:"Errors>Err"`
}

type feTiposConceptoResult struct {
	ResultGet []feCatalogItem `xml:"ResultGet>ConceptoTipo"`
	Errors    []feError       `xml:"Errors>Err"`
}

type feCondIvaResult struct {
	ResultGet []feCatalogItem `xml:"ResultGet>CondicionIvaReceptor"`
	Errors    []feError       `xml:"Errors>Err"`
}

// feMonedasResult las monedas llevan Id alfabético ("PES", "DOL").
type feMonedasResult struct {
	ResultGet []struct {
		ID   string `xml:"Id"`
		Desc string `xml:"Desc"`
	} `xml:"ResultGet>Moneda"`
	Errors []feError `xml:"Errors>Err"`
}

type fePtosVentaResult struct {
	ResultGet []struct {
		Nro         int    `xml:"Nro"`
		EmisionTipo string `xml:"EmisionTipo"`
		Bloqueado   string `xml:"Bloqueado"` // "S" / "N"
	} `xml:"ResultGet>PtoVenta"`
	Errors []feError `xml:"Errors>Err"`
}
