package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/facturador-afip/internal/application/billing"
	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

// ── Endpoints WSFEv1 ──────────────────────────────────────────────────────────

const (
	wsfeURLHomo = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	wsfeURLProd = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"

	wsfeDateFmt = "20060102"
)

// Códigos de error del WSFE que indican credenciales inválidas (token vencido
// o firma que no verifica). Se distinguen para invalidar la caché de tickets.
func isAuthErrorCode(code int) bool {
	return code == 600 || code == 601
}

// errVoucherNotFound código de FECompConsultar cuando el comprobante no existe.
const errVoucherNotFound = 602

// WSFEClient cliente SOAP del webservice de facturación electrónica WSFEv1.
// Implementa los puertos AuthorizationService y AuthorityInfoService.
type WSFEClient struct {
	httpClient *http.Client
	issuerCUIT int64
	baseURL    string
	log        zerolog.Logger
}

// NewWSFEClient construye el cliente para el entorno dado.
func NewWSFEClient(issuerCUIT int64, environment string, log zerolog.Logger) (*WSFEClient, error) {
	var url string
	switch environment {
	case entity.EnvHomologation:
		url = wsfeURLHomo
	case entity.EnvProduction:
		url = wsfeURLProd
	default:
		return nil, fmt.Errorf("entorno desconocido %q", environment)
	}
	return &WSFEClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		issuerCUIT: issuerCUIT,
		baseURL:    url,
		log:        log,
	}, nil
}

func (c *WSFEClient) auth(ticket *entity.AccessTicket) feAuth {
	return feAuth{Token: ticket.Token, Sign: ticket.Sign, Cuit: c.issuerCUIT}
}

// ── AuthorizationService ──────────────────────────────────────────────────────

// Authorize ejecuta FECAESolicitar para un único comprobante y devuelve el
// resultado ya interpretado. Un rechazo de AFIP NO es un error de transporte:
// llega como AuthorizationResult con OutcomeRejected.
func (c *WSFEClient) Authorize(ctx context.Context, ticket *entity.AccessTicket, req *billing.FiscalRequest) (*billing.AuthorizationResult, error) {
	det := feDetRequest{
		Concepto:               req.Concept,
		DocTipo:                req.DocType,
		DocNro:                 req.DocNumber,
		CbteDesde:              req.Number,
		CbteHasta:              req.Number,
		CbteFch:                req.IssueDate,
		ImpTotal:               req.TotalAmount.StringFixed(2),
		ImpTotConc:             req.NonTaxableAmount.StringFixed(2),
		ImpNeto:                req.NetAmount.StringFixed(2),
		ImpOpEx:                req.ExemptAmount.StringFixed(2),
		ImpTrib:                req.TributesAmount.StringFixed(2),
		ImpIVA:                 req.VATAmount.StringFixed(2),
		FchServDesde:           req.ServiceFrom,
		FchServHasta:           req.ServiceTo,
		FchVtoPago:             req.PaymentDueDate,
		MonID:                  req.Currency,
		MonCotiz:               req.CurrencyRate.StringFixed(6),
		CondicionIVAReceptorID: req.TaxCondition,
	}
	for _, line := range req.VATLines {
		det.Iva = append(det.Iva, feAlicIva{
			ID:      line.AliquotID,
			BaseImp: line.Base.StringFixed(2),
			Importe: line.Amount.StringFixed(2),
		})
	}
	for _, trib := range req.TributeLines {
		det.Tributos = append(det.Tributos, feTributo{
			ID:      trib.ID,
			Desc:    trib.Description,
			BaseImp: trib.Base.StringFixed(2),
			Alic:    trib.Aliquot.StringFixed(2),
			Importe: trib.Amount.StringFixed(2),
		})
	}

	body := feCAESolicitarBody{
		Auth: c.auth(ticket),
		FeCAEReq: feCAERequest{
			FeCabReq: feCabRequest{CantReg: 1, PtoVta: req.PointOfSale, CbteTipo: req.VoucherType},
			FeDetReq: []feDetRequest{det},
		},
	}

	env, err := c.call(ctx, "FECAESolicitar", body)
	if err != nil {
		return nil, err
	}
	if env.Body.CAEResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FECAESolicitar sin cuerpo de respuesta"))
	}
	return c.interpretCAEResult(&env.Body.CAEResponse.Result)
}

// interpretCAEResult traduce la respuesta laxa de AFIP al conjunto cerrado de
// resultados del dominio.
func (c *WSFEClient) interpretCAEResult(result *feCAESolicitarResult) (*billing.AuthorizationResult, error) {
	// Sin detalle de comprobante el array Errors manda (600/601 = credenciales,
	// el resto transitorio). Con detalle, los errores acompañan al Resultado.
	if len(result.FeDetResp) == 0 {
		if err := c.asServiceError(result.Errors); err != nil {
			return nil, err
		}
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: respuesta sin detalle de comprobante"))
	}

	det := result.FeDetResp[0]
	switch det.Resultado {
	case "A":
		expiry, err := time.Parse(wsfeDateFmt, det.CAEFchVto)
		if err != nil {
			return nil, fmt.Errorf("wsfe: CAEFchVto inválido %q: %w", det.CAEFchVto, err)
		}
		out := &billing.AuthorizationResult{
			Outcome:   billing.OutcomeApproved,
			CAE:       det.CAE,
			CAEExpiry: expiry,
		}
		if len(det.Observaciones) > 0 {
			out.Outcome = billing.OutcomeApprovedWithObservations
			for _, obs := range det.Observaciones {
				out.Observations = append(out.Observations, entity.Observation{Code: obs.Code, Message: obs.Msg})
			}
		}
		return out, nil

	case "R":
		out := &billing.AuthorizationResult{Outcome: billing.OutcomeRejected}
		for _, obs := range det.Observaciones {
			out.Codes = append(out.Codes, obs.Code)
			out.Messages = append(out.Messages, obs.Msg)
		}
		for _, e := range result.Errors {
			out.Codes = append(out.Codes, e.Code)
			out.Messages = append(out.Messages, e.Msg)
		}
		return out, nil

	default:
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: resultado desconocido %q", det.Resultado))
	}
}

// LastAuthorized consulta FECompUltimoAutorizado. Un punto de venta sin
// comprobantes emitidos devuelve 0.
func (c *WSFEClient) LastAuthorized(ctx context.Context, ticket *entity.AccessTicket, pointOfSale, voucherType int) (int64, error) {
	body := feUltimoAutorizadoBody{
		Auth:     c.auth(ticket),
		PtoVta:   pointOfSale,
		CbteTipo: voucherType,
	}
	env, err := c.call(ctx, "FECompUltimoAutorizado", body)
	if err != nil {
		return 0, err
	}
	if env.Body.UltimoResponse == nil {
		return 0, domain.NewTransientError(fmt.Errorf("wsfe: FECompUltimoAutorizado sin respuesta"))
	}
	result := env.Body.UltimoResponse.Result
	if err := c.asServiceError(result.Errors); err != nil {
		return 0, err
	}
	return result.CbteNro, nil
}

// QueryVoucher consulta FECompConsultar. Devuelve nil (sin error) cuando el
// comprobante no existe en AFIP.
func (c *WSFEClient) QueryVoucher(ctx context.Context, ticket *entity.AccessTicket, pointOfSale, voucherType int, number int64) (*billing.VoucherInfo, error) {
	body := feCompConsultarBody{
		Auth: c.auth(ticket),
		FeCompConsReq: feCompConsultarReq{
			CbteTipo: voucherType,
			CbteNro:  number,
			PtoVta:   pointOfSale,
		},
	}
	env, err := c.call(ctx, "FECompConsultar", body)
	if err != nil {
		return nil, err
	}
	if env.Body.ConsultarResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FECompConsultar sin respuesta"))
	}
	result := env.Body.ConsultarResponse.Result
	for _, e := range result.Errors {
		if e.Code == errVoucherNotFound {
			return nil, nil
		}
	}
	if err := c.asServiceError(result.Errors); err != nil {
		return nil, err
	}
	if result.ResultGet == nil {
		return nil, nil
	}

	get := result.ResultGet
	info := &billing.VoucherInfo{
		PointOfSale: get.PtoVta,
		VoucherType: get.CbteTipo,
		Number:      get.CbteDesde,
		CAE:         get.CodAutorizacion,
		Result:      get.Resultado,
		DocType:     get.DocTipo,
		DocNumber:   get.DocNro,
	}
	if t, err := time.Parse(wsfeDateFmt, get.CbteFch); err == nil {
		info.IssueDate = t
	}
	if t, err := time.Parse(wsfeDateFmt, get.FchVto); err == nil {
		info.CAEExpiry = t
	}
	if d, err := decimal.NewFromString(get.ImpTotal); err == nil {
		info.TotalAmount = d
	}
	if d, err := decimal.NewFromString(get.ImpNeto); err == nil {
		info.NetAmount = d
	}
	if d, err := decimal.NewFromString(get.ImpIVA); err == nil {
		info.VATAmount = d
	}
	return info, nil
}

// ── AuthorityInfoService ──────────────────────────────────────────────────────

// ServerStatus ejecuta FEDummy. No requiere credenciales.
func (c *WSFEClient) ServerStatus(ctx context.Context) (*billing.ServerStatus, error) {
	env, err := c.call(ctx, "FEDummy", feDummyBody{})
	if err != nil {
		return nil, err
	}
	if env.Body.DummyResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEDummy sin respuesta"))
	}
	r := env.Body.DummyResponse.Result
	return &billing.ServerStatus{
		AppServer:  r.AppServer,
		DbServer:   r.DbServer,
		AuthServer: r.AuthServer,
	}, nil
}

// VoucherTypes lista el catálogo de tipos de comprobante habilitados.
func (c *WSFEClient) VoucherTypes(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CatalogItem, error) {
	env, err := c.call(ctx, "FEParamGetTiposCbte", feParamTiposCbteBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.TiposCbteResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetTiposCbte sin respuesta"))
	}
	result := env.Body.TiposCbteResponse.Result
	return c.catalogItems(result.ResultGet, result.Errors)
}

// DocumentTypes lista el catálogo de tipos de documento del receptor.
func (c *WSFEClient) DocumentTypes(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CatalogItem, error) {
	env, err := c.call(ctx, "FEParamGetTiposDoc", feParamTiposDocBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.TiposDocResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetTiposDoc sin respuesta"))
	}
	result := env.Body.TiposDocResponse.Result
	return c.catalogItems(result.ResultGet, result.Errors)
}

// VATTypes lista las alícuotas de IVA reconocidas por el servicio.
func (c *WSFEClient) VATTypes(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CatalogItem, error) {
	env, err := c.call(ctx, "FEParamGetTiposIva", feParamTiposIvaBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.TiposIvaResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetTiposIva sin respuesta"))
	}
	result := env.Body.TiposIvaResponse.Result
	return c.catalogItems(result.ResultGet, result.Errors)
}

// ConceptTypes lista los conceptos admitidos (productos, servicios, ambos).
func (c *WSFEClient) ConceptTypes(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CatalogItem, error) {
	env, err := c.call(ctx, "FEParamGetTiposConcepto", feParamTiposConceptoBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.TiposConceptoResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetTiposConcepto sin respuesta"))
	}
	result := env.Body.TiposConceptoResponse.Result
	return c.catalogItems(result.ResultGet, result.Errors)
}

// ReceiverTaxConditions lista las condiciones frente al IVA admitidas para el
// receptor (RG 5616).
func (c *WSFEClient) ReceiverTaxConditions(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CatalogItem, error) {
	env, err := c.call(ctx, "FEParamGetCondicionIvaReceptor", feParamCondIvaBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.CondIvaResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetCondicionIvaReceptor sin respuesta"))
	}
	result := env.Body.CondIvaResponse.Result
	return c.catalogItems(result.ResultGet, result.Errors)
}

// Currencies lista las monedas habilitadas y sus identificadores alfabéticos.
func (c *WSFEClient) Currencies(ctx context.Context, ticket *entity.AccessTicket) ([]billing.CurrencyItem, error) {
	env, err := c.call(ctx, "FEParamGetTiposMonedas", feParamMonedasBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.MonedasResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetTiposMonedas sin respuesta"))
	}
	result := env.Body.MonedasResponse.Result
	if err := c.asServiceError(result.Errors); err != nil {
		return nil, err
	}
	items := make([]billing.CurrencyItem, 0, len(result.ResultGet))
	for _, it := range result.ResultGet {
		items = append(items, billing.CurrencyItem{ID: it.ID, Description: it.Desc})
	}
	return items, nil
}

// catalogItems traduce un catálogo crudo a entradas de dominio, priorizando el
// array Errors.
func (c *WSFEClient) catalogItems(raw []feCatalogItem, errs []feError) ([]billing.CatalogItem, error) {
	if err := c.asServiceError(errs); err != nil {
		return nil, err
	}
	items := make([]billing.CatalogItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, billing.CatalogItem{ID: it.ID, Description: it.Desc})
	}
	return items, nil
}

// SalesPoints lista los puntos de venta habilitados para el CUIT emisor.
func (c *WSFEClient) SalesPoints(ctx context.Context, ticket *entity.AccessTicket) ([]billing.SalesPoint, error) {
	env, err := c.call(ctx, "FEParamGetPtosVenta", feParamPtosVentaBody{Auth: c.auth(ticket)})
	if err != nil {
		return nil, err
	}
	if env.Body.PtosVentaResponse == nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe: FEParamGetPtosVenta sin respuesta"))
	}
	result := env.Body.PtosVentaResponse.Result
	if err := c.asServiceError(result.Errors); err != nil {
		return nil, err
	}
	points := make([]billing.SalesPoint, 0, len(result.ResultGet))
	for _, pv := range result.ResultGet {
		points = append(points, billing.SalesPoint{
			Number:       pv.Nro,
			EmissionType: pv.EmisionTipo,
			Blocked:      pv.Bloqueado == "S",
		})
	}
	return points, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

// call ejecuta una operación SOAP contra el WSFEv1 y devuelve el sobre parseado.
// Fallas de red, timeouts y 5xx se devuelven como transitorias.
func (c *WSFEClient) call(ctx context.Context, operation string, content any) (*wsfeResponseEnvelope, error) {
	envelope := wsfeEnvelope{
		XmlnsS:  soapEnvNS,
		XmlnsAr: wsfeNS,
		Body:    wsfeBody{Content: content},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("wsfe: serializar %s: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("wsfe: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", wsfeNS+operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewTransientError(fmt.Errorf("wsfe %s: %w", operation, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe %s: leer respuesta: %w", operation, err))
	}
	if resp.StatusCode >= 500 {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe %s: HTTP %d", operation, resp.StatusCode))
	}

	var parsed wsfeResponseEnvelope
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe %s: respuesta ilegible: %w", operation, err))
	}
	if parsed.Body.Fault != nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsfe %s: fault [%s] %s",
			operation, parsed.Body.Fault.Code, parsed.Body.Fault.String))
	}
	return &parsed, nil
}

// asServiceError traduce el array Errors a la taxonomía de dominio: códigos de
// credenciales → ErrAuthFailure; el resto se considera transitorio del servicio.
func (c *WSFEClient) asServiceError(errs []feError) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		if isAuthErrorCode(e.Code) {
			return fmt.Errorf("%w: [%d] %s", domain.ErrAuthFailure, e.Code, e.Msg)
		}
	}
	first := errs[0]
	return domain.NewTransientError(fmt.Errorf("wsfe: [%d] %s", first.Code, first.Msg))
}
