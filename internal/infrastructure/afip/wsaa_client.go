package afip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/smallstep/pkcs7"

	"github.com/tu-usuario/facturador-afip/internal/domain"
	"github.com/tu-usuario/facturador-afip/internal/domain/entity"
)

// ── Endpoints WSAA ────────────────────────────────────────────────────────────

const (
	wsaaURLHomo = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	wsaaURLProd = "https://wsaa.afip.gov.ar/ws/services/LoginCms"

	soapEnvNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	wsaaNS     = "http://wsaa.view.sua.dvadac.desein.afip.gov"
	wsaaAction = ""

	// Ventana de validez del TRA. La generación se atrasa unos minutos para
	// tolerar desfasaje de reloj contra los servidores de AFIP.
	traGenSkew = 2 * time.Minute
	traWindow  = 10 * time.Minute
)

// wsaaURL devuelve el endpoint de LoginCms para el entorno.
func wsaaURL(environment string) (string, error) {
	switch environment {
	case entity.EnvHomologation:
		return wsaaURLHomo, nil
	case entity.EnvProduction:
		return wsaaURLProd, nil
	default:
		return "", fmt.Errorf("entorno desconocido %q", environment)
	}
}

// WSAAClient obtiene tickets de acceso contra el WSAA: arma el TRA, lo firma
// en CMS (PKCS#7) con el certificado del emisor y ejecuta loginCms.
type WSAAClient struct {
	httpClient  *http.Client
	credential  *Credential
	environment string
	baseURL     string // vacío: se resuelve por entorno; los tests lo fijan
	log         zerolog.Logger

	now func() time.Time
}

// NewWSAAClient construye el cliente. El timeout de red es generoso: el WSAA
// puede tardar varios segundos en validar la firma.
func NewWSAAClient(credential *Credential, environment string, log zerolog.Logger) *WSAAClient {
	return &WSAAClient{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		credential:  credential,
		environment: environment,
		log:         log,
		now:         time.Now,
	}
}

// Login solicita un ticket de acceso nuevo para el servicio dado.
//
// Mapeo de errores:
//   - problemas de certificado/firma o fault del WSAA → domain.ErrAuthFailure
//   - red, timeout o 5xx → *domain.TransientAuthorityError
func (c *WSAAClient) Login(ctx context.Context, service string) (*entity.AccessTicket, error) {
	url := c.baseURL
	if url == "" {
		resolved, err := wsaaURL(c.environment)
		if err != nil {
			return nil, err
		}
		url = resolved
	}

	tra, err := c.buildTRA(service)
	if err != nil {
		return nil, err
	}
	cms, err := c.signCMS(tra)
	if err != nil {
		return nil, err
	}

	raw, err := c.callLoginCms(ctx, url, cms)
	if err != nil {
		return nil, err
	}

	ticket, err := c.parseLoginResponse(raw, service)
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("servicio", service).Str("entorno", c.environment).
		Time("vence", ticket.ExpiresAt).Msg("ticket WSAA obtenido")
	return ticket, nil
}

// buildTRA arma el loginTicketRequest (TRA) en XML.
func (c *WSAAClient) buildTRA(service string) ([]byte, error) {
	now := c.now()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")

	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(fmt.Sprintf("%d", now.Unix()))
	header.CreateElement("generationTime").SetText(now.Add(-traGenSkew).Format(time.RFC3339))
	header.CreateElement("expirationTime").SetText(now.Add(traWindow).Format(time.RFC3339))

	root.CreateElement("service").SetText(service)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar TRA: %w", err)
	}
	return out, nil
}

// signCMS firma el TRA como CMS/PKCS#7 attached y lo devuelve en Base64.
func (c *WSAAClient) signCMS(tra []byte) (string, error) {
	signed, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return "", fmt.Errorf("%w: iniciar firma CMS: %v", domain.ErrAuthFailure, err)
	}
	if err := signed.AddSigner(c.credential.Certificate, c.credential.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return "", fmt.Errorf("%w: firmar TRA: %v", domain.ErrAuthFailure, err)
	}
	der, err := signed.Finish()
	if err != nil {
		return "", fmt.Errorf("%w: cerrar CMS: %v", domain.ErrAuthFailure, err)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// ── SOAP loginCms ─────────────────────────────────────────────────────────────

type loginCmsEnvelope struct {
	XMLName xml.Name     `xml:"soapenv:Envelope"`
	XmlnsS  string       `xml:"xmlns:soapenv,attr"`
	XmlnsW  string       `xml:"xmlns:wsaa,attr"`
	Body    loginCmsBody `xml:"soapenv:Body"`
}

type loginCmsBody struct {
	LoginCms loginCmsRequest `xml:"wsaa:loginCms"`
}

type loginCmsRequest struct {
	In0 string `xml:"wsaa:in0"`
}

type loginCmsResponseEnvelope struct {
	Body struct {
		Response *struct {
			Return string `xml:"loginCmsReturn"`
		} `xml:"loginCmsResponse"`
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

func (c *WSAAClient) callLoginCms(ctx context.Context, url, cmsB64 string) ([]byte, error) {
	envelope := loginCmsEnvelope{
		XmlnsS: soapEnvNS,
		XmlnsW: wsaaNS,
		Body: loginCmsBody{
			LoginCms: loginCmsRequest{In0: cmsB64},
		},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", wsaaAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewTransientError(fmt.Errorf("wsaa: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("wsaa: leer respuesta: %w", err))
	}
	if resp.StatusCode >= 500 {
		return nil, domain.NewTransientError(fmt.Errorf("wsaa: HTTP %d", resp.StatusCode))
	}
	return raw, nil
}

// parseLoginResponse desempaqueta el loginCmsReturn (un loginTicketResponse
// escapado dentro del sobre SOAP) y lo convierte en AccessTicket.
func (c *WSAAClient) parseLoginResponse(raw []byte, service string) (*entity.AccessTicket, error) {
	var env loginCmsResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: respuesta WSAA ilegible: %v", domain.ErrAuthFailure, err)
	}

	if env.Body.Fault != nil {
		fault := env.Body.Fault
		// Faults de negocio del WSAA (certificado vencido, TRA fuera de
		// ventana, CUIT no autorizado) son terminales, no transitorios.
		return nil, fmt.Errorf("%w: WSAA fault [%s]: %s",
			domain.ErrAuthFailure, fault.Code, fault.String)
	}
	if env.Body.Response == nil || strings.TrimSpace(env.Body.Response.Return) == "" {
		return nil, fmt.Errorf("%w: respuesta WSAA vacía", domain.ErrAuthFailure)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(env.Body.Response.Return); err != nil {
		return nil, fmt.Errorf("%w: loginTicketResponse ilegible: %v", domain.ErrAuthFailure, err)
	}

	token := doc.FindElement("//credentials/token")
	sign := doc.FindElement("//credentials/sign")
	genTime := doc.FindElement("//header/generationTime")
	expTime := doc.FindElement("//header/expirationTime")
	if token == nil || sign == nil || expTime == nil {
		return nil, fmt.Errorf("%w: loginTicketResponse incompleto", domain.ErrAuthFailure)
	}

	expiresAt, err := time.Parse(time.RFC3339, expTime.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: expirationTime inválido %q: %v",
			domain.ErrAuthFailure, expTime.Text(), err)
	}
	issuedAt := c.now()
	if genTime != nil {
		if t, err := time.Parse(time.RFC3339, genTime.Text()); err == nil {
			issuedAt = t
		}
	}

	return &entity.AccessTicket{
		Token:       token.Text(),
		Sign:        sign.Text(),
		Service:     service,
		Environment: c.environment,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}, nil
}
