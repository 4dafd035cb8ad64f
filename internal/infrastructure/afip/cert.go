// Carga del certificado X.509 y la clave privada que AFIP asocia al CUIT
// emisor, desde .p12 (PKCS#12) o par PEM.

package afip

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/tu-usuario/facturador-afip/internal/domain"
)

// Credential certificado y clave listos para firmar el TRA.
type Credential struct {
	Certificate *x509.Certificate
	PrivateKey  any
}

// LoadFromP12 carga certificado y clave desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: leer p12: %v", domain.ErrAuthFailure, err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: decodificar p12: %v", domain.ErrAuthFailure, err)
	}
	return &Credential{Certificate: cert, PrivateKey: priv}, nil
}

// LoadFromPEM carga certificado y clave desde archivos PEM. Si keyPath está
// vacío se espera cert y clave en el mismo archivo.
func LoadFromPEM(certPath, keyPath string) (*Credential, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cargar PEM: %v", domain.ErrAuthFailure, err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrAuthFailure, err)
	}
	return &Credential{Certificate: leaf, PrivateKey: pair.PrivateKey}, nil
}

// LoadCredential elige el formato según la extensión configurada: .p12/.pfx o PEM.
func LoadCredential(certPath, keyPath, p12Password string) (*Credential, error) {
	switch strings.ToLower(filepath.Ext(certPath)) {
	case ".p12", ".pfx":
		return LoadFromP12(certPath, p12Password)
	default:
		return LoadFromPEM(certPath, keyPath)
	}
}
