package testinfra

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Certificates are valid from a few minutes in the past so clock skew between
// the host and the container does not reject them.
const (
	certBackdate = 5 * time.Minute
	certLifetime = time.Hour
)

// CertBundle holds PEM-encoded material for a throwaway test PKI.
type CertBundle struct {
	CACert, CAKey         []byte
	ServerCert, ServerKey []byte
	ClientCert, ClientKey []byte
}

// CertPaths locates a CertBundle written to disk.
type CertPaths struct {
	CACert     string
	ServerCert string
	ServerKey  string
	ClientCert string
	ClientKey  string
}

type issued struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	der  []byte
}

func (i *issued) pem() (cert, key []byte, err error) {
	keyDER, err := x509.MarshalECPrivateKey(i.key)
	if err != nil {
		return nil, nil, err
	}
	cert = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: i.der})
	key = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return cert, key, nil
}

// issue creates a P-256 key and a certificate for tmpl signed by parent.
// A nil parent self-signs.
func issue(tmpl *x509.Certificate, parent *issued) (*issued, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key for %s: %w", tmpl.Subject.CommonName, err)
	}

	now := time.Now()
	tmpl.NotBefore = now.Add(-certBackdate)
	tmpl.NotAfter = now.Add(certLifetime)

	signer, signerCert := key, tmpl
	if parent != nil {
		signer, signerCert = parent.key, parent.cert
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, signerCert, &key.PublicKey, signer)
	if err != nil {
		return nil, fmt.Errorf("create certificate %s: %w", tmpl.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate %s: %w", tmpl.Subject.CommonName, err)
	}
	return &issued{cert: cert, key: key, der: der}, nil
}

// GenerateCertBundle creates a CA, a server certificate for hosts, and a
// client certificate for the "postgres" role, all signed by the CA.
func GenerateCertBundle(hosts []string) (*CertBundle, error) {
	ca, err := issue(&x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "dbfill-test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil)
	if err != nil {
		return nil, err
	}

	serverTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "dbfill-test-server"},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			serverTmpl.IPAddresses = append(serverTmpl.IPAddresses, ip)
		} else {
			serverTmpl.DNSNames = append(serverTmpl.DNSNames, h)
		}
	}
	server, err := issue(serverTmpl, ca)
	if err != nil {
		return nil, err
	}

	// The client CN must match the database role for cert authentication.
	client, err := issue(&x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: PostgresUser},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, ca)
	if err != nil {
		return nil, err
	}

	b := &CertBundle{}
	for _, part := range []struct {
		src       *issued
		cert, key *[]byte
	}{
		{ca, &b.CACert, &b.CAKey},
		{server, &b.ServerCert, &b.ServerKey},
		{client, &b.ClientCert, &b.ClientKey},
	} {
		if *part.cert, *part.key, err = part.src.pem(); err != nil {
			return nil, fmt.Errorf("encode %s: %w", part.src.cert.Subject.CommonName, err)
		}
	}
	return b, nil
}

// WriteToDir writes the bundle's certificates and keys into dir with
// owner-only permissions, which PostgreSQL requires for key files.
func (b *CertBundle) WriteToDir(dir string) (*CertPaths, error) {
	paths := &CertPaths{
		CACert:     filepath.Join(dir, "ca.crt"),
		ServerCert: filepath.Join(dir, "server.crt"),
		ServerKey:  filepath.Join(dir, "server.key"),
		ClientCert: filepath.Join(dir, "client.crt"),
		ClientKey:  filepath.Join(dir, "client.key"),
	}

	for _, f := range []struct {
		path string
		data []byte
	}{
		{paths.CACert, b.CACert},
		{paths.ServerCert, b.ServerCert},
		{paths.ServerKey, b.ServerKey},
		{paths.ClientCert, b.ClientCert},
		{paths.ClientKey, b.ClientKey},
	} {
		if err := os.WriteFile(f.path, f.data, 0600); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
	}
	return paths, nil
}
