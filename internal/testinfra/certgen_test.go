package testinfra

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCert(t *testing.T, pemData []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(pemData)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestGenerateCertBundle_Chain(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	ca := parseCert(t, bundle.CACert)
	assert.True(t, ca.IsCA)
	assert.Equal(t, "dbfill-test-ca", ca.Subject.CommonName)

	roots := x509.NewCertPool()
	roots.AddCert(ca)

	tests := []struct {
		name   string
		pem    []byte
		cn     string
		usage  x509.ExtKeyUsage
		verify x509.VerifyOptions
	}{
		{
			name:   "server",
			pem:    bundle.ServerCert,
			cn:     "dbfill-test-server",
			usage:  x509.ExtKeyUsageServerAuth,
			verify: x509.VerifyOptions{Roots: roots, DNSName: "localhost"},
		},
		{
			name:   "client",
			pem:    bundle.ClientCert,
			cn:     PostgresUser,
			usage:  x509.ExtKeyUsageClientAuth,
			verify: x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := parseCert(t, tt.pem)
			assert.False(t, cert.IsCA)
			assert.Equal(t, tt.cn, cert.Subject.CommonName)
			assert.Contains(t, cert.ExtKeyUsage, tt.usage)
			_, err := cert.Verify(tt.verify)
			assert.NoError(t, err)
		})
	}
}

func TestGenerateCertBundle_HostsSplitByKind(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"db.local", "10.0.0.5", "::1"})
	require.NoError(t, err)

	server := parseCert(t, bundle.ServerCert)
	assert.Equal(t, []string{"db.local"}, server.DNSNames)
	require.Len(t, server.IPAddresses, 2)
	assert.Equal(t, "10.0.0.5", server.IPAddresses[0].String())
	assert.Equal(t, "::1", server.IPAddresses[1].String())
}

func TestGenerateCertBundle_KeysMatchCertificates(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	_, err = tls.X509KeyPair(bundle.ServerCert, bundle.ServerKey)
	assert.NoError(t, err)
	_, err = tls.X509KeyPair(bundle.ClientCert, bundle.ClientKey)
	assert.NoError(t, err)
	_, err = tls.X509KeyPair(bundle.CACert, bundle.CAKey)
	assert.NoError(t, err)
}

func TestGenerateCertBundle_ForeignCARejected(t *testing.T) {
	first, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)
	second, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(parseCert(t, first.CACert))

	_, err = parseCert(t, second.ClientCert).Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	assert.Error(t, err)
}

func TestCertBundle_WriteToDir(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := bundle.WriteToDir(dir)
	require.NoError(t, err)

	files := map[string][]byte{
		paths.CACert:     bundle.CACert,
		paths.ServerCert: bundle.ServerCert,
		paths.ServerKey:  bundle.ServerKey,
		paths.ClientCert: bundle.ClientCert,
		paths.ClientKey:  bundle.ClientKey,
	}
	for path, want := range files {
		assert.Equal(t, dir, filepath.Dir(path))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, filepath.Base(path))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), filepath.Base(path))
		}
	}
}

func TestCertBundle_WriteToDir_MissingDir(t *testing.T) {
	bundle, err := GenerateCertBundle([]string{"localhost"})
	require.NoError(t, err)

	_, err = bundle.WriteToDir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write ca.crt")
}
