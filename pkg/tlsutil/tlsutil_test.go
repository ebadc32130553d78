package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ironwood-Cyber/decorator-demo/config"
	"github.com/Ironwood-Cyber/decorator-demo/errors"
)

// generateTestCert creates a self-signed certificate for 127.0.0.1 and localhost.
func generateTestCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   "localhost",
		},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	return certPEM, keyPEM
}

// setupTestFiles writes a cert, its key and the same cert as a CA bundle.
func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	tmpDir := t.TempDir()
	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")
	caFile = filepath.Join(tmpDir, "ca.pem")

	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	return certFile, keyFile, caFile
}

func TestLoadServerTLSConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)

	tests := []struct {
		name       string
		cfg        config.ServerTLSConfig
		wantNil    bool
		wantErr    bool
		clientAuth tls.ClientAuthType
	}{
		{name: "disabled", cfg: config.ServerTLSConfig{}, wantNil: true},
		{
			name: "tls 1.3",
			cfg:  config.ServerTLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"},
		},
		{
			name: "optional client certs",
			cfg: config.ServerTLSConfig{
				Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientCAFiles: []string{caFile},
			},
			clientAuth: tls.VerifyClientCertIfGiven,
		},
		{
			name: "required client certs",
			cfg: config.ServerTLSConfig{
				Enabled: true, CertFile: certFile, KeyFile: keyFile,
				ClientCAFiles: []string{caFile}, RequireClientCert: true,
			},
			clientAuth: tls.RequireAndVerifyClientCert,
		},
		{
			name:    "missing cert file",
			cfg:     config.ServerTLSConfig{Enabled: true, CertFile: "/nonexistent/cert.pem", KeyFile: keyFile},
			wantErr: true,
		},
		{
			name: "bad client CA",
			cfg: config.ServerTLSConfig{
				Enabled: true, CertFile: certFile, KeyFile: keyFile, ClientCAFiles: []string{keyFile},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadServerTLSConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsFatal(err))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.NotEmpty(t, got.Certificates)
			assert.Equal(t, parseTLSVersion(tt.cfg.MinVersion), got.MinVersion)
			assert.Equal(t, tt.clientAuth, got.ClientAuth)
		})
	}
}

func TestLoadClientTLSConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)

	got, err := LoadClientTLSConfig(config.ClientTLSConfig{CAFiles: []string{caFile}, MinVersion: "1.3"})
	require.NoError(t, err)
	assert.NotNil(t, got.RootCAs)
	assert.Equal(t, uint16(tls.VersionTLS13), got.MinVersion)
	assert.False(t, got.InsecureSkipVerify)
	assert.Empty(t, got.Certificates)

	got, err = LoadClientTLSConfig(config.ClientTLSConfig{CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)
	assert.Len(t, got.Certificates, 1)

	_, err = LoadClientTLSConfig(config.ClientTLSConfig{CAFiles: []string{"/nonexistent/ca.pem"}})
	assert.True(t, errors.IsFatal(err))

	_, err = LoadClientTLSConfig(config.ClientTLSConfig{CertFile: certFile})
	assert.Error(t, err)
}

func TestParseTLSVersion(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS13), parseTLSVersion("1.3"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("1.2"))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion(""))
	assert.Equal(t, uint16(tls.VersionTLS12), parseTLSVersion("1.0"))
}

func TestNewHTTPClient_TrustsConfiguredCA(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)

	serverTLS, err := LoadServerTLSConfig(config.ServerTLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	srv.TLS = serverTLS
	srv.StartTLS()
	defer srv.Close()

	client, err := NewHTTPClient(config.ClientTLSConfig{CAFiles: []string{caFile}})
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))

	untrusting, err := NewHTTPClient(config.ClientTLSConfig{})
	require.NoError(t, err)
	_, err = untrusting.Get(srv.URL)
	assert.Error(t, err, "self-signed server must not be trusted without its CA")
}
