package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed certificate for testing
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
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: certDER,
	})
	keyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return certPEM, keyPEM
}

// setupTestFiles creates temporary cert/key/CA files for testing
func setupTestFiles(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()

	tmpDir := t.TempDir()

	certPEM, keyPEM := generateTestCert(t)

	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")
	caFile = filepath.Join(tmpDir, "ca.pem")

	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644)) // Use same cert as CA for testing

	return certFile, keyFile, caFile
}

func TestLoadClientConfig(t *testing.T) {
	certFile, keyFile, caFile := setupTestFiles(t)

	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
		check   func(t *testing.T, tlsConfig *tls.Config)
	}{
		{
			name: "defaults",
			cfg:  ClientConfig{},
			check: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
				assert.NotNil(t, tlsConfig.RootCAs)
				assert.Empty(t, tlsConfig.Certificates)
				assert.False(t, tlsConfig.InsecureSkipVerify)
			},
		},
		{
			name: "additional CA",
			cfg: ClientConfig{
				CAFiles:    []string{caFile},
				MinVersion: "1.3",
			},
			check: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
				assert.NotNil(t, tlsConfig.RootCAs)
			},
		},
		{
			name: "client certificate",
			cfg: ClientConfig{
				CertFile: certFile,
				KeyFile:  keyFile,
			},
			check: func(t *testing.T, tlsConfig *tls.Config) {
				assert.Len(t, tlsConfig.Certificates, 1)
			},
		},
		{
			name: "insecure skip verify",
			cfg: ClientConfig{
				InsecureSkipVerify: true,
			},
			check: func(t *testing.T, tlsConfig *tls.Config) {
				assert.True(t, tlsConfig.InsecureSkipVerify)
			},
		},
		{
			name: "missing CA file",
			cfg: ClientConfig{
				CAFiles: []string{"/nonexistent/ca.pem"},
			},
			wantErr: true,
		},
		{
			name: "cert without key",
			cfg: ClientConfig{
				CertFile: certFile,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlsConfig, err := LoadClientConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tlsConfig)
			tt.check(t, tlsConfig)
		})
	}
}

func TestLoadClientConfig_InvalidPEM(t *testing.T) {
	badCA := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("this is not PEM data"), 0644))

	_, err := LoadClientConfig(ClientConfig{CAFiles: []string{badCA}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse CA certificate")
}

func TestClientConfig_IsZero(t *testing.T) {
	assert.True(t, ClientConfig{}.IsZero())
	assert.False(t, ClientConfig{CAFiles: []string{"ca.pem"}}.IsZero())
	assert.False(t, ClientConfig{MinVersion: "1.3"}.IsZero())
	assert.False(t, ClientConfig{InsecureSkipVerify: true}.IsZero())
}

func TestParseTLSVersion(t *testing.T) {
	tests := []struct {
		version string
		want    uint16
	}{
		{"1.2", tls.VersionTLS12},
		{"1.3", tls.VersionTLS13},
		{"", tls.VersionTLS12},
		{"1.0", tls.VersionTLS12},
		{"garbage", tls.VersionTLS12},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTLSVersion(tt.version), "version %q", tt.version)
	}
}
