package snquictest

import (
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// CA is a certificate authority for test certificates.
type CA struct {
	Cert *x509.Certificate

	privKey ed25519.PrivateKey

	// Counter for the next generated certificate.
	prevSerial int64
}

// GenerateCA generates a new Ed25519 CA, valid for one hour.
func GenerateCA() (*CA, error) {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	template := &x509.Certificate{
		// This is fixed at 1, but the CA type has a counter for subsequent serial numbers.
		SerialNumber: big.NewInt(1),

		Subject: pkix.Name{
			Organization: []string{"Test CA"},
			CommonName:   "Test CA Root",
		},
		NotBefore: time.Now().Add(-15 * time.Second),
		NotAfter:  time.Now().Add(time.Hour),

		KeyUsage: x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage: []x509.ExtKeyUsage{
			// The CA needs every extended key usage that the leaf certificate will have.
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	der, err := x509.CreateCertificate(nil, template, template, pubKey, privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate from DER: %w", err)
	}

	return &CA{
		Cert: cert,

		privKey: privKey,

		prevSerial: 1,
	}, nil
}

// CreateLeaf generates a new leaf certificate from this CA,
// usable for both server and client authentication.
func (ca *CA) CreateLeaf(name string) (tls.Certificate, error) {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	ca.prevSerial++

	template := &x509.Certificate{
		SerialNumber: big.NewInt(ca.prevSerial),
		Subject: pkix.Name{
			Organization: []string{"Test Leaf Cert"},
			CommonName:   name,
		},
		NotBefore: time.Now().Add(-15 * time.Second),
		NotAfter:  time.Now().Add(time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		DNSNames: []string{name},

		// Swarms in tests always dial 127.0.0.1.
		// Without this, you would get an error like:
		// x509: cannot validate certificate for 127.0.0.1 because it doesn't contain any IP SANs.
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},

		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	der, err := x509.CreateCertificate(nil, template, ca.Cert, pubKey, ca.privKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate from DER: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  privKey,

		Leaf: cert,
	}, nil
}
