package snquic

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerIDFromCert returns the peer ID bound to cert,
// which is the libp2p peer ID of the certificate's public key.
//
// A swarm only accepts a hello whose peer ID
// matches the certificate presented during the TLS handshake.
func PeerIDFromCert(cert *x509.Certificate) (peer.ID, error) {
	pub, err := libp2pcrypto.PubKeyFromStdKey(cert.PublicKey)
	if err != nil {
		return "", fmt.Errorf("unsupported certificate key: %w", err)
	}

	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to derive peer ID from certificate key: %w", err)
	}
	return id, nil
}

// localPeerID derives the peer ID of the first certificate in conf.
func localPeerID(conf *tls.Config) (peer.ID, error) {
	if len(conf.Certificates) == 0 {
		return "", errors.New("TLS configuration has no certificate")
	}

	c := conf.Certificates[0]
	leaf := c.Leaf
	if leaf == nil {
		if len(c.Certificate) == 0 {
			return "", errors.New("TLS certificate has no DER data")
		}

		var err error
		leaf, err = x509.ParseCertificate(c.Certificate[0])
		if err != nil {
			return "", fmt.Errorf("failed to parse TLS certificate: %w", err)
		}
	}

	return PeerIDFromCert(leaf)
}

// remotePeerID derives the peer ID from the certificate the remote end of c presented.
func remotePeerID(c Conn) (peer.ID, error) {
	certs := c.PeerCertificates()
	if len(certs) == 0 {
		return "", errors.New("remote presented no certificate")
	}
	return PeerIDFromCert(certs[0])
}
