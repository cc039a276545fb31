package quictransport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocol identifies the datagram file protocol over QUIC.
	ALPNProtocol = "udprecv-datagram-v1"
)

// ServerConfig returns a TLS configuration for the sending side, using a
// freshly generated self-signed certificate.
func ServerConfig() (*tls.Config, error) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generate self-signed certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
	}, nil
}

// ClientConfig returns a TLS configuration for the receiver.
// The packet protocol carries no authentication, so the peer certificate
// is not verified.
func ClientConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPNProtocol},
	}
}

// DefaultQUICConfig returns the base QUIC config for datagram sessions.
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		KeepAlivePeriod:         10 * time.Second,
		MaxIdleTimeout:          30 * time.Second,
		DisablePathMTUDiscovery: true,
		EnableDatagrams:         true,
	}
}

func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"udprecv"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
	}, nil
}

// Listen creates a QUIC listener on the given PacketConn.
func Listen(udpConn net.PacketConn, tlsConfig *tls.Config, config *quic.Config, logger *slog.Logger) (*quic.Listener, error) {
	if config == nil {
		config = DefaultQUICConfig()
	}
	listener, err := quic.Listen(udpConn, tlsConfig, config)
	if err != nil {
		logger.Error("QUIC listen failed", "error", err, "local_addr", udpConn.LocalAddr())
		return nil, err
	}
	logger.Debug("QUIC listener created", "local_addr", udpConn.LocalAddr())
	return listener, nil
}

// Dial creates a QUIC connection to remoteAddr using the given PacketConn.
func Dial(ctx context.Context, udpConn net.PacketConn, remoteAddr net.Addr, config *quic.Config, logger *slog.Logger) (*quic.Conn, error) {
	if config == nil {
		config = DefaultQUICConfig()
	}

	logger.Debug("QUIC dial starting", "remote_addr", remoteAddr, "local_addr", udpConn.LocalAddr())

	conn, err := quic.Dial(ctx, udpConn, remoteAddr, ClientConfig(), config)
	if err != nil {
		logger.Error("QUIC dial failed", "error", err, "remote_addr", remoteAddr)
		return nil, err
	}

	logger.Info("QUIC connection established", "remote_addr", remoteAddr)
	return conn, nil
}
