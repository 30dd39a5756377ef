// Package tlsconf derives the TLS identity of the daemon's TCP listener from
// the shared token, so a token is all a client needs to reach it securely.
//
// The private key is deterministic:
//
//	HKDF-SHA256(ikm=passphrase, salt="sharecast-tls-v1", info="p256-key")
//	→ 48 bytes → reduced into [1, N-1] → ECDSA P-256 scalar
//
// The certificate around it is regenerated on every start. Clients ignore the
// chain and compare the presented public key with the one they derived; a
// different passphrase yields a different key and the handshake fails.
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when TLS is enabled without a token.
const DefaultPassphrase = "sharecast"

const serverName = "sharecast"

// Identity is the pair of configs derived from one passphrase.
type Identity struct {
	server *tls.Config
	client *tls.Config
	spki   []byte
}

// Derive builds the server and client configs for passphrase.
func Derive(passphrase string) (*Identity, error) {
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal pubkey: %w", err)
	}
	der, err := selfSigned(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: cert: %w", err)
	}

	id := &Identity{spki: spki}
	id.server = &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		// h2 for gRPC, http/1.1 for the JSON gateway on the same port.
		NextProtos: []string{"h2", "http/1.1"},
		MinVersion: tls.VersionTLS13,
	}
	id.client = &tls.Config{
		InsecureSkipVerify:    true, //nolint:gosec // public key pinned below
		ServerName:            serverName,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: id.verify,
	}
	return id, nil
}

// ServerConfig is the config for tls.NewListener.
func (id *Identity) ServerConfig() *tls.Config { return id.server.Clone() }

// ClientConfig is the pinned config for plain TLS clients.
func (id *Identity) ClientConfig() *tls.Config { return id.client.Clone() }

// ClientCredentials wraps ClientConfig for grpc.WithTransportCredentials.
func (id *Identity) ClientCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(id.ClientConfig())
}

// Fingerprint is the hex SHA-256 of the public key, for display.
func (id *Identity) Fingerprint() string {
	sum := sha256.Sum256(id.spki)
	return hex.EncodeToString(sum[:])
}

func (id *Identity) verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return errors.New("tlsconf: server presented no certificate")
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("tlsconf: parse server cert: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("tlsconf: marshal server pubkey: %w", err)
	}
	if !bytes.Equal(pub, id.spki) {
		return errors.New("tlsconf: server public key does not match token")
	}
	return nil
}

func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("sharecast-tls-v1"), []byte("p256-key"))
	buf := make([]byte, 48)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	n := elliptic.P256().Params().N
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(n, big.NewInt(1)))
	k.Add(k, big.NewInt(1))

	return ecdsa.ParseRawPrivateKey(elliptic.P256(), k.FillBytes(make([]byte, 32)))
}

func selfSigned(key *ecdsa.PrivateKey) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	return x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
}
