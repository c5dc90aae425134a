// Package identity gives the control-plane adapters (REST, gRPC, stream,
// notify) SPIFFE/SPIRE mTLS — never the core's hot path, which has no
// notion of identity. Grounded on the teacher's internal/identity/spiffe.go
// SPIFFEVerifier.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"google.golang.org/grpc/credentials"
)

// Verifier holds an X.509 SVID source for one control-adapter process and
// hands out mTLS credentials derived from it.
type Verifier struct {
	source      *workloadapi.X509Source
	trustDomain spiffeid.TrustDomain
}

// NewVerifier connects to the local SPIRE Workload API at socketPath and
// parses trustDomain, bounding the connection attempt to 3s so a missing
// SPIRE agent never blocks adapter startup indefinitely.
func NewVerifier(ctx context.Context, socketPath, trustDomain string) (*Verifier, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	source, err := workloadapi.NewX509Source(dialCtx, workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)))
	if err != nil {
		return nil, fmt.Errorf("identity: connect to SPIRE workload API: %w", err)
	}

	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("identity: invalid trust domain %q: %w", trustDomain, err)
	}

	slog.Info("connected to SPIRE workload API", "socket", socketPath, "trust_domain", trustDomain)
	return &Verifier{source: source, trustDomain: td}, nil
}

// ServerTransportCredentials returns gRPC transport credentials that
// require every peer to present an SVID in this verifier's trust domain.
// The gRPC listener in cmd/knhk-server does not use them; it is started
// without transport credentials.
func (v *Verifier) ServerTransportCredentials() credentials.TransportCredentials {
	tlsConf := tlsconfig.MTLSServerConfig(v.source, v.source, tlsconfig.AuthorizeMemberOf(v.trustDomain))
	return credentials.NewTLS(tlsConf)
}

// ClientTransportCredentials returns gRPC transport credentials that
// authenticate to a control-plane server presenting expectedID. None of
// the cmd entrypoints calls it.
func (v *Verifier) ClientTransportCredentials(expectedID string) (credentials.TransportCredentials, error) {
	id, err := spiffeid.FromString(expectedID)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid expected SPIFFE ID %q: %w", expectedID, err)
	}
	tlsConf := tlsconfig.MTLSClientConfig(v.source, v.source, tlsconfig.AuthorizeID(id))
	return credentials.NewTLS(tlsConf), nil
}

// Close releases the X.509 source's connection to the Workload API.
func (v *Verifier) Close() error {
	return v.source.Close()
}

// SpiffeID formats the SPIFFE ID a control adapter presents for itself.
func SpiffeID(trustDomain, component string) string {
	return fmt.Sprintf("spiffe://%s/%s", trustDomain, component)
}
