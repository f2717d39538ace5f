package cluster

import (
	"crypto/tls"
	"errors"
	"time"
)

// Credentials holds the authentication material handed to the
// authentication state machine, a collaborator entirely out of scope for
// this package: the core never inspects these fields itself.
type Credentials struct {
	Username string
	Password string
	Source   string
}

// ConnectionSettings is immutable after construction. Connect validates
// it once and stores a copy.
type ConnectionSettings struct {
	// Hosts is the seed host list, "host:port" strings. Must be
	// non-empty; Connect fails with KindNoHostSpecified otherwise.
	Hosts []string

	Credentials *Credentials
	TLS         *tls.Config
	AppName     string

	// PoolSize is advisory sizing information; this package does not read
	// it or pass it to the Transport. This core pools connections
	// unbounded, one entry per distinct host actually opened.
	PoolSize int

	// HeartbeatFrequency is the Discovery Loop's tick interval. Default
	// 10s; clamped to a 500ms floor.
	HeartbeatFrequency time.Duration

	// ReadableSecondary is the cluster-wide flag mirrored onto every
	// pooled connection.
	ReadableSecondary bool

	// Transport and Codec are the required collaborators.
	Transport Transport
	Codec     Codec

	// SessionManager is optional; defaults to a no-op implementation.
	SessionManager SessionManager

	// Logger is optional; defaults to DefaultSLogger(), a no-op.
	Logger SLogger

	seedHosts []Host
}

// validate checks the parts of ConnectionSettings that must be correct
// before Connect does anything else: configuration errors such as an
// empty seed list are immediately terminal, never recovered like a
// per-host connect failure.
func (s *ConnectionSettings) validate() error {
	if len(s.Hosts) == 0 {
		return newClusterError(KindNoHostSpecified, Host{}, nil)
	}
	if s.Transport == nil {
		return errors.New("dbcluster: ConnectionSettings.Transport must be set")
	}
	if s.Codec == nil {
		return errors.New("dbcluster: ConnectionSettings.Codec must be set")
	}
	for _, raw := range s.Hosts {
		h, err := ParseHost(raw)
		if err != nil {
			return newClusterError(KindNoHostSpecified, Host{}, err)
		}
		s.seedHosts = append(s.seedHosts, h)
	}
	return nil
}

// applyDefaults fills in the zero-value defaults for heartbeat frequency,
// session manager, and logger. Must run after validate.
func (s *ConnectionSettings) applyDefaults() {
	if s.HeartbeatFrequency == 0 {
		s.HeartbeatFrequency = defaultHeartbeatFrequency
	}
	if s.HeartbeatFrequency < minHeartbeatFrequency {
		s.HeartbeatFrequency = minHeartbeatFrequency
	}
	if s.SessionManager == nil {
		s.SessionManager = noopSessionManager{}
	}
	if s.Logger == nil {
		s.Logger = DefaultSLogger()
	}
}
