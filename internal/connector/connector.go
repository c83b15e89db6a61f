// Package connector holds named (endpoint, credentials, timeouts, proxy)
// records used by RemoteClient construction, and the registry that loads
// them from the JSON connector source described in spec.md §6.
package connector

import "time"

// Connector is one named remote-service credential profile. It deliberately
// holds no password field: Password re-reads and re-decodes the password
// bytes from the connector source file on every call, so a plaintext
// password never lives in long-lived memory behind Registry.byID, per
// spec.md §3 ("password bytes... never retained in long-lived memory except
// behind explicit accessors that re-read from source each time") and §6
// ("readPasswordBytes(file, id) always reads freshly from disk"). This
// mirrors the ground-truth
// InsecurePasswordUtil.readPasswordBytes(connectorFile, id), which re-reads
// and re-decodes from disk on every invocation specifically to limit
// heap-dump exposure.
type Connector struct {
	ID             string
	Endpoint       string
	Username       string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProxyHost      string
	ProxyPort      int

	sourcePath string
}

// HasProxy reports whether requests through this connector must flow through
// a proxy, per spec.md §4.2.
func (c Connector) HasProxy() bool {
	return c.ProxyHost != ""
}

// Password re-reads the connector source file and decodes this connector's
// password bytes fresh on every call. The caller owns the returned slice
// and must call Zero on it as soon as it has been handed to the
// authenticator, per spec.md §5.
func (c Connector) Password() ([]byte, error) {
	return readPasswordBytes(c.sourcePath, c.ID)
}

// Zero overwrites b with zero bytes in place. Call this on every password
// byte slice returned by Password immediately after it is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// New constructs a Connector. sourcePath is the connector JSON file Password
// re-reads from on every call; the Connector itself never caches a
// decoded password.
func New(id, endpoint, username string, connectTimeout, readTimeout, writeTimeout time.Duration, proxyHost string, proxyPort int, sourcePath string) Connector {
	return Connector{
		ID:             id,
		Endpoint:       endpoint,
		Username:       username,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		ProxyHost:      proxyHost,
		ProxyPort:      proxyPort,
		sourcePath:     sourcePath,
	}
}
