// SPDX-License-Identifier: MIT

package controlplane

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Credentials are the locally-running launcher's REST+WebSocket
// connection details, discovered from its process command line
// (spec.md §3). Their lifetime is process-wide and must be rediscovered
// whenever the launcher restarts.
type Credentials struct {
	Port      uint16
	AuthToken string
	Protocol  string // "https" for REST, "wss" for the WebSocket leg
	CertChain []byte
}

// RESTCredentials returns a copy of creds with Protocol set for the REST
// leg ("https").
func (c Credentials) RESTCredentials() Credentials {
	c.Protocol = "https"
	return c
}

// WebSocketCredentials returns a copy of creds with Protocol set for the
// WebSocket leg ("wss").
func (c Credentials) WebSocketCredentials() Credentials {
	c.Protocol = "wss"
	return c
}

// launcherProcessName is the process whose command line carries the
// discoverable port and auth token.
const launcherProcessName = "LeagueClientUx.exe"

// ErrLauncherNotRunning is returned by Discover when no matching process
// is found — an expected, non-fatal condition (spec.md §7 item 2): the
// caller sleeps and retries.
var ErrLauncherNotRunning = fmt.Errorf("controlplane: %s not running", launcherProcessName)

// Discover finds the launcher process and parses its command line for
// the `--app-port=`, `--remoting-auth-token=` flags, plus locates the
// certificate the launcher writes alongside its install so REST/WebSocket
// calls can validate the self-signed TLS chain. The actual process
// enumeration is platform-specific; see credentials_windows.go.
func Discover() (Credentials, error) {
	cmdline, err := findLauncherCommandLine()
	if err != nil {
		return Credentials{}, err
	}
	return parseCommandLine(cmdline)
}

// parseCommandLine extracts the port, auth token, and certificate path
// from the launcher's argv, shared between the real Windows lookup and
// tests (which supply a synthetic command line).
func parseCommandLine(cmdline string) (Credentials, error) {
	var creds Credentials
	var certPath string

	for _, arg := range strings.Fields(cmdline) {
		switch {
		case strings.HasPrefix(arg, "--app-port="):
			port, err := strconv.ParseUint(strings.TrimPrefix(arg, "--app-port="), 10, 16)
			if err != nil {
				return Credentials{}, fmt.Errorf("parse --app-port: %w", err)
			}
			creds.Port = uint16(port)
		case strings.HasPrefix(arg, "--remoting-auth-token="):
			creds.AuthToken = strings.TrimPrefix(arg, "--remoting-auth-token=")
		case strings.HasPrefix(arg, "--riotgames-cert-path="):
			certPath = strings.Trim(strings.TrimPrefix(arg, "--riotgames-cert-path="), `"`)
		}
	}

	if creds.Port == 0 || creds.AuthToken == "" {
		return Credentials{}, fmt.Errorf("controlplane: command line missing app-port or auth-token")
	}

	if certPath != "" {
		chain, err := os.ReadFile(certPath) // #nosec G304 - path comes from the launcher's own argv
		if err == nil {
			creds.CertChain = chain
		}
	}

	return creds, nil
}
