// SPDX-License-Identifier: MIT

package controlplane

import (
	"os"
	"testing"
)

func TestParseCommandLineExtractsPortAndToken(t *testing.T) {
	cmdline := `"C:\Riot Games\League of Legends\LeagueClientUx.exe" --app-port=2999 --remoting-auth-token=abc123XYZ --no-rads`

	creds, err := parseCommandLine(cmdline)
	if err != nil {
		t.Fatalf("parseCommandLine: %v", err)
	}
	if creds.Port != 2999 {
		t.Errorf("got port %d, want 2999", creds.Port)
	}
	if creds.AuthToken != "abc123XYZ" {
		t.Errorf("got auth token %q, want abc123XYZ", creds.AuthToken)
	}
}

func TestParseCommandLineReadsCertPath(t *testing.T) {
	dir := t.TempDir()
	certPath := dir + "/riotgames.pem"
	if err := writeTestFile(certPath, "-----BEGIN CERTIFICATE-----\nfake\n-----END CERTIFICATE-----\n"); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}

	cmdline := `--app-port=2999 --remoting-auth-token=abc --riotgames-cert-path="` + certPath + `"`

	creds, err := parseCommandLine(cmdline)
	if err != nil {
		t.Fatalf("parseCommandLine: %v", err)
	}
	if len(creds.CertChain) == 0 {
		t.Fatal("expected cert chain to be populated")
	}
}

func TestParseCommandLineMissingTokenIsError(t *testing.T) {
	_, err := parseCommandLine(`--app-port=2999`)
	if err == nil {
		t.Fatal("expected error when auth token is missing")
	}
}

func TestRESTAndWebSocketCredentialsSetProtocol(t *testing.T) {
	creds := Credentials{Port: 2999, AuthToken: "tok"}
	if got := creds.RESTCredentials().Protocol; got != "https" {
		t.Errorf("RESTCredentials protocol = %q, want https", got)
	}
	if got := creds.WebSocketCredentials().Protocol; got != "wss" {
		t.Errorf("WebSocketCredentials protocol = %q, want wss", got)
	}
}

func writeTestFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}
