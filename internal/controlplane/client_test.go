// SPDX-License-Identifier: MIT

package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "riot" || pass != "token123" {
			t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"phase": "InProgress"})
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, authToken: "token123", httpClient: srv.Client()}

	var out struct {
		Phase string `json:"phase"`
	}
	if err := c.Get(context.Background(), PathSessionPhase, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Phase != "InProgress" {
		t.Fatalf("got phase %q, want InProgress", out.Phase)
	}
}

func TestClientGetNonOKReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, authToken: "tok", httpClient: srv.Client()}

	err := c.Get(context.Background(), PathCurrentSummoner, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("got %T, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", statusErr.StatusCode)
	}
}

func TestEndpointFormatters(t *testing.T) {
	if got, want := MatchByGameID(42), "/lol-match-history/v1/games/42"; got != want {
		t.Errorf("MatchByGameID: got %q, want %q", got, want)
	}
	if got, want := TimelineByGameID(42), "/lol-match-history/v1/game-timelines/42"; got != want {
		t.Errorf("TimelineByGameID: got %q, want %q", got, want)
	}
	if got, want := QueueByID(420), "/lol-game-queues/v1/queues/420"; got != want {
		t.Errorf("QueueByID: got %q, want %q", got, want)
	}
	if got, want := ChampionByInventoryAndID(1, 99), "/lol-champions/v1/inventories/1/champions/99"; got != want {
		t.Errorf("ChampionByInventoryAndID: got %q, want %q", got, want)
	}
}

func TestNewClientRejectsUnparsableCertChain(t *testing.T) {
	_, err := NewClient(Credentials{
		Port:      2999,
		AuthToken: "tok",
		Protocol:  "https",
		CertChain: []byte("not a certificate"),
	})
	if err == nil {
		t.Fatal("expected error for unparsable cert chain")
	}
}
