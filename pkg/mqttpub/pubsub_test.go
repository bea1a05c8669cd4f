package mqttpub

import (
	"os"
	"path/filepath"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func TestApplyTLSConfigNoopWithoutCAPath(t *testing.T) {
	opts := mqtt.NewClientOptions()
	if err := applyTLSConfig(opts, "", "", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestApplyTLSConfigRejectsMissingCAFile(t *testing.T) {
	opts := mqtt.NewClientOptions()
	if err := applyTLSConfig(opts, "/no/such/ca.pem", "", ""); err == nil {
		t.Fatal("expected error reading missing CA file")
	}
}

func TestApplyTLSConfigRejectsMalformedCert(t *testing.T) {
	dir := t.TempDir()
	caPath := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(caPath, []byte("not a real cert"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := mqtt.NewClientOptions()
	if err := applyTLSConfig(opts, caPath, "", ""); err == nil {
		t.Fatal("expected error parsing malformed CA cert")
	}
}

// TestNewWithBlankClientIDFailsAgainstUnreachableBroker calls New with an
// empty Options.ClientID (which New fills with a generated id) against an
// unreachable broker and checks that it returns an error. The generated id
// is not visible outside New, so it is not asserted on here.
func TestNewWithBlankClientIDFailsAgainstUnreachableBroker(t *testing.T) {
	opts := Options{BrokerURL: "tcp://127.0.0.1:1", Timeout: 1}
	if opts.ClientID != "" {
		t.Fatal("test setup: expected blank ClientID")
	}
	if _, err := New(opts); err == nil {
		t.Fatal("expected connection failure against an unreachable broker")
	}
}
