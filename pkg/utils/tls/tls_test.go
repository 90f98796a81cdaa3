package tls

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"
)

func TestCreateSelfSignedTLSCertificate(t *testing.T) {
	cert, err := CreateSelfSignedTLSCertificate()
	if err != nil {
		t.Fatalf("CreateSelfSignedTLSCertificate() returned error: %v", err)
	}

	if len(cert.Certificate) != 1 {
		t.Fatalf("Certificate chain length = %d, want 1 (self-signed)", len(cert.Certificate))
	}
	if cert.PrivateKey == nil {
		t.Fatal("Private key is nil")
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}

	t.Run("Subject", func(t *testing.T) {
		if len(x509Cert.Subject.Organization) == 0 || x509Cert.Subject.Organization[0] != "RipeSense" {
			t.Errorf("Organization = %v, want [RipeSense]", x509Cert.Subject.Organization)
		}
		if x509Cert.Subject.CommonName != "ripesense-api" {
			t.Errorf("CommonName = %s, want ripesense-api", x509Cert.Subject.CommonName)
		}
	})

	t.Run("Validity Period", func(t *testing.T) {
		now := time.Now()
		if x509Cert.NotBefore.After(now) {
			t.Error("Certificate NotBefore is in the future")
		}
		if x509Cert.NotAfter.Before(now) {
			t.Error("Certificate NotAfter is in the past")
		}

		validityDuration := x509Cert.NotAfter.Sub(x509Cert.NotBefore)
		tolerance := time.Hour * 24
		if validityDuration < certValidity-tolerance || validityDuration > certValidity+tolerance {
			t.Errorf("Certificate validity duration = %v, want approximately %v", validityDuration, certValidity)
		}
	})

	t.Run("Key Usage", func(t *testing.T) {
		expectedKeyUsage := x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature
		if x509Cert.KeyUsage != expectedKeyUsage {
			t.Errorf("KeyUsage = %v, want %v", x509Cert.KeyUsage, expectedKeyUsage)
		}
		if len(x509Cert.ExtKeyUsage) == 0 || x509Cert.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth {
			t.Errorf("ExtKeyUsage = %v, want [ServerAuth]", x509Cert.ExtKeyUsage)
		}
	})

	t.Run("SANs", func(t *testing.T) {
		if err := x509Cert.VerifyHostname("localhost"); err != nil {
			t.Errorf("Certificate does not cover localhost: %v", err)
		}
		if err := x509Cert.VerifyHostname("127.0.0.1"); err != nil {
			t.Errorf("Certificate does not cover 127.0.0.1: %v", err)
		}
	})
}

func TestCreateSelfSignedTLSCertificate_SelfSigned(t *testing.T) {
	cert, err := CreateSelfSignedTLSCertificate()
	if err != nil {
		t.Fatalf("CreateSelfSignedTLSCertificate() returned error: %v", err)
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}

	if x509Cert.Issuer.String() != x509Cert.Subject.String() {
		t.Errorf("Certificate is not self-signed: Issuer=%s, Subject=%s",
			x509Cert.Issuer.String(), x509Cert.Subject.String())
	}

	roots := x509.NewCertPool()
	roots.AddCert(x509Cert)
	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if _, err := x509Cert.Verify(opts); err != nil {
		t.Errorf("Certificate failed self-verification: %v", err)
	}
}

func TestCreateSelfSignedTLSCertificate_Uniqueness(t *testing.T) {
	cert1, err := CreateSelfSignedTLSCertificate()
	if err != nil {
		t.Fatalf("First certificate generation failed: %v", err)
	}
	cert2, err := CreateSelfSignedTLSCertificate()
	if err != nil {
		t.Fatalf("Second certificate generation failed: %v", err)
	}

	x509Cert1, err := x509.ParseCertificate(cert1.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse first certificate: %v", err)
	}
	x509Cert2, err := x509.ParseCertificate(cert2.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse second certificate: %v", err)
	}

	if x509Cert1.SerialNumber.Cmp(x509Cert2.SerialNumber) == 0 {
		t.Error("Two certificates have the same serial number")
	}
}

func TestCreateSelfSignedTLSCertificate_UsableForServing(t *testing.T) {
	cert, err := CreateSelfSignedTLSCertificate()
	if err != nil {
		t.Fatalf("CreateSelfSignedTLSCertificate() returned error: %v", err)
	}

	config := &tls.Config{Certificates: []tls.Certificate{cert}}
	if len(config.Certificates) != 1 {
		t.Errorf("TLS config has %d certificates, want 1", len(config.Certificates))
	}
}
