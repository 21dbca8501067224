package ctr

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestReadCertificateChainAfterTMD(t *testing.T) {
	tmd := testTMD()
	var buf bytes.Buffer
	if err := tmd.Write(&buf); err != nil {
		t.Fatalf("write tmd: %v", err)
	}

	ca := testCertificate(t, KeyRsa4096, "CA00000003")
	cp := testCertificate(t, KeyRsa2048, "CP0000000b")
	for _, c := range []Certificate{ca, cp} {
		if err := c.Write(&buf); err != nil {
			t.Fatalf("write certificate: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "title.tmd")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	certs, err := ReadCertificateChain(path)
	if err != nil {
		t.Fatalf("ReadCertificateChain: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("got %d certificates, want 2", len(certs))
	}
	if certs[0].KeyType != KeyRsa4096 || certs[1].KeyType != KeyRsa2048 {
		t.Errorf("unexpected key types: %#x, %#x", uint32(certs[0].KeyType), uint32(certs[1].KeyType))
	}
}

func TestReadCertificateChainRejectsUnrelatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	if err := os.WriteFile(path, []byte("not a tmd or ticket"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadCertificateChain(path); err == nil {
		t.Error("expected error for a file that is neither a tmd nor a ticket")
	}
}

func TestMergeCertificateChainsPicksOneOfEach(t *testing.T) {
	ca := testCertificate(t, KeyRsa4096, "CA00000003")
	cp := testCertificate(t, KeyRsa2048, "CP0000000b")
	xs := testCertificate(t, KeyRsa2048, "XS0000000c")

	merged := MergeCertificateChains([]Certificate{ca, cp}, []Certificate{ca, xs})
	if len(merged) != 3 {
		t.Fatalf("got %d certificates, want 3 (CA, XS, CP)", len(merged))
	}

	var gotCA, gotXS, gotCP bool
	for _, c := range merged {
		name := string(bytes.TrimRight(c.Name, "\x00"))
		switch {
		case name == "CA00000003":
			gotCA = true
		case name == "XS0000000c":
			gotXS = true
		case name == "CP0000000b":
			gotCP = true
		}
	}
	if !gotCA || !gotXS || !gotCP {
		t.Errorf("merged chain missing an expected certificate: %+v", merged)
	}
}

func TestMergeCertificateChainsDeduplicatesCA(t *testing.T) {
	ca := testCertificate(t, KeyRsa4096, "CA00000003")
	merged := MergeCertificateChains([]Certificate{ca}, []Certificate{ca})

	count := 0
	for _, c := range merged {
		if string(bytes.TrimRight(c.Name, "\x00")) == "CA00000003" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("CA certificate appears %d times, want 1", count)
	}
}
