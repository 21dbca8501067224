package ctr

import "testing"

func TestGenerateKey(t *testing.T) {
	got, err := GenerateKey("0x00040000001adc00", "mypass")
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	const want = "3dbe05484b3c5033c2cefd81e27b0d95"
	if got != want {
		t.Errorf("GenerateKey = %s, want %s", got, want)
	}
}

func TestGenerateTitleKey(t *testing.T) {
	got, err := GenerateTitleKey("0004008c0f70cd00", "")
	if err != nil {
		t.Fatalf("GenerateTitleKey: %v", err)
	}
	const want = "3c7faeff5b1d784d25011149f33f50a7"
	if got != want {
		t.Errorf("GenerateTitleKey = %s, want %s", got, want)
	}
}
