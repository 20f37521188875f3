package utils

import (
	"strings"
	"testing"
)

func TestProofImageKey(t *testing.T) {
	key, err := ProofImageKey("p-123", "My Receipt (1).JPG")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(key, "proofs/p-123/") {
		t.Errorf("Expected proofs/p-123/ prefix, got %s", key)
	}
	if !strings.HasSuffix(key, "-my-receipt-1.jpg") {
		t.Errorf("Expected slugged name with lowercase ext, got %s", key)
	}
}

func TestProofImageKey_EmptyBase(t *testing.T) {
	key, err := ProofImageKey("p-1", "!!!.png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasSuffix(key, "-proof.png") {
		t.Errorf("Expected fallback base name, got %s", key)
	}
}

func TestProofImageKey_RejectsNonImages(t *testing.T) {
	for _, name := range []string{"script.sh", "archive.zip", "noext"} {
		if _, err := ProofImageKey("p-1", name); err == nil {
			t.Errorf("Expected %s to be rejected", name)
		}
	}
}
