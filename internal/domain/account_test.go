package domain

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
)

func TestAccount_MarshalJSONEmitsXPString(t *testing.T) {
	xp, ok := new(big.Int).SetString("92233720368547758080000", 10)
	if !ok {
		t.Fatal("failed to build fixture xp")
	}
	raw, err := json.Marshal(&Account{XP: xp, Level: 9})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `"xp":"92233720368547758080000"`) {
		t.Fatalf("expected xp as a decimal string, got %s", raw)
	}
}

func TestAccount_MarshalJSONNilXP(t *testing.T) {
	raw, err := json.Marshal(&Account{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(raw), `"xp":"0"`) {
		t.Fatalf("expected nil xp serialized as \"0\", got %s", raw)
	}
}
