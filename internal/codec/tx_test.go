package codec

import (
	"encoding/json"
	"testing"
)

func TestDecodeTxEnvelope_OK(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":  "bank/mint",
		"value": map[string]any{"to": "alice", "amount": 123},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Type != "bank/mint" {
		t.Fatalf("unexpected type: %q", env.Type)
	}

	var v BankMintTx
	if err := json.Unmarshal(env.Value, &v); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if v.To != "alice" || v.Amount != 123 {
		t.Fatalf("unexpected value: %+v", v)
	}
}

func TestDecodeTxEnvelope_CarriesAuthFields(t *testing.T) {
	b, err := json.Marshal(map[string]any{
		"type":   "lottery/advance",
		"value":  map[string]any{},
		"nonce":  "7",
		"signer": "auth",
		"sig":    make([]byte, 64),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	env, err := DecodeTxEnvelope(b)
	if err != nil {
		t.Fatalf("DecodeTxEnvelope: %v", err)
	}
	if env.Nonce != "7" || env.Signer != "auth" || len(env.Sig) != 64 {
		t.Fatalf("auth fields not carried: %+v", env)
	}
}

func TestDecodeTxEnvelope_MissingType(t *testing.T) {
	if _, err := DecodeTxEnvelope([]byte(`{"value":{}}`)); err == nil {
		t.Fatalf("expected missing type to fail")
	}
}

func TestDecodeTxEnvelope_BadJSON(t *testing.T) {
	if _, err := DecodeTxEnvelope([]byte("not json")); err == nil {
		t.Fatalf("expected invalid json to fail")
	}
}
