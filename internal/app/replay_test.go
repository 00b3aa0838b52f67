package app

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"strconv"
	"testing"
)

// registerTxAs builds an auth/register_account envelope for account carrying
// pubKey, signed with priv. Split out from txBytesSigned so tests can sign
// with a key other than the account's derived one.
func registerTxAs(t *testing.T, account string, pubKey ed25519.PublicKey, priv ed25519.PrivateKey) []byte {
	t.Helper()
	value := mustMarshal(t, map[string]any{"account": account, "pubKey": []byte(pubKey)})
	nonce := strconv.FormatUint(testNonce.Add(1), 10)
	sig := ed25519.Sign(priv, txAuthSignBytesV0("auth/register_account", value, nonce, account))
	return mustMarshal(t, map[string]any{
		"type":   "auth/register_account",
		"value":  json.RawMessage(value),
		"nonce":  nonce,
		"signer": account,
		"sig":    sig,
	})
}

func TestSignedTx_ReplayRejected(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "alice", 100)
	mintTestTokens(t, a, "bob", 100)
	registerTestAccount(t, a, "alice")

	tx := txBytesSigned(t, "bank/send", map[string]any{"from": "alice", "to": "bob", "amount": uint64(1)}, "alice")
	mustOk(t, a.deliverTx(tx, 0))

	res := a.deliverTx(tx, 0)
	if res.Code == 0 {
		t.Fatalf("expected replayed tx to be rejected")
	}
	if got := a.st.Balance("alice"); got != 99 {
		t.Fatalf("expected single debit, balance %d", got)
	}
}

func TestSignedTx_WrongSigner_Rejected(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "alice", 100)
	registerTestAccount(t, a, "alice")
	registerTestAccount(t, a, "mallory")

	// mallory signs a send from alice's account.
	tx := txBytesSigned(t, "bank/send", map[string]any{"from": "alice", "to": "mallory", "amount": uint64(50)}, "mallory")
	mustFailCode(t, a.deliverTx(tx, 0), 24)
	if got := a.st.Balance("alice"); got != 100 {
		t.Fatalf("expected alice untouched, balance %d", got)
	}
}

func TestSignedTx_UnregisteredAccount_Rejected(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "ghost", 100)
	tx := txBytesSigned(t, "bank/send", map[string]any{"from": "ghost", "to": "ghost", "amount": uint64(1)}, "ghost")
	mustFailCode(t, a.deliverTx(tx, 0), 24)
}

func TestRegisterAccount_ForeignKeyOverwriteRejected(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "alice", 100)
	registerTestAccount(t, a, "alice")
	alicePub, _ := testEd25519Key("alice")

	// mallory submits a registration for alice carrying mallory's own key,
	// signed with mallory's key. The stored key must win.
	mallPub, mallPriv := testEd25519Key("mallory")
	mustFailCode(t, a.deliverTx(registerTxAs(t, "alice", mallPub, mallPriv), 0), 24)

	if !bytes.Equal(a.st.AccountKeys["alice"], []byte(alicePub)) {
		t.Fatalf("alice's registered key was overwritten")
	}

	// The takeover follow-up must also fail: mallory cannot spend as alice.
	value := mustMarshal(t, map[string]any{"from": "alice", "to": "mallory", "amount": uint64(100)})
	nonce := strconv.FormatUint(testNonce.Add(1), 10)
	sig := ed25519.Sign(mallPriv, txAuthSignBytesV0("bank/send", value, nonce, "alice"))
	tx := mustMarshal(t, map[string]any{
		"type":   "bank/send",
		"value":  json.RawMessage(value),
		"nonce":  nonce,
		"signer": "alice",
		"sig":    sig,
	})
	mustFailCode(t, a.deliverTx(tx, 0), 24)
	if got := a.st.Balance("alice"); got != 100 {
		t.Fatalf("expected alice untouched, balance %d", got)
	}

	// Alice's own key still works.
	mustOk(t, a.deliverTx(txBytesSigned(t, "bank/send", map[string]any{"from": "alice", "to": "mallory", "amount": uint64(1)}, "alice"), 0))
}

func TestRegisterAccount_RotationSignedByCurrentKey(t *testing.T) {
	a := newTestApp(t)

	mintTestTokens(t, a, "alice", 100)
	registerTestAccount(t, a, "alice")
	_, alicePriv := testEd25519Key("alice")
	nextPub, nextPriv := testEd25519Key("alice-next")

	// Rotation carries the new key but is signed with the current one.
	mustOk(t, a.deliverTx(registerTxAs(t, "alice", nextPub, alicePriv), 0))
	if !bytes.Equal(a.st.AccountKeys["alice"], []byte(nextPub)) {
		t.Fatalf("rotation did not store the new key")
	}

	// Old key no longer signs; new key does.
	mustFailCode(t, a.deliverTx(registerTxAs(t, "alice", nextPub, alicePriv), 0), 24)
	mustOk(t, a.deliverTx(registerTxAs(t, "alice", nextPub, nextPriv), 0))
}
