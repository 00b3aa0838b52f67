package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"

	"lottochain/internal/state"
)

const drawDomainV0 = "lotto/draw/v0"

// drawSignBytes fixes the message the authority must sign to produce the
// round's randomness. It commits to the round number and the drawing phase's
// start time, so the value is determined before any ticket index can be
// computed and cannot be ground by re-signing.
func drawSignBytes(lot *state.LotteryState) []byte {
	out := make([]byte, 0, len(drawDomainV0)+1+8+8)
	out = append(out, []byte(drawDomainV0)...)
	out = append(out, 0)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], lot.RoundNumber)
	out = append(out, buf[:]...)
	binary.LittleEndian.PutUint64(buf[:], uint64(lot.PhaseStartedAt))
	out = append(out, buf[:]...)
	return out
}

// verifyDrawRandomness checks that the supplied value is the authority's
// Ed25519 signature over the round's draw sign bytes. v0 stance: an honest
// authority with a deterministic signer stands in for a full VRF; a real VRF
// proof verifies through the same seam.
func verifyDrawRandomness(st *state.State, randomness []byte) error {
	if len(randomness) != ed25519.SignatureSize {
		return errorsmod.Wrapf(ErrInvalidRandomness, "got %d bytes, want %d", len(randomness), ed25519.SignatureSize)
	}
	pub := st.AccountKeys[st.Lottery.Authority]
	if len(pub) != ed25519.PublicKeySize {
		return errorsmod.Wrap(ErrInvalidRandomness, "authority has no registered pubKey")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), drawSignBytes(st.Lottery), randomness) {
		return errorsmod.Wrap(ErrInvalidRandomness, "signature does not verify")
	}
	return nil
}

// drawTicketIndex maps the verified randomness onto a uniform index in
// [0, n). Rejection sampling over a sha256(seed||counter) stream keeps the
// result unbiased for any n.
func drawTicketIndex(seed []byte, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	limit := ^uint64(0) - ^uint64(0)%n
	var counter uint64
	for {
		buf := make([]byte, len(seed)+8)
		copy(buf, seed)
		binary.LittleEndian.PutUint64(buf[len(seed):], counter)
		h := sha256.Sum256(buf)
		counter++
		v := binary.LittleEndian.Uint64(h[:8])
		if v < limit {
			return v % n
		}
	}
}
