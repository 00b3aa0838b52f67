package app

import (
	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
)

const codespace = "lottery"

// Every protocol failure is a registered error with a stable code so client
// tooling can map a rejected tx to a precise reason. Codes are part of the
// external interface; never renumber.
var (
	// Phase errors.
	ErrUninitialized      = errorsmod.Register(codespace, 2, "lottery not initialized")
	ErrAlreadyInitialized = errorsmod.Register(codespace, 3, "lottery already initialized")
	ErrNotInRequiredPhase = errorsmod.Register(codespace, 4, "operation not valid in current phase")
	ErrPhaseNotCompleted  = errorsmod.Register(codespace, 5, "active phase not completed")

	// Accounting errors.
	ErrTooSmallToMint       = errorsmod.Register(codespace, 6, "deposit too small to mint shares")
	ErrZeroRedeemValue      = errorsmod.Register(codespace, 7, "redeem value rounds to zero")
	ErrTooLargeToRedeem     = errorsmod.Register(codespace, 8, "redeem exceeds share balance")
	ErrInsufficientShares   = errorsmod.Register(codespace, 9, "insufficient shares")
	ErrInsufficientReserves = errorsmod.Register(codespace, 10, "insufficient reserves")
	ErrInsufficientFunds    = errorsmod.Register(codespace, 11, "insufficient funds")

	// Configuration errors.
	ErrPoolRiskRatioTooHigh = errorsmod.Register(codespace, 12, "risk ratio out of range")
	ErrPoolAlreadyCreated   = errorsmod.Register(codespace, 13, "tranche already created")
	ErrInvalidFees          = errorsmod.Register(codespace, 14, "invalid fee configuration")
	ErrFeeTooHigh           = errorsmod.Register(codespace, 15, "combined fees too high")
	ErrDurationTooShort     = errorsmod.Register(codespace, 16, "phase duration too short")
	ErrInvalidTicketPrice   = errorsmod.Register(codespace, 17, "invalid ticket price")

	// Ticketing / settlement errors.
	ErrPurchaseAmountTooLow = errorsmod.Register(codespace, 18, "purchase amount too low")
	ErrRoundNotDrawn        = errorsmod.Register(codespace, 19, "round not drawn")
	ErrNoTranchesRegistered = errorsmod.Register(codespace, 20, "no tranches registered")
	ErrNothingToClaim       = errorsmod.Register(codespace, 21, "nothing to claim")
	ErrInvalidRandomness    = errorsmod.Register(codespace, 22, "invalid draw randomness")

	// Request / authorization errors.
	ErrInvalidRequest = errorsmod.Register(codespace, 23, "invalid request")
	ErrUnauthorized   = errorsmod.Register(codespace, 24, "unauthorized")

	// Arithmetic guard; a tx tripping this is rejected, never partially applied.
	ErrOverflow = errorsmod.Register(codespace, 25, "arithmetic overflow")
)

// errResult maps an error onto an ABCI tx result. Registered errors keep
// their codespace/code and message; unregistered ones are redacted by
// ABCIInfo to the generic internal code, so handlers wrap everything they
// surface.
func errResult(err error) *abci.ExecTxResult {
	space, code, log := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: space, Log: log}
}
