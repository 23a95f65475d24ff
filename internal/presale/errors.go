package presale

import (
	"errors"

	"vigri-presale/internal/storage"
)

// Sentinel errors. All are terminal for the request that produced them.
var (
	ErrUnauthorized        = errors.New("caller is not the sale admin")
	ErrSalesPaused         = errors.New("sales are paused")
	ErrInvalidTierID       = errors.New("invalid tier id")
	ErrTierSoldOut         = errors.New("tier sold out")
	ErrTierPriceNotSet     = errors.New("tier price not set")
	ErrKYCRequired         = errors.New("kyc proof required")
	ErrInviteRequired      = errors.New("invite proof required")
	ErrInvalidDesignChoice = errors.New("invalid design choice")
	ErrAlreadyInitialized  = errors.New("sale already initialized")
	ErrNotInitialized      = errors.New("sale not initialized")
	ErrReplayedRequest     = errors.New("request nonce already used")
)

// Wire codes returned by Code.
const (
	CodeUnauthorized        = "Unauthorized"
	CodeSalesPaused         = "SalesPaused"
	CodeInvalidTierID       = "InvalidTierId"
	CodeTierSoldOut         = "TierSoldOut"
	CodeTierPriceNotSet     = "TierPriceNotSet"
	CodeKYCRequired         = "KycRequired"
	CodeInviteRequired      = "InviteRequired"
	CodeInvalidDesignChoice = "InvalidDesignChoice"
	CodeAlreadyInitialized  = "AlreadyInitialized"
	CodeNotInitialized      = "NotInitialized"
	CodeReplayedRequest     = "ReplayedRequest"
	CodeInsufficientFunds   = "InsufficientFunds"
	CodeConflict            = "Conflict"
	CodeInvalidInput        = "InvalidInput"
	CodeInternal            = "Internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrSalesPaused, CodeSalesPaused},
	{ErrInvalidTierID, CodeInvalidTierID},
	{ErrTierSoldOut, CodeTierSoldOut},
	{ErrTierPriceNotSet, CodeTierPriceNotSet},
	{ErrKYCRequired, CodeKYCRequired},
	{ErrInviteRequired, CodeInviteRequired},
	{ErrInvalidDesignChoice, CodeInvalidDesignChoice},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrReplayedRequest, CodeReplayedRequest},
	{storage.ErrInsufficientFunds, CodeInsufficientFunds},
	{storage.ErrVersionConflict, CodeConflict},
	{storage.ErrInvalidInput, CodeInvalidInput},
}

// Code maps err to a stable string code. Unknown errors map to CodeInternal;
// nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsRejection reports whether err is a business rejection rather than a
// substrate failure.
func IsRejection(err error) bool {
	switch Code(err) {
	case "", CodeInternal, CodeConflict:
		return false
	default:
		return true
	}
}
