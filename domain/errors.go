package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// auction lifecycle and bidding errors
	ErrAuctionNotFound       = errors.New("auction not found")
	ErrAuctionNotOpen        = errors.New("auction is not open for bidding")
	ErrAuctionExpired        = errors.New("auction has ended")
	ErrBidTooLow             = errors.New("bid amount does not exceed current high bid")
	ErrIncrementTooSmall     = errors.New("bid increment below minimum")
	ErrSelfOutbid            = errors.New("bidder already holds the high bid")
	ErrOwnerCannotBid        = errors.New("owners may not bid on their own auction")
	ErrConcurrentModification = errors.New("auction was modified concurrently, please resubmit")
	ErrInvalidTransition     = errors.New("invalid auction status transition")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrDuplicateSubmission   = errors.New("duplicate bid submission")

	// request error
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPeriod = errors.New("endTime must be after startTime")
)
