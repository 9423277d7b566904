package market

import "errors"

// Engine error taxonomy. Every rejected operation returns one of these
// (possibly wrapped) and leaves all state unchanged; none are fatal.
var (
	ErrGoodNotFound          = errors.New("good not found")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrQuotaExceeded         = errors.New("acquisition quota exceeded")
	ErrInvalidPrice          = errors.New("price must be positive")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrAlreadyRegistered     = errors.New("already registered")
)
