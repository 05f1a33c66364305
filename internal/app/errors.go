package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// This message is intended to be shown to end users and should not enable account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect username or password")

	ErrUsernameAndPasswordRequired = errors.New("username and password required")
	ErrUsernameAlreadyExists       = errors.New("username already exists")
	ErrEmailRequired               = errors.New("email required")
	ErrInvalidVerificationCode     = errors.New("invalid or expired verification code")

	ErrItemNotFound    = errors.New("item not found")
	ErrItemNotActive   = errors.New("item is not active")
	ErrNotOwner        = errors.New("only the owner may do this")
	ErrOwnItem         = errors.New("cannot act on your own listing")
	ErrInvalidItem     = errors.New("item fields invalid")
	ErrInvalidLocation = errors.New("location out of range")
	ErrInvalidCategory = errors.New("unknown category")

	ErrOfferNotFound    = errors.New("offer not found")
	ErrOfferTerminal    = errors.New("offer already resolved")
	ErrOfferNotOpen     = errors.New("offer is not awaiting a response")
	ErrDuplicateOffer   = errors.New("an open offer for this item already exists")
	ErrInvalidPrice     = errors.New("price must be >= 0")
	ErrNotOfferParty    = errors.New("not a party to this offer")
	ErrOfferNotAccepted = errors.New("offer is not accepted")

	ErrNoHandoffPending = errors.New("no pending handoff")
	ErrHandoffRecipient = errors.New("only the designated recipient may complete the handoff")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotParticipant      = errors.New("not a participant")
	ErrTransactionTerminal = errors.New("transaction already closed")
	ErrBadStatusChange     = errors.New("illegal status transition")
	ErrWrongCode           = errors.New("verification code does not match")

	ErrRoomNotFound      = errors.New("chat room not found")
	ErrEmptyMessage      = errors.New("message content required")
	ErrRecipientNotFound = errors.New("recipient not found")
)
