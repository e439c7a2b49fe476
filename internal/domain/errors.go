package domain

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrZoneNotFound         = errors.New("zone not found")
	ErrZoneAlreadyExists    = errors.New("zone already exists")
	ErrInvalidCapacity      = errors.New("invalid capacity")
	ErrCapacityConflict     = errors.New("capacity conflict with held days")
	ErrPermitTypeUnknown    = errors.New("unknown permit type")
	ErrIneligible           = errors.New("role not eligible for permit type")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrPermitNotFound       = errors.New("permit not found")
	ErrAlreadyTerminal      = errors.New("permit already in a terminal state")
	ErrPaymentRefUnknown    = errors.New("unknown payment reference")
	ErrPaymentWindowElapsed = errors.New("payment window elapsed")
	ErrPermitNotPending     = errors.New("permit is not pending payment")
	ErrHoldReleased         = errors.New("hold already released")
	ErrHoldCommitted        = errors.New("hold is committed")
	ErrEntryNotFound        = errors.New("waitlist entry not found")
	ErrEntryNotOffered      = errors.New("waitlist entry is not offered")
	ErrEntryTerminal        = errors.New("waitlist entry already in a terminal state")
	ErrOfferExpired         = errors.New("waitlist offer expired")
)
