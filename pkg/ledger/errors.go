package ledger

import "errors"

var (
	// ErrAlreadyRecorded is returned when an operation that already carries a
	// recorded date is recorded again. Replayed bank confirmations surface here.
	ErrAlreadyRecorded = errors.New("operation already recorded")

	// ErrInvalidAmount is returned when a transaction amount is not positive.
	ErrInvalidAmount = errors.New("amount must be > 0")

	// ErrInvalidDate is returned for zero or out-of-range calendar dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrSelfTransfer is returned when a transfer has the same source and destination.
	ErrSelfTransfer = errors.New("transfer source and destination are the same account")

	// ErrForeignAccount is returned when an account owned by another ledger
	// (or by no ledger) is passed to a ledger operation.
	ErrForeignAccount = errors.New("account does not belong to this ledger")

	// ErrUnknownAccount is returned by Restore when an operation references an
	// account id missing from the snapshot.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidSnapshot is returned by Restore when the snapshot is not a
	// consistent ledger.
	ErrInvalidSnapshot = errors.New("invalid ledger snapshot")
)
