package distributor

import "errors"

var (
	// ErrNotEligible means the address is absent from the distribution's
	// recipient list. User-facing and recoverable.
	ErrNotEligible = errors.New("address is not eligible for this distribution")

	// ErrProofUnavailable means the persisted distribution record is
	// missing or corrupted. Recoverable: on-chain state is unaffected,
	// only the local proof cache is lost.
	ErrProofUnavailable = errors.New("distribution record unavailable, cannot regenerate proof")

	// ErrVerificationMismatch means a locally generated proof failed local
	// verification. This indicates a build or persistence defect and
	// should never occur if invariants hold; it is surfaced, never
	// retried or silently tolerated.
	ErrVerificationMismatch = errors.New("locally generated proof failed verification")
)
