package booking

// Per-axis adjacency tables. A transition on an axis is permitted only if the
// target is in the allowed set of the current value; terminal states map to
// an empty set.

var sessionTransitions = map[SessionState][]SessionState{
	SessionRequested: {SessionScheduled, SessionCancelled, SessionExpired},
	SessionScheduled: {SessionActive, SessionEnded, SessionCancelled},
	SessionActive:    {SessionEnded},
	SessionEnded:     {},
	SessionCancelled: {},
	SessionExpired:   {},
}

var paymentTransitions = map[PaymentState][]PaymentState{
	PaymentPending:           {PaymentAuthorized, PaymentVoided},
	PaymentAuthorized:        {PaymentCaptured, PaymentRefunded},
	PaymentCaptured:          {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentPartiallyRefunded: {PaymentRefunded},
	PaymentVoided:            {},
	PaymentRefunded:          {},
}

var disputeTransitions = map[DisputeState][]DisputeState{
	DisputeNone:             {DisputeOpen},
	DisputeOpen:             {DisputeResolvedUpheld, DisputeResolvedRefunded},
	DisputeResolvedUpheld:   {},
	DisputeResolvedRefunded: {},
}

// sessionPaymentPairs lists, for each session state, the payment states a
// transition method can leave it paired with. The creation pair
// REQUESTED/PENDING is included so freshly created bookings audit clean.
var sessionPaymentPairs = map[SessionState][]PaymentState{
	SessionRequested: {PaymentPending},
	SessionScheduled: {PaymentAuthorized},
	SessionActive:    {PaymentAuthorized},
	SessionEnded:     {PaymentCaptured, PaymentRefunded, PaymentPartiallyRefunded},
	SessionExpired:   {PaymentVoided},
	SessionCancelled: {PaymentVoided, PaymentCaptured, PaymentRefunded, PaymentPartiallyRefunded},
}

// CanTransitionTo validates a session state transition.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session state admits no further transition.
func (s SessionState) IsTerminal() bool {
	targets, ok := sessionTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo validates a payment state transition.
func (p PaymentState) CanTransitionTo(target PaymentState) bool {
	for _, allowed := range paymentTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payment state admits no further transition.
func (p PaymentState) IsTerminal() bool {
	targets, ok := paymentTransitions[p]
	return ok && len(targets) == 0
}

// CanTransitionTo validates a dispute state transition.
func (d DisputeState) CanTransitionTo(target DisputeState) bool {
	for _, allowed := range disputeTransitions[d] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the dispute state admits no further transition.
func (d DisputeState) IsTerminal() bool {
	targets, ok := disputeTransitions[d]
	return ok && len(targets) == 0
}

func pairAllowed(s SessionState, p PaymentState) bool {
	for _, allowed := range sessionPaymentPairs[s] {
		if allowed == p {
			return true
		}
	}
	return false
}
