package actions

// State is a step of the verification state machine
type State string

const (
	StatePresented  State = "presented"
	StateVerified   State = "verified"
	StateReanchored State = "reanchored"
	StateFinalized  State = "finalized"
	StateRejected   State = "rejected"
)

// Terminal reports whether no transition leaves the state
func (s State) Terminal() bool {
	return s == StateReanchored || s == StateFinalized || s == StateRejected
}

var verificationTransitions = map[State]map[State]struct{}{
	StatePresented: {
		StateVerified: {},
		StateRejected: {},
	},
	StateVerified: {
		StateReanchored: {},
		StateFinalized:  {},
	},
}

func canTransition(from, to State) bool {
	if allowed, ok := verificationTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// statePath records the states a single Handle call walks through
type statePath []State

func (p statePath) current() State {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p statePath) advance(to State) (statePath, bool) {
	if !canTransition(p.current(), to) {
		return p, false
	}
	return append(p, to), true
}

// verifyToken is the entry predicate checked after signature and expiry:
// the token must belong to the session subject and carry their current email.
func verifyToken(token *ActionToken, actx *ActionContext) error {
	if token == nil || actx == nil || actx.Subject == nil {
		return newError(ErrInvalidToken, map[string]any{"reason": "missing token context"})
	}

	if token.SubjectID != actx.Subject.ID {
		return newError(ErrInvalidToken, map[string]any{
			"reason":     "token subject does not match session subject",
			"subject_id": actx.Subject.ID,
		})
	}

	if actx.Subject.Email == "" || token.Email != actx.Subject.Email {
		return newError(ErrEmailMismatch, map[string]any{
			"subject_id": actx.Subject.ID,
		})
	}

	return nil
}

// nextAfterVerified picks the transition out of Verified. A session created
// for this click means the first hop.
func nextAfterVerified(fresh bool) State {
	if fresh {
		return StateReanchored
	}
	return StateFinalized
}

type redirectDecision int

const (
	decisionCallerRedirect redirectDecision = iota
	decisionConfirmationPage
	decisionRequiredAction
	decisionSessionRedirect
)

func (d redirectDecision) String() string {
	switch d {
	case decisionCallerRedirect:
		return "caller_redirect"
	case decisionConfirmationPage:
		return "confirmation_page"
	case decisionRequiredAction:
		return "required_action"
	case decisionSessionRedirect:
		return "session_redirect"
	}
	return "unknown"
}

type redirectInput struct {
	HasRedirect          bool
	RedirectValid        bool
	Reanchored           bool
	ConfirmAfterReanchor bool
	NextAction           RequiredAction
	SessionRedirect      string
}

// resolveRedirect chooses where a finalized flow goes next. A valid caller
// redirect wins, a reanchored flow shows the confirmation page when
// configured to, anything else continues with the session.
func resolveRedirect(in redirectInput) redirectDecision {
	if in.HasRedirect && in.RedirectValid {
		return decisionCallerRedirect
	}

	if in.Reanchored && in.ConfirmAfterReanchor {
		return decisionConfirmationPage
	}

	if in.NextAction != "" {
		return decisionRequiredAction
	}

	if in.SessionRedirect != "" {
		return decisionSessionRedirect
	}

	return decisionConfirmationPage
}
