package analytics

// Action is an interaction verb from the closed taxonomy.
// Only taxonomy members pass validation at finalize time; free-text actions
// are rejected so downstream queries stay stable.
type Action string

// The taxonomy. Extending it is an explicit, versioned change.
const (
	// ActionPress records a tap or click on an interactive element.
	ActionPress Action = "press"

	// ActionView records a screen or element becoming visible.
	ActionView Action = "view"

	// ActionChange records an input value change.
	ActionChange Action = "change"

	// ActionError records a user-visible failure.
	ActionError Action = "error"

	// ActionSuccess records a user-visible success confirmation.
	ActionSuccess Action = "success"
)

// TaxonomyVersion is stamped into every event as its schema version.
// Bump when the taxonomy or event shape changes incompatibly.
const TaxonomyVersion = 1

// Valid returns true if the action is a taxonomy member.
func (a Action) Valid() bool {
	switch a {
	case ActionPress, ActionView, ActionChange, ActionError, ActionSuccess:
		return true
	}
	return false
}

// String returns the wire tag for the action.
func (a Action) String() string {
	return string(a)
}

// Actions returns all taxonomy members in stable order.
func Actions() []Action {
	return []Action{ActionPress, ActionView, ActionChange, ActionError, ActionSuccess}
}
