package embed

import "fmt"

// State is the lifecycle state of a window.
//
//	Uninitialized → Loading → Synced ⇄ Writing
//	Loading → Inert (section missing or read failure), Inert → Loading on reload
//	any → Detached (terminal)
//
// Invariants:
//   - Uninitialized: the surface is empty and no store subscription exists.
//   - Loading: surface mutations are programmatic; user edits are not
//     scheduled for write-back.
//   - Synced: the surface shows the section as of the last load or write and
//     at most one debounced write-back is scheduled.
//   - Writing: exactly one write-back runs; external change notifications
//     are dropped and further debounce fires set the pending flag.
//   - Inert: a placeholder is shown, nothing is written; a reload may recover.
//   - Detached: no timer, no subscriptions, no surface mutation.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateSynced
	StateWriting
	StateInert
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	case StateWriting:
		return "writing"
	case StateInert:
		return "inert"
	case StateDetached:
		return "detached"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateUninitialized; st <= StateDetached; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("embed: unknown state %q", text)
}
