package guard

// Result is the outcome of validating a presented credential.
// Every value other than Valid means the caller must end the session.
type Result int

const (
	// NoStoredToken is the zero value so an unset Result never reads as valid.
	NoStoredToken Result = iota
	Valid
	Mismatch
	NotPresented
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case NoStoredToken:
		return "no_stored_token"
	case Mismatch:
		return "mismatch"
	case NotPresented:
		return "not_presented"
	default:
		return "unknown"
	}
}

func (r Result) Valid() bool {
	return r == Valid
}
