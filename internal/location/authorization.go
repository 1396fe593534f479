package location

import "fmt"

// Authorization is the user's decision about sharing location with captures.
type Authorization int

const (
	NotDetermined Authorization = iota
	Authorized
	Denied
	Restricted
)

var authorizationNames = map[Authorization]string{
	NotDetermined: "not_determined",
	Authorized:    "authorized",
	Denied:        "denied",
	Restricted:    "restricted",
}

func (a Authorization) String() string {
	if s, ok := authorizationNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Authorization(%d)", int(a))
}

// Allowed reports whether a fix may be requested.
func (a Authorization) Allowed() bool {
	return a == Authorized
}

// Final reports whether the status can no longer change to Authorized without
// the user revisiting the decision.
func (a Authorization) Final() bool {
	return a == Denied || a == Restricted
}

// ParseAuthorization converts the wire name of a status back to its value.
func ParseAuthorization(s string) (Authorization, error) {
	for a, name := range authorizationNames {
		if name == s {
			return a, nil
		}
	}
	return NotDetermined, fmt.Errorf("unknown location authorization %q", s)
}

// MarshalText encodes the status by name for JSON bodies.
func (a Authorization) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (a *Authorization) UnmarshalText(b []byte) error {
	v, err := ParseAuthorization(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
