package session

import "fmt"

// Version is a negotiated "major.minor" protocol version.
type Version struct {
	Major uint8
	Minor uint8
}

// Current is the protocol version implemented by this client.
var Current = Version{Major: 1, Minor: 1}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major
// version. Minor versions only add optional messages.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}
