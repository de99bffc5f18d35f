// Package routeid defines the stable identifier shared by the route and
// backend packages without creating an import cycle between them.
package routeid

import "fmt"

// ID identifies a logical route: a (database, user) pair plus the scheme
// version that produced it. A new Version for the same (Database, User)
// marks the previous route as a candidate for obsoletion.
type ID struct {
	Database string
	User     string
	Version  string
}

func (id ID) String() string {
	return fmt.Sprintf("%s.%s.%s", id.Database, id.User, id.Version)
}
