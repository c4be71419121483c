package models

// ActorKind is the role carried by an authenticated caller
type ActorKind string

// Actor kinds issued by the identity provider
const (
	ActorUser      ActorKind = "user"
	ActorCollector ActorKind = "collector"
	ActorWMA       ActorKind = "wma"
	ActorAdmin     ActorKind = "admin"
)

// Actor is the authenticated identity the core trusts without re-verifying
type Actor struct {
	ID   string    `json:"id"`
	Kind ActorKind `json:"kind"`
}

// Is reports whether the actor holds one of the given kinds
func (a Actor) Is(kinds ...ActorKind) bool {
	for _, k := range kinds {
		if a.Kind == k {
			return true
		}
	}
	return false
}
