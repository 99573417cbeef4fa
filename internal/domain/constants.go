package domain

const (
	FriendshipAccepted = "accepted"
	FriendshipBlocked  = "blocked"
)

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

const (
	VisibilityEveryone = "everyone"
	VisibilityFriends  = "friends"
	VisibilityNobody   = "nobody"
)

// DefaultNearbyRadiusMeters is one statute mile, the default "people near
// me" radius on the map.
const DefaultNearbyRadiusMeters = 1609.34

// StaleAfterMs is the freshness window: a fix older than this renders as
// stale on the map.
const StaleAfterMs = 120000
