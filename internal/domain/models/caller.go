package models

// Caller identifies who is performing an operation. It is threaded
// explicitly through every service call; there is no ambient session.
type Caller struct {
	UserID string
	Guest  bool
}

// User returns a caller for an authenticated user.
func User(userID string) Caller {
	return Caller{UserID: userID}
}

// GuestCaller returns the unauthenticated caller. Guests resolve
// permissions through general access only.
func GuestCaller() Caller {
	return Caller{Guest: true}
}
