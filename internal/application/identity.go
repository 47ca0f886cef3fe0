package application

// Identity is the authenticated caller. Only AuthService.ValidateToken
// produces one; every TaskService operation requires it.
type Identity struct {
	UserID string
}
