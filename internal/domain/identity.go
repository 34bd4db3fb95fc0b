package domain

// ExternalProfile is the account data an OAuth provider returns for an
// access token.
type ExternalProfile struct {
	ID       string
	Email    string
	Name     string
	ImageURL string
}
