package auth

// LoginInput carries the credentials for a sign-in attempt.
type LoginInput struct {
	Username string
	Password string
}

// RegisterInput carries a borrower self-registration.
type RegisterInput struct {
	Username         string
	Name             string
	Email            string
	IdentifierNumber string
	Password         string
}

// TokenPair is the access/refresh pair handed to clients.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}
