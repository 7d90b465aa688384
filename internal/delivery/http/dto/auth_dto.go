package dto

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username     string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required,min=6"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string      `json:"token"`
	User  *UserOutput `json:"user"`
}

// UserOutput represents user details in API responses
type UserOutput struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	Role          string  `json:"role"`
	ReferralCode  string  `json:"referral_code"`
	TotalPoints   float64 `json:"total_points"`
}

// WalletNonceRequest asks for a login nonce for a wallet address
type WalletNonceRequest struct {
	Address string `json:"address" validate:"required"`
}

// WalletNonceResponse carries the message the wallet must sign
type WalletNonceResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// WalletVerifyRequest carries the signed login message
type WalletVerifyRequest struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}
