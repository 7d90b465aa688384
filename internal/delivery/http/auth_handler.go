package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"nextvault/internal/crypto"
	"nextvault/internal/delivery/http/dto"
	"nextvault/internal/domain"
	"nextvault/internal/middleware"
	"nextvault/internal/service"
)

// AuthHandler handles authentication-related requests: password login
// and wallet signature login.
type AuthHandler struct {
	userRepo     domain.UserRepository
	points       *service.PointsService
	nonces       domain.NonceStore
	activityRepo domain.ActivityRepository
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userRepo domain.UserRepository,
	points *service.PointsService,
	nonces domain.NonceStore,
	activityRepo domain.ActivityRepository,
) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		points:       points,
		nonces:       nonces,
		activityRepo: activityRepo,
	}
}

// loginMessage is the exact text a wallet signs to authenticate. The
// verify step rebuilds it from the stored nonce, so the two sides can
// never drift apart.
func loginMessage(nonce string) string {
	return fmt.Sprintf("Sign this message to log in to NextVault.\nNonce: %s", nonce)
}

func generateReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func setTokenCookie(c echo.Context, token string) {
	cookie := &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400, // 24 hours
	}
	c.SetCookie(cookie)
}

func userOutput(user *domain.User) *dto.UserOutput {
	return &dto.UserOutput{
		ID:            user.ID.String(),
		Username:      user.Username,
		WalletAddress: user.WalletAddress,
		Role:          user.Role,
		ReferralCode:  user.ReferralCode,
		TotalPoints:   user.TotalPoints,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if req.Username == "" || req.Password == "" {
		return BadRequestResponse(c, "Username and password are required")
	}
	if len(req.Password) < 6 {
		return BadRequestResponse(c, "Password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Resolve the referral code before creating the account so a bad
	// code fails loudly instead of silently dropping the referral.
	var referredBy *uuid.UUID
	if req.ReferralCode != "" {
		referrer, err := h.userRepo.GetByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return BadRequestResponse(c, "Unknown referral code")
			}
			return InternalServerErrorResponse(c, "Failed to resolve referral code", err)
		}
		referredBy = &referrer.ID
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleUser,
		ReferralCode: generateReferralCode(),
		ReferredBy:   referredBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		return InternalServerErrorResponse(c, "Failed to create user", err)
	}

	// Welcome bonus is best-effort.
	if err := h.points.AwardSignupBonus(ctx, user.ID); err != nil {
		log.Printf("WARNING: Failed to award signup bonus to %s: %v", user.ID, err)
	}

	return CreatedResponse(c, userOutput(user))
}

// Login handles password login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if req.Username == "" || req.Password == "" {
		return BadRequestResponse(c, "Username and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return UnauthorizedResponse(c, "Invalid credentials")
	}

	token, err := middleware.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	setTokenCookie(c, token)

	return SuccessResponse(c, dto.LoginResponse{
		Token: token,
		User:  userOutput(user),
	})
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie := &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1, // Delete cookie
	}
	c.SetCookie(cookie)

	return SuccessMessageResponse(c, "Logged out", nil)
}

// WalletNonce issues a one-time nonce for wallet signature login
// POST /api/auth/wallet/nonce
func (h *AuthHandler) WalletNonce(c echo.Context) error {
	var req dto.WalletNonceRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if !crypto.IsValidAddress(req.Address) {
		return BadRequestResponse(c, "Invalid wallet address")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	nonce, err := h.nonces.Issue(ctx, req.Address)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to issue nonce", err)
	}

	return SuccessResponse(c, dto.WalletNonceResponse{
		Address: req.Address,
		Nonce:   nonce,
		Message: loginMessage(nonce),
	})
}

// WalletVerify verifies the signed nonce and logs the wallet in,
// creating an account on first login.
// POST /api/auth/wallet/verify
func (h *AuthHandler) WalletVerify(c echo.Context) error {
	var req dto.WalletVerifyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if !crypto.IsValidAddress(req.Address) {
		return BadRequestResponse(c, "Invalid wallet address")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	nonce, err := h.nonces.Consume(ctx, req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UnauthorizedResponse(c, "Nonce expired or not issued")
		}
		return InternalServerErrorResponse(c, "Failed to check nonce", err)
	}

	if err := crypto.VerifyPersonalSignature(req.Address, loginMessage(nonce), req.Signature); err != nil {
		log.Printf("WARNING: Wallet signature verification failed for %s: %v", req.Address, err)
		return UnauthorizedResponse(c, "Signature verification failed")
	}

	user, err := h.userRepo.GetByWallet(ctx, req.Address)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = h.createWalletUser(ctx, req.Address)
	}
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to resolve wallet user", err)
	}

	token, err := middleware.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	setTokenCookie(c, token)

	return SuccessResponse(c, dto.LoginResponse{
		Token: token,
		User:  userOutput(user),
	})
}

// WalletLink attaches a verified wallet to the logged-in account, so a
// password user can use wallet login and on-chain portfolio reads.
// POST /api/user/wallet/link
func (h *AuthHandler) WalletLink(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.WalletVerifyRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if !crypto.IsValidAddress(req.Address) {
		return BadRequestResponse(c, "Invalid wallet address")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	nonce, err := h.nonces.Consume(ctx, req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UnauthorizedResponse(c, "Nonce expired or not issued")
		}
		return InternalServerErrorResponse(c, "Failed to check nonce", err)
	}

	if err := crypto.VerifyPersonalSignature(req.Address, loginMessage(nonce), req.Signature); err != nil {
		log.Printf("WARNING: Wallet signature verification failed for %s: %v", req.Address, err)
		return UnauthorizedResponse(c, "Signature verification failed")
	}

	// A wallet can back at most one account.
	if existing, err := h.userRepo.GetByWallet(ctx, req.Address); err == nil {
		if existing.ID == userID {
			return SuccessMessageResponse(c, "Wallet already linked", userOutput(existing))
		}
		return ConflictResponse(c, "Wallet is already linked to another account")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return InternalServerErrorResponse(c, "Failed to check wallet", err)
	}

	if err := h.userRepo.LinkWallet(ctx, userID, req.Address); err != nil {
		return DomainErrorResponse(c, err)
	}

	go func() {
		bgCtx, bgCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer bgCancel()
		activity := &domain.Activity{
			ID:           uuid.New(),
			UserID:       userID,
			ActivityType: domain.ActivityWalletLinked,
			Description:  fmt.Sprintf("Linked wallet %s", req.Address),
			Metadata:     map[string]any{"wallet_address": req.Address},
			CreatedAt:    time.Now(),
		}
		if err := h.activityRepo.Insert(bgCtx, activity); err != nil {
			log.Printf("WARNING: Failed to log wallet link for user %s: %v", userID, err)
		}
	}()

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	log.Printf("[OK] Linked wallet %s to user %s", req.Address, userID)
	return SuccessMessageResponse(c, "Wallet linked", userOutput(user))
}

// createWalletUser provisions an account for a wallet seen for the
// first time. Wallet accounts have no password.
func (h *AuthHandler) createWalletUser(ctx context.Context, address string) (*domain.User, error) {
	now := time.Now()
	user := &domain.User{
		ID:            uuid.New(),
		Username:      strings.ToLower(address),
		PasswordHash:  "none",
		WalletAddress: &address,
		Role:          domain.RoleUser,
		ReferralCode:  generateReferralCode(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := h.points.AwardSignupBonus(ctx, user.ID); err != nil {
		log.Printf("WARNING: Failed to award signup bonus to %s: %v", user.ID, err)
	}

	log.Printf("[OK] Created wallet user %s for %s", user.ID, address)
	return user, nil
}
