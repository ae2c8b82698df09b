package handlers

import (
	"errors"
	"log"
	"strings"

	"allchat/internal/models"
	"allchat/internal/services"
	"allchat/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthHandler implements dashboard account registration and login.
// Registration also provisions the account's first tenant.
type AuthHandler struct {
	users   *services.UserService
	tenants *services.TenantService
	jwtAuth *auth.JWTAuth
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users *services.UserService, tenants *services.TenantService, jwtAuth *auth.JWTAuth) *AuthHandler {
	return &AuthHandler{users: users, tenants: tenants, jwtAuth: jwtAuth}
}

// Register creates a new dashboard account plus its tenant.
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ [AUTH] password hash failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	userID := uuid.NewString()
	tenantID := uuid.NewString()

	user := &models.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: hash,
		Tenants:      map[string]string{tenantID: "owner"},
	}
	if err := h.users.Create(c.Context(), user); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	tenant := &models.TenantConfig{
		ID:             tenantID,
		Email:          req.Email,
		OwnerUID:       userID,
		BusinessType:   req.BusinessType,
		WelcomeMessage: "Hello! How can I help you today?",
		Members:        map[string]string{userID: "owner"},
	}
	if err := h.tenants.Create(c.Context(), tenant); err != nil {
		log.Printf("❌ [AUTH] tenant provisioning failed for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	access, refresh, err := h.jwtAuth.GenerateTokens(userID, user.Email)
	if err != nil {
		log.Printf("❌ [AUTH] token issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	log.Printf("✅ [AUTH] registered %s tenant=%s", user.Email, tenantID)
	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       userID,
		TenantID:     tenantID,
	})
}

// Login exchanges credentials for a token pair.
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.users.GetByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			log.Printf("❌ [AUTH] login lookup failed: %v", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	access, refresh, err := h.jwtAuth.GenerateTokens(user.ID, user.Email)
	if err != nil {
		log.Printf("❌ [AUTH] token issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	return c.JSON(models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
	})
}

// Refresh exchanges a valid refresh token for a new token pair.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, err := h.jwtAuth.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired refresh token"})
	}

	// Re-check the account still exists before minting new tokens.
	user, err := h.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account no longer exists"})
	}

	access, refresh, err := h.jwtAuth.GenerateTokens(user.ID, user.Email)
	if err != nil {
		log.Printf("❌ [AUTH] token issue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Refresh failed"})
	}

	return c.JSON(models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
	})
}
