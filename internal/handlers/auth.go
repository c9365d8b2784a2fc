package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"social-service/internal/auth"
	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/repositories"
	"social-service/internal/resettoken"
	"social-service/internal/telemetry"
)

// The forgot-password response is identical for known and unknown emails so
// the endpoint cannot be used to enumerate accounts.
const forgotPasswordReply = "If an account exists with this email, a reset link will be sent."

// AuthHandler owns registration, login and the password-recovery flow.
type AuthHandler struct {
	users   repositories.UserRepository
	tokens  *auth.Manager
	resets  *resettoken.Store
	emitter *telemetry.AuditEmitter
	log     *zap.SugaredLogger

	// exposeResetToken leaks the minted token in the forgot-password
	// response. Off in production, where the token travels by email only.
	exposeResetToken bool
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.Manager, resets *resettoken.Store, emitter *telemetry.AuditEmitter, log *zap.SugaredLogger, exposeResetToken bool) *AuthHandler {
	return &AuthHandler{
		users:            users,
		tokens:           tokens,
		resets:           resets,
		emitter:          emitter,
		log:              log,
		exposeResetToken: exposeResetToken,
	}
}

// Signup registers an account and returns an access token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email     string   `json:"email"`
		Username  string   `json:"username"`
		Password  string   `json:"password"`
		Name      string   `json:"name"`
		Birthdate string   `json:"birthdate"`
		Gender    string   `json:"gender"`
		Interests []string `json:"interests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, username and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.Name,
		Birthdate:    req.Birthdate,
		Gender:       req.Gender,
		Interests:    req.Interests,
	}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	token, err := h.tokens.Generate(user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	h.log.Infow("registered", "username", user.Username)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Login verifies credentials and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	h.log.Infow("login success", "email", user.Email)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout only logs the event; tokens are stateless.
func (h *AuthHandler) Logout(c *gin.Context) {
	email := "unknown"
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		if subject, err := h.tokens.Verify(parts[1]); err == nil {
			email = subject
		}
	}
	h.log.Infow("logout", "email", email)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the acting account's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":          user.Email,
		"username":       user.Username,
		"name":           user.FullName,
		"birthdate":      user.Birthdate,
		"gender":         user.Gender,
		"interests":      user.Interests,
		"followersCount": len(user.Followers),
		"followingCount": len(user.Following),
	})
}

// ForgotPassword issues a reset token for a known email. The response body
// and status never reveal whether the account exists, and unknown emails
// leave no ledger entry behind.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if _, err := h.users.GetByEmail(c.Request.Context(), req.Email); err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			h.log.Warnw("forgot-password lookup failed", "err", err)
		}
		c.JSON(http.StatusOK, gin.H{"message": forgotPasswordReply})
		return
	}

	token, _ := h.resets.Issue(req.Email)
	observability.IncResetTokenIssued()
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("reset token issued for %s", req.Email),
		requestIDFromContext(c), nil)

	resp := gin.H{"message": forgotPasswordReply}
	if h.exposeResetToken {
		resp["resetToken"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a token and replaces the stored credential. Each
// token works at most once; expired tokens are rejected and removed.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and new password are required"})
		return
	}

	email, err := h.resets.Consume(req.Token)
	if err != nil {
		if errors.Is(err, resettoken.ErrTokenExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "reset token has expired"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired reset token"})
		return
	}

	if _, err := h.users.GetByEmail(c.Request.Context(), email); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), email, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("password reset for %s", email),
		requestIDFromContext(c), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
