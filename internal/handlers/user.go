package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

const searchLimit = 20

// UserHandler exposes the account directory reads.
type UserHandler struct {
	users repositories.UserRepository
	log   *zap.SugaredLogger
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// List returns every account in directory order.
func (h *UserHandler) List(c *gin.Context) {
	all, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}

	result := make([]models.UserSummary, 0, len(all))
	for _, user := range all {
		result = append(result, user.Summary())
	}
	c.JSON(http.StatusOK, result)
}

// Search matches accounts by handle or name, case-insensitive. A failed
// lookup degrades to an empty result so the discovery surface stays
// non-fatal.
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, []models.UserSummary{})
		return
	}

	matches, err := h.users.Search(c.Request.Context(), query, searchLimit)
	if err != nil {
		h.log.Warnw("user search failed", "query", query, "err", err)
		c.JSON(http.StatusOK, []models.UserSummary{})
		return
	}

	result := make([]models.UserSummary, 0, len(matches))
	for _, user := range matches {
		result = append(result, user.Summary())
	}
	c.JSON(http.StatusOK, result)
}

const mentionLimit = 10

// Mentions returns up to ten accounts matching the query, each decorated
// with both directions of the follow relation relative to the actor. The
// actor is never included; failures degrade to an empty list like Search.
func (h *UserHandler) Mentions(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, []models.MentionSummary{})
		return
	}

	matches, err := h.users.Search(c.Request.Context(), query, searchLimit)
	if err != nil {
		h.log.Warnw("mention search failed", "query", query, "err", err)
		c.JSON(http.StatusOK, []models.MentionSummary{})
		return
	}

	following := make(map[string]struct{}, len(actor.Following))
	for _, email := range actor.Following {
		following[email] = struct{}{}
	}
	followers := make(map[string]struct{}, len(actor.Followers))
	for _, email := range actor.Followers {
		followers[email] = struct{}{}
	}

	result := make([]models.MentionSummary, 0, mentionLimit)
	for _, user := range matches {
		if user.Email == actor.Email {
			continue
		}
		_, isFollowing := following[user.Email]
		_, isFollower := followers[user.Email]
		result = append(result, models.MentionSummary{
			UserSummary: user.Summary(),
			IsFollowing: isFollowing,
			IsFollower:  isFollower,
		})
		if len(result) == mentionLimit {
			break
		}
	}

	c.JSON(http.StatusOK, result)
}

// Profile returns one account by handle.
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, user.Summary())
}
