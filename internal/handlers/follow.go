package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// FollowHandler maintains the symmetric follow relation between accounts.
type FollowHandler struct {
	users   repositories.UserRepository
	emitter *telemetry.AuditEmitter
	log     *zap.SugaredLogger
}

// NewFollowHandler builds a FollowHandler.
func NewFollowHandler(users repositories.UserRepository, emitter *telemetry.AuditEmitter, log *zap.SugaredLogger) *FollowHandler {
	return &FollowHandler{users: users, emitter: emitter, log: log}
}

// Follow adds the target to the actor's following set and the actor to the
// target's followers set. The two writes are independent row updates: the
// target row is persisted first, and a failure on the second write is not
// rolled back.
func (h *FollowHandler) Follow(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	target, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to follow user"})
		return
	}

	if actor.Email == target.Email {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}
	if actor.IsFollowing(target.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already following this user"})
		return
	}

	actor.AddFollowing(target.Email)
	target.AddFollower(actor.Email)

	if err := h.users.UpdateFollowSets(c.Request.Context(), &target); err != nil {
		h.log.Errorw("follow: persist target failed", "actor", actor.Username, "target", target.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to follow user"})
		return
	}
	if err := h.users.UpdateFollowSets(c.Request.Context(), &actor); err != nil {
		h.log.Errorw("follow: persist actor failed", "actor", actor.Username, "target", target.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to follow user"})
		return
	}

	observability.IncFollowMutation("follow")
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("%s started following %s", actor.Username, target.Username),
		requestIDFromContext(c), auditUserID(actor))

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Successfully followed user",
		"followersCount": len(target.Followers),
		"followingCount": len(actor.Following),
	})
}

// Unfollow removes the edge from both sets, the exact inverse of Follow.
func (h *FollowHandler) Unfollow(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	target, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unfollow user"})
		return
	}

	if !actor.IsFollowing(target.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not following this user"})
		return
	}

	actor.RemoveFollowing(target.Email)
	target.RemoveFollower(actor.Email)

	if err := h.users.UpdateFollowSets(c.Request.Context(), &target); err != nil {
		h.log.Errorw("unfollow: persist target failed", "actor", actor.Username, "target", target.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unfollow user"})
		return
	}
	if err := h.users.UpdateFollowSets(c.Request.Context(), &actor); err != nil {
		h.log.Errorw("unfollow: persist actor failed", "actor", actor.Username, "target", target.Username, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unfollow user"})
		return
	}

	observability.IncFollowMutation("unfollow")
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("%s unfollowed %s", actor.Username, target.Username),
		requestIDFromContext(c), auditUserID(actor))

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Successfully unfollowed user",
		"followersCount": len(target.Followers),
		"followingCount": len(actor.Following),
	})
}

// Status reports whether the actor follows the named account. A missing
// target or a failed lookup both read as "not following", never an error.
func (h *FollowHandler) Status(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	target, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"isFollowing": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"isFollowing": actor.IsFollowing(target.Email)})
}

// Followers lists the accounts following the named account. Identifiers that
// no longer resolve are dropped from the result.
func (h *FollowHandler) Followers(c *gin.Context) {
	h.listRelation(c, func(u models.User) []string { return u.Followers })
}

// Following lists the accounts the named account follows, with the same
// dangling-reference tolerance as Followers.
func (h *FollowHandler) Following(c *gin.Context) {
	h.listRelation(c, func(u models.User) []string { return u.Following })
}

func (h *FollowHandler) listRelation(c *gin.Context, pick func(models.User) []string) {
	user, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load accounts"})
		return
	}

	emails := pick(user)
	result := make([]models.UserSummary, 0, len(emails))
	for _, email := range emails {
		resolved, err := h.users.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				continue
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load accounts"})
			return
		}
		result = append(result, resolved.Summary())
	}

	c.JSON(http.StatusOK, result)
}

// Counts returns the follower/following totals for the named account.
func (h *FollowHandler) Counts(c *gin.Context) {
	user, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followers": len(user.Followers),
		"following": len(user.Following),
	})
}

const suggestionLimit = 10

// Suggestions returns up to ten accounts the actor does not follow yet, in
// directory enumeration order. A failed enumeration degrades to an empty
// list rather than an error.
func (h *FollowHandler) Suggestions(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	all, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		h.log.Warnw("suggestions: enumeration failed", "actor", actor.Username, "err", err)
		c.JSON(http.StatusOK, []models.UserSummary{})
		return
	}

	excluded := make(map[string]struct{}, len(actor.Following)+1)
	excluded[actor.Email] = struct{}{}
	for _, email := range actor.Following {
		excluded[email] = struct{}{}
	}

	suggestions := make([]models.UserSummary, 0, suggestionLimit)
	for _, user := range all {
		if _, skip := excluded[user.Email]; skip {
			continue
		}
		suggestions = append(suggestions, user.Summary())
		if len(suggestions) == suggestionLimit {
			break
		}
	}

	c.JSON(http.StatusOK, suggestions)
}
