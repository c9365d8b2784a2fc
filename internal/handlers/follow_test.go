package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"social-service/internal/middleware"
	"social-service/internal/mocks"
	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

func testEmitter() *telemetry.AuditEmitter {
	return telemetry.NewAuditEmitter(nil, "", "", "", nil)
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func setupFollowRouter(handler *FollowHandler, actor models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CurrentUserKey, actor)
		c.Next()
	})
	r.POST("/follow", handler.Follow)
	r.DELETE("/follow/:username", handler.Unfollow)
	r.GET("/follow/status/:username", handler.Status)
	r.GET("/follow/followers/:username", handler.Followers)
	r.GET("/follow/following/:username", handler.Following)
	r.GET("/follow/counts/:username", handler.Counts)
	r.GET("/follow/suggestions", handler.Suggestions)
	return r
}

func alice() models.User {
	return models.User{ID: 1, Email: "alice@example.com", Username: "alice", FullName: "Alice A"}
}

func bob() models.User {
	return models.User{ID: 2, Email: "bob@example.com", Username: "bob", FullName: "Bob B"}
}

func TestFollowSuccessPersistsBothSides(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(bob(), nil).Once()

	var saved []models.User
	userRepo.On("UpdateFollowSets", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			saved = append(saved, *(args.Get(1).(*models.User)))
		}).
		Return(nil).Twice()

	req := httptest.NewRequest(http.MethodPost, "/follow", bytes.NewBufferString(`{"username":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// Target row is written first, actor second; both sides carry the edge.
	require.Len(t, saved, 2)
	assert.Equal(t, "bob@example.com", saved[0].Email)
	assert.Contains(t, saved[0].Followers, "alice@example.com")
	assert.Equal(t, "alice@example.com", saved[1].Email)
	assert.Contains(t, saved[1].Following, "bob@example.com")

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.EqualValues(t, 1, resp["followersCount"])
	assert.EqualValues(t, 1, resp["followingCount"])

	userRepo.AssertExpectations(t)
}

func TestFollowSelfRejected(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "alice").Return(alice(), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/follow", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "UpdateFollowSets", mock.Anything, mock.Anything)
}

func TestFollowAlreadyFollowingLeavesStateUnchanged(t *testing.T) {
	actor := alice()
	actor.Following = []string{"bob@example.com"}

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, actor)

	target := bob()
	target.Followers = []string{"alice@example.com"}
	userRepo.On("GetByUsername", mock.Anything, "bob").Return(target, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/follow", bytes.NewBufferString(`{"username":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "UpdateFollowSets", mock.Anything, mock.Anything)
}

func TestFollowUnknownTarget(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/follow", bytes.NewBufferString(`{"username":"ghost"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnfollowIsExactInverse(t *testing.T) {
	actor := alice()
	actor.Following = []string{"bob@example.com"}
	target := bob()
	target.Followers = []string{"alice@example.com"}

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, actor)

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(target, nil).Once()

	var saved []models.User
	userRepo.On("UpdateFollowSets", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			saved = append(saved, *(args.Get(1).(*models.User)))
		}).
		Return(nil).Twice()

	req := httptest.NewRequest(http.MethodDelete, "/follow/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, saved, 2)
	assert.Empty(t, saved[0].Followers)
	assert.Empty(t, saved[1].Following)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 0, resp["followersCount"])
	assert.EqualValues(t, 0, resp["followingCount"])
}

func TestUnfollowNotFollowing(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(bob(), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/follow/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "UpdateFollowSets", mock.Anything, mock.Anything)
}

func TestFollowStatusTrue(t *testing.T) {
	actor := alice()
	actor.Following = []string{"bob@example.com"}

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, actor)

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(bob(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/follow/status/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp["isFollowing"])
}

func TestFollowStatusMissingTargetNeverErrors(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/follow/status/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp["isFollowing"])
}

func TestFollowersDropsDanglingReferences(t *testing.T) {
	target := bob()
	target.Followers = []string{"alice@example.com", "gone@example.com"}

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(target, nil).Once()
	userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice(), nil).Once()
	userRepo.On("GetByEmail", mock.Anything, "gone@example.com").Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/follow/followers/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.UserSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "alice", resp[0].Username)
	assert.Equal(t, "alice@example.com", resp[0].ID)
}

func TestSuggestionsExcludeSelfAndFollowed(t *testing.T) {
	actor := alice()
	actor.Following = []string{"bob@example.com"}

	carol := models.User{ID: 3, Email: "carol@example.com", Username: "carol"}
	dave := models.User{ID: 4, Email: "dave@example.com", Username: "dave"}

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, actor)

	userRepo.On("ListAll", mock.Anything).Return([]models.User{alice(), bob(), carol, dave}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/follow/suggestions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.UserSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "carol", resp[0].Username)
	assert.Equal(t, "dave", resp[1].Username)
}

func TestSuggestionsDegradeToEmptyOnStoreFailure(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewFollowHandler(userRepo, testEmitter(), testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("ListAll", mock.Anything).Return(([]models.User)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/follow/suggestions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestFollowEmitsAuditEvent(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	publisher := new(mocks.PublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "social.audit", "social-service", "test", nil)
	handler := NewFollowHandler(userRepo, emitter, testLogger())
	router := setupFollowRouter(handler, alice())

	userRepo.On("GetByUsername", mock.Anything, "bob").Return(bob(), nil).Once()
	userRepo.On("UpdateFollowSets", mock.Anything, mock.Anything).Return(nil).Twice()
	publisher.On("Publish", mock.Anything, "social.audit", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/follow", bytes.NewBufferString(`{"username":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	publisher.AssertExpectations(t)
}
