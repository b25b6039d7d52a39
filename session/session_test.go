package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/databases/mocks"
	"github.com/safekid-nepal/safekid-api/localcache"
	"github.com/safekid-nepal/safekid-api/logging"
	"github.com/safekid-nepal/safekid-api/models"
)

type fixture struct {
	identities *mocks.IdentityDatabase
	users      *mocks.UserDatabase
	cache      *localcache.Cache
	store      *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache, err := localcache.New(context.Background(), "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	f := &fixture{
		identities: &mocks.IdentityDatabase{},
		users:      &mocks.UserDatabase{},
		cache:      cache,
	}
	f.store = NewStore(f.identities, f.users, cache, "test-secret", time.Hour, logging.Nop())
	f.store.bcryptCost = bcrypt.MinCost
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	id := primitive.NewObjectID()
	identity := &models.Identity{ID: id, Email: "sita@example.com", PasswordHash: hash(t, "secret123")}
	profile := &models.User{ID: id, Email: "sita@example.com", Name: "Sita", Role: models.RoleParent, Tokens: 120}

	f.identities.On("FindOne", mock.Anything, bson.M{"email": "sita@example.com"}).Return(identity, nil)
	f.users.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(profile, nil)

	sess, err := f.store.SignIn(context.Background(), "Sita@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, 120, sess.User.Tokens)

	// the session is cached locally
	var cached models.User
	ok, err := f.cache.Get(context.Background(), localcache.NamespaceSessions, sess.Token, &cached)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, cached.ID)

	user, err := f.store.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "Sita", user.Name)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture(t)
	identity := &models.Identity{ID: primitive.NewObjectID(), Phone: "9841111111", PasswordHash: hash(t, "secret123")}
	f.identities.On("FindOne", mock.Anything, bson.M{"phone": "9841111111"}).Return(identity, nil)

	sess, err := f.store.SignIn(context.Background(), "9841111111", "nope")
	assert.Nil(t, sess)
	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestSignInUnknownIdentity(t *testing.T) {
	f := newFixture(t)
	f.identities.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := f.store.SignIn(context.Background(), "nobody@example.com", "secret123")
	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestSignInCreatesMissingProfile(t *testing.T) {
	f := newFixture(t)
	id := primitive.NewObjectID()
	identity := &models.Identity{ID: id, Email: "ram@example.com", PasswordHash: hash(t, "secret123")}

	f.identities.On("FindOne", mock.Anything, mock.Anything).Return(identity, nil)
	f.users.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(nil, mongo.ErrNoDocuments)
	f.users.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Return(nil)

	sess, err := f.store.SignIn(context.Background(), "ram@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, sess.User.Role)
	assert.Equal(t, 100, sess.User.Tokens)
}

func TestSignUpSeedsTokensByRole(t *testing.T) {
	tests := []struct {
		role models.Role
		want int
	}{
		{models.RoleCommunity, 50},
		{models.RoleParent, 100},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newFixture(t)
			var inserted models.User
			f.identities.On("CountDocuments", mock.Anything, bson.M{"email": "new@example.com"}).Return(int64(0), nil)
			f.identities.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Identity")).Return(nil)
			f.users.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Return(nil).Run(func(args mock.Arguments) {
				inserted = args.Get(1).(models.User)
			})

			sess, err := f.store.SignUp(context.Background(), "New User", "new@example.com", tt.role, "secret123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess.User.Tokens)
			assert.Equal(t, tt.want, inserted.Tokens)
			assert.Equal(t, tt.role, inserted.Role)
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var verr *apperrors.ValidationError
	_, err := f.store.SignUp(ctx, "", "a@example.com", models.RoleParent, "secret123")
	assert.ErrorAs(t, err, &verr)
	_, err = f.store.SignUp(ctx, "A", "", models.RoleParent, "secret123")
	assert.ErrorAs(t, err, &verr)
	_, err = f.store.SignUp(ctx, "A", "a@example.com", models.RoleParent, "123")
	assert.ErrorAs(t, err, &verr)
	_, err = f.store.SignUp(ctx, "A", "a@example.com", "volunteer", "secret123")
	assert.ErrorAs(t, err, &verr)
}

func TestSignUpRefusesAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.SignUp(context.Background(), "Mallory", "m@example.com", models.RoleAdmin, "secret123")

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
	f.identities.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
	f.identities.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestSignUpDuplicate(t *testing.T) {
	f := newFixture(t)
	f.identities.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(1), nil)

	_, err := f.store.SignUp(context.Background(), "A", "9841111111", models.RoleCommunity, "secret123")
	var authErr *apperrors.AuthError
	assert.ErrorAs(t, err, &authErr)
	f.identities.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func signedIn(t *testing.T, f *fixture, user models.User) *Session {
	t.Helper()
	sess, err := f.store.issue(context.Background(), user)
	require.NoError(t, err)
	return sess
}

func TestSignOut(t *testing.T) {
	f := newFixture(t)
	sess := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})

	f.store.SignOut(context.Background(), sess.Token)

	_, err := f.store.Authenticate(sess.Token)
	assert.Error(t, err)
	var cached models.User
	ok, err := f.cache.Get(context.Background(), localcache.NamespaceSessions, sess.Token, &cached)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateTokens(t *testing.T) {
	f := newFixture(t)
	user := models.User{ID: primitive.NewObjectID(), Role: models.RoleParent, Tokens: 120}
	sess := signedIn(t, f, user)

	f.users.On("UpdateOne", mock.Anything, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"tokens": 20}}).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	updated, err := f.store.UpdateTokens(context.Background(), user.ID.Hex(), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Tokens)

	current, ok := f.store.Current(sess.Token)
	require.True(t, ok)
	assert.Equal(t, 20, current.Tokens)

	var cached models.User
	_, err = f.cache.Get(context.Background(), localcache.NamespaceSessions, sess.Token, &cached)
	require.NoError(t, err)
	assert.Equal(t, 20, cached.Tokens)
}

func TestUpdateTokensRemoteFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	user := models.User{ID: primitive.NewObjectID(), Role: models.RoleCommunity, Tokens: 50}
	sess := signedIn(t, f, user)

	f.users.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := f.store.UpdateTokens(context.Background(), user.ID.Hex(), 60)
	var netErr *apperrors.NetworkError
	assert.ErrorAs(t, err, &netErr)

	current, ok := f.store.Current(sess.Token)
	require.True(t, ok)
	assert.Equal(t, 50, current.Tokens)
}

func TestUpdateTokensRejectsNegative(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.UpdateTokens(context.Background(), primitive.NewObjectID().Hex(), -1)
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
	f.users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreditTokens(t *testing.T) {
	f := newFixture(t)
	user := models.User{ID: primitive.NewObjectID(), Role: models.RoleCommunity, Tokens: 50}
	signedIn(t, f, user)

	f.users.On("FindOne", mock.Anything, bson.M{"_id": user.ID}).Return(&user, nil)
	f.users.On("UpdateOne", mock.Anything, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"tokens": 60}}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	updated, err := f.store.CreditTokens(context.Background(), user.ID.Hex(), models.SightingReward)
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Tokens)
}

func TestResume(t *testing.T) {
	f := newFixture(t)

	_, route := f.store.Resume("not-a-token")
	assert.Equal(t, RouteSignIn, route)

	parent := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})
	user, route := f.store.Resume(parent.Token)
	assert.Equal(t, RouteHome, route)
	assert.Equal(t, models.RoleParent, user.Role)

	admin := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	_, route = f.store.Resume(admin.Token)
	assert.Equal(t, RouteAdmin, route)
}

func TestWarmRestoresCachedSessions(t *testing.T) {
	f := newFixture(t)
	sess := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Name: "Sita", Role: models.RoleParent})

	// a new store over the same cache, as after a restart
	restarted := NewStore(f.identities, f.users, f.cache, "test-secret", time.Hour, logging.Nop())
	_, route := restarted.Resume(sess.Token)
	assert.Equal(t, RouteSignIn, route)

	n, err := restarted.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	user, route := restarted.Resume(sess.Token)
	assert.Equal(t, RouteHome, route)
	assert.Equal(t, "Sita", user.Name)
}

func TestWarmDropsExpiredSessions(t *testing.T) {
	f := newFixture(t)
	f.store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	sess := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})

	restarted := NewStore(f.identities, f.users, f.cache, "test-secret", time.Hour, logging.Nop())
	n, err := restarted.Warm(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	var cached models.User
	ok, err := f.cache.Get(context.Background(), localcache.NamespaceSessions, sess.Token, &cached)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWarmPrunesExpiredSessionsFromMemory(t *testing.T) {
	f := newFixture(t)
	f.store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})
	f.store.now = time.Now
	live := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleCommunity})

	n, err := f.store.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := f.store.Current(expired.Token)
	assert.False(t, ok)
	_, ok = f.store.Current(live.Token)
	assert.True(t, ok)
	assert.Len(t, f.store.sessions, 1)
}

func TestAuthenticateForgetsExpiredSession(t *testing.T) {
	f := newFixture(t)
	f.store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	sess := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})
	f.store.now = time.Now

	_, err := f.store.Authenticate(sess.Token)
	assert.Error(t, err)
	_, ok := f.store.Current(sess.Token)
	assert.False(t, ok)
}

// staleCache answers All with entries captured earlier
type staleCache struct {
	Cache
	entries map[string]json.RawMessage
}

func (c staleCache) All(context.Context, string) (map[string]json.RawMessage, error) {
	return c.entries, nil
}

func TestWarmDoesNotRestoreSignedOutSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := signedIn(t, f, models.User{ID: primitive.NewObjectID(), Role: models.RoleParent})

	entries, err := f.cache.All(ctx, localcache.NamespaceSessions)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f.store.SignOut(ctx, sess.Token)
	f.store.cache = staleCache{Cache: f.cache, entries: entries}

	n, err := f.store.Warm(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.store.Authenticate(sess.Token)
	assert.Error(t, err)
}
