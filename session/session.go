// Package session owns identities, user profiles and the sessions issued to
// them. Sessions are kept in memory and mirrored to the local cache so they
// survive a restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/localcache"
	"github.com/safekid-nepal/safekid-api/models"
)

const minPasswordLength = 6

// Route is where a client should go after a session check
type Route string

// Navigation intents returned by Resume
const (
	RouteSignIn Route = "signin"
	RouteHome   Route = "home"
	RouteAdmin  Route = "admin"
)

// Cache is the local persisted state used for sessions
type Cache interface {
	Put(ctx context.Context, ns, key string, v interface{}) error
	Get(ctx context.Context, ns, key string, out interface{}) (bool, error)
	Delete(ctx context.Context, ns, key string) error
	All(ctx context.Context, ns string) (map[string]json.RawMessage, error)
}

// Session is a signed-in user and the bearer token issued for them
type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Store signs users in and out and mutates token balances
type Store struct {
	identities databases.IdentityDatabase
	users      databases.UserDatabase
	cache      Cache
	secret     []byte
	ttl        time.Duration
	log        *zap.SugaredLogger

	// bcryptCost is lowered in tests
	bcryptCost int
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]models.User
}

// NewStore returns a Store. cache may be nil to keep sessions in memory only.
func NewStore(identities databases.IdentityDatabase, users databases.UserDatabase, cache Cache, secret string, ttl time.Duration, log *zap.SugaredLogger) *Store {
	return &Store{
		identities: identities,
		users:      users,
		cache:      cache,
		secret:     []byte(secret),
		ttl:        ttl,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		sessions:   map[string]models.User{},
	}
}

// identifierFilter matches an e-mail address or a phone number
func identifierFilter(identifier string) bson.M {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return bson.M{"email": strings.ToLower(identifier)}
	}
	return bson.M{"phone": identifier}
}

// SignIn checks identifier and password against the identity store, loads or
// creates the profile and issues a session
func (s *Store) SignIn(ctx context.Context, identifier, password string) (*Session, error) {
	identity, err := s.identities.FindOne(ctx, identifierFilter(identifier))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.Auth("invalid credentials", nil)
	}
	if err != nil {
		return nil, apperrors.Auth("identity lookup failed", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Auth("invalid credentials", nil)
	}

	user, err := s.users.FindOne(ctx, bson.M{"_id": identity.ID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		user, err = s.createProfile(ctx, *identity, identifier, models.RoleParent)
	}
	if err != nil {
		return nil, apperrors.Auth("profile lookup failed", err)
	}

	return s.issue(ctx, *user)
}

// SignUp creates the identity and its profile, then signs the user in. Only
// parent and community accounts can be created this way; admins are promoted
// by an operator.
func (s *Store) SignUp(ctx context.Context, name, identifier string, role models.Role, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	identifier = strings.TrimSpace(identifier)
	switch {
	case name == "":
		return nil, apperrors.Validation("name", "name is required")
	case identifier == "":
		return nil, apperrors.Validation("identifier", "email or phone is required")
	case len(password) < minPasswordLength:
		return nil, apperrors.Validation("password", "password must be at least 6 characters")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, apperrors.Validation("role", err.Error())
	}
	if role == models.RoleAdmin {
		return nil, apperrors.Validation("role", "admin accounts cannot be created by sign-up")
	}

	filter := identifierFilter(identifier)
	n, err := s.identities.CountDocuments(ctx, filter)
	if err != nil {
		return nil, apperrors.Auth("identity lookup failed", err)
	}
	if n > 0 {
		return nil, apperrors.Auth("an account with this email or phone already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Auth("failed to hash password", err)
	}

	identity := models.Identity{
		ID:           primitive.NewObjectID(),
		PasswordHash: string(hash),
		CreatedAt:    primitive.NewDateTimeFromTime(s.now()),
	}
	if email, ok := filter["email"].(string); ok {
		identity.Email = email
	} else {
		identity.Phone = identifier
	}
	if err := s.identities.InsertOne(ctx, identity); err != nil {
		return nil, apperrors.Auth("failed to create identity", err)
	}

	user, err := s.createProfile(ctx, identity, name, role)
	if err != nil {
		return nil, apperrors.Auth("failed to create profile", err)
	}
	s.log.Infow("user signed up", "user_id", user.ID.Hex(), "role", user.Role)

	return s.issue(ctx, *user)
}

func (s *Store) createProfile(ctx context.Context, identity models.Identity, name string, role models.Role) (*models.User, error) {
	user := models.User{
		ID:        identity.ID,
		Email:     identity.Email,
		Phone:     identity.Phone,
		Name:      name,
		Role:      role,
		Tokens:    models.InitialTokens(role),
		CreatedAt: primitive.NewDateTimeFromTime(s.now()),
	}
	if err := s.users.InsertOne(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) issue(ctx context.Context, user models.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  user.ID.Hex(),
		"role": string(user.Role),
		"typ":  "access",
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
		"jti":  primitive.NewObjectID().Hex(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Auth("token generation failed", err)
	}

	s.mu.Lock()
	s.sessions[signed] = user
	s.mu.Unlock()
	s.persist(ctx, signed, user)

	return &Session{Token: signed, User: user, ExpiresAt: expires}, nil
}

// SignOut forgets the session for token. The cache entry is removed under the
// same lock Warm restores under, so a concurrent Warm cannot bring it back.
func (s *Store) SignOut(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	s.forget(ctx, token)
}

// forget removes token from the local cache
func (s *Store) forget(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, localcache.NamespaceSessions, token); err != nil {
		s.log.Errorw("failed to remove cached session", "error", err)
	}
}

// Authenticate returns the user for a live session token. The token must be
// correctly signed, unexpired and not signed out.
func (s *Store) Authenticate(token string) (*models.User, error) {
	if _, err := s.parse(token); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.mu.Lock()
			delete(s.sessions, token)
			s.mu.Unlock()
		}
		return nil, apperrors.Auth("invalid token", err)
	}
	user, ok := s.Current(token)
	if !ok {
		return nil, apperrors.Auth("session not found", nil)
	}
	return user, nil
}

func (s *Store) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Current returns the cached user for token
func (s *Store) Current(token string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	return &user, true
}

// Resume restores the session for token and says where the client should go
func (s *Store) Resume(token string) (*models.User, Route) {
	user, err := s.Authenticate(token)
	if err != nil {
		return nil, RouteSignIn
	}
	if user.Role == models.RoleAdmin {
		return user, RouteAdmin
	}
	return user, RouteHome
}

// Warm drops expired sessions from memory, then loads every cached session
// that is still valid. Expired or unreadable cache entries are deleted. An
// entry that was signed out while Warm ran is not restored.
func (s *Store) Warm(ctx context.Context) (int, error) {
	s.pruneExpired(ctx)
	if s.cache == nil {
		return 0, nil
	}
	entries, err := s.cache.All(ctx, localcache.NamespaceSessions)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for token, raw := range entries {
		var user models.User
		if err := json.Unmarshal(raw, &user); err != nil {
			s.log.Errorw("dropping unreadable cached session", "error", err)
			_ = s.cache.Delete(ctx, localcache.NamespaceSessions, token)
			continue
		}
		if _, err := s.parse(token); err != nil {
			_ = s.cache.Delete(ctx, localcache.NamespaceSessions, token)
			continue
		}
		if s.restore(ctx, token, user) {
			loaded++
		}
	}
	return loaded, nil
}

// restore puts a cached session back in memory if its cache entry still exists
func (s *Store) restore(ctx context.Context, token string, user models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current models.User
	ok, err := s.cache.Get(ctx, localcache.NamespaceSessions, token, &current)
	if err != nil || !ok {
		return false
	}
	s.sessions[token] = user
	return true
}

func (s *Store) pruneExpired(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.sessions {
		if _, err := s.parse(token); err != nil {
			delete(s.sessions, token)
			s.forget(ctx, token)
		}
	}
}

// Refresh reloads the profile for userID and updates every session holding it
func (s *Store) Refresh(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.NotFound("user", userID)
	}
	user, err := s.users.FindOne(ctx, bson.M{"_id": oid})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", userID)
	}
	if err != nil {
		return nil, apperrors.Network("users", err)
	}
	s.replace(ctx, *user)
	return user, nil
}

// UpdateTokens sets the balance for userID. The remote write happens first and
// cached sessions only change once it has succeeded.
func (s *Store) UpdateTokens(ctx context.Context, userID string, balance int) (*models.User, error) {
	if balance < 0 {
		return nil, apperrors.Validation("tokens", "token balance must not be negative")
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.NotFound("user", userID)
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"tokens": balance}})
	if err != nil {
		s.log.Errorw("failed to update token balance", "user_id", userID, "error", err)
		return nil, apperrors.Network("users", err)
	}
	if res.MatchedCount == 0 {
		return nil, apperrors.NotFound("user", userID)
	}

	user, ok := s.cachedUser(oid)
	if !ok {
		return s.Refresh(ctx, userID)
	}
	user.Tokens = balance
	s.replace(ctx, user)
	return &user, nil
}

// CreditTokens adds delta to the stored balance for userID
func (s *Store) CreditTokens(ctx context.Context, userID string, delta int) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperrors.NotFound("user", userID)
	}
	current, err := s.users.FindOne(ctx, bson.M{"_id": oid})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", userID)
	}
	if err != nil {
		return nil, apperrors.Network("users", err)
	}
	return s.UpdateTokens(ctx, userID, current.Tokens+delta)
}

func (s *Store) cachedUser(id primitive.ObjectID) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.sessions {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// replace swaps in user for every session that holds the same id
func (s *Store) replace(ctx context.Context, user models.User) {
	var tokens []string
	s.mu.Lock()
	for token, u := range s.sessions {
		if u.ID == user.ID {
			s.sessions[token] = user
			tokens = append(tokens, token)
		}
	}
	s.mu.Unlock()
	for _, token := range tokens {
		s.persist(ctx, token, user)
	}
}

func (s *Store) persist(ctx context.Context, token string, user models.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, localcache.NamespaceSessions, token, user); err != nil {
		s.log.Errorw("failed to cache session", "user_id", user.ID.Hex(), "error", err)
	}
}
