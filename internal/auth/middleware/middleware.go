package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type AuthService struct {
	hmac []byte
	ttl  time.Duration

	adminUser     string
	adminPassHash string // bcrypt
	devLogin      bool   // username==password logins for teacher/student
}

type Options struct {
	AdminUser     string
	AdminPassHash string
	DevLogin      bool
	TokenTTL      time.Duration
}

func NewAuthService(secret string, opts Options) *AuthService {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthService{
		hmac:          []byte(secret),
		ttl:           ttl,
		adminUser:     opts.AdminUser,
		adminPassHash: opts.AdminPassHash,
		devLogin:      opts.DevLogin,
	}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "student", "teacher" or "admin"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mindengage-quiz",
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Sub == "" || c.Role == "" {
		return nil, errors.New("invalid claims")
	}
	return c, nil
}

// Authenticate checks credentials and returns the role to issue.
func (a *AuthService) Authenticate(username, password, role string) (string, bool) {
	if a.adminUser != "" && username == a.adminUser && a.adminPassHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(a.adminPassHash), []byte(password)) == nil {
			return "admin", true
		}
		return "", false
	}
	if a.devLogin && username == password && (role == "teacher" || role == "student") {
		return role, true
	}
	return "", false
}

var validate = validator.New()

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=teacher student"`
}

// POST /auth/login  { "username": "...", "password": "...", "role": "teacher|student" }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role, ok := a.Authenticate(req.Username, req.Password, req.Role)
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// JWTMiddleware verifies the bearer token and puts subject and role into the
// request context for rbac.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := rbac.WithSubject(rbac.WithRole(r.Context(), c.Role), c.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
