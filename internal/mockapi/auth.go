package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/me/coursebook/pkg/model"
)

// Claims is the JWT payload issued on login and registration.
type Claims struct {
	Role model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u model.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
}

func (s *Server) parseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.config.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AddUser creates an account directly, bypassing the register endpoint.
func (s *Server) AddUser(u model.User, password string) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	if !s.data.addUser(u, hash) {
		return model.User{}, errEmailTaken
	}
	return u, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeBody(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acc, ok := s.data.accountByEmail(creds.Email)
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.respondAuth(w, http.StatusOK, acc.user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeBody(r, &reg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(reg.FirstName) == "" || strings.TrimSpace(reg.LastName) == "" ||
		strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		respondError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	u, err := s.AddUser(model.User{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     strings.TrimSpace(reg.Email),
		Role:      model.RoleUser,
	}, reg.Password)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("user registered", "user_id", u.ID)
	s.respondAuth(w, http.StatusCreated, u)
}

func (s *Server) respondAuth(w http.ResponseWriter, status int, u model.User) {
	token, err := s.issueToken(u)
	if err != nil {
		s.logger.Error("sign token", "error", err)
		respondError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	data := model.AuthResult{Token: token, User: u}
	if status == http.StatusCreated {
		respondCreated(w, data)
		return
	}
	respondOK(w, data)
}
