package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/clearcity/api/internal/auth"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/repository"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users  *repository.UserRepository
	tokens *auth.TokenIssuer
	hasher *auth.Hasher
}

func NewAuthHandler(users *repository.UserRepository, tokens *auth.TokenIssuer, hasher *auth.Hasher) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

type RegisterRequest struct {
	Name      string   `json:"name" binding:"required"`
	Email     string   `json:"email" binding:"required"`
	Password  string   `json:"password" binding:"required"`
	Location  *string  `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates a user account and signs them in
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isMissingField(err) {
			respondError(c, http.StatusBadRequest, "All fields are required")
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		log.Printf("Registration error: %v", err)
		respondError(c, http.StatusInternalServerError, "Server error during registration")
		return
	}

	user := &model.User{
		Name:      req.Name,
		Email:     req.Email,
		Password:  hash,
		Role:      model.RoleUser,
		Level:     1,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			respondError(c, http.StatusBadRequest, "User already exists")
			return
		}
		log.Printf("Registration error: %v", err)
		respondError(c, http.StatusInternalServerError, "Server error during registration")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Printf("Registration error: %v", err)
		respondError(c, http.StatusInternalServerError, "Server error during registration")
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{Token: token, User: user})
}

// Login exchanges credentials for a token. Unknown emails and wrong
// passwords get the same answer.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isMissingField(err) {
			respondError(c, http.StatusBadRequest, "Email and password are required")
			return
		}
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("Login error: %v", err)
		respondError(c, http.StatusInternalServerError, "Server error during login")
		return
	}

	if !h.hasher.Compare(user.Password, req.Password) {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Printf("Login error: %v", err)
		respondError(c, http.StatusInternalServerError, "Server error during login")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, User: user})
}
