package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

type signupRequest struct {
	UserID          string `json:"user_id" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Status          string `json:"status" binding:"required"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}
	if req.Status != repository.StatusEmployee && req.Status != repository.StatusExternal {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status selected"})
		return
	}

	user, err := s.users.Create(c.Request.Context(), req.UserID, req.Password, req.Status)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"error": "User ID already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("auth.signup", "user_id", user.UserID, "status", user.Status)
	c.JSON(http.StatusCreated, gin.H{"user_id": user.UserID, "status": user.Status})
}

type loginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and password are required"})
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), req.UserID, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			s.logger.Warn("auth.login.rejected", "user_id", req.UserID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("auth.login", "user_id", user.UserID, "status", user.Status)
	c.JSON(http.StatusOK, gin.H{"user_id": user.UserID, "status": user.Status})
}
