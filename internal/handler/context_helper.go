package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-console/internal/middleware"
	"github.com/noah-isme/lms-admin-console/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextOperatorKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func operatorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
