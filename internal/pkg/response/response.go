package response

import "github.com/gin-gonic/gin"

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, gin.H{"data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, gin.H{"data": data})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

func ErrorWithHint(c *gin.Context, status int, code, message, hint string) {
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message, Hint: hint}})
}
