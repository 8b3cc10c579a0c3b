package server

import "github.com/gin-gonic/gin"

// apiError is the JSON error envelope for non-stream responses. Errors
// inside an open SSE stream are sent as error frames instead.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}
