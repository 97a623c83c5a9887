package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiError is the error envelope every endpoint returns:
// {"error": {"code": "not_found", "message": "task not found"}}
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: msg}})
}

func BadRequest(c *gin.Context, msg string) {
	respondError(c, http.StatusBadRequest, "bad_request", msg)
}

func NotFound(c *gin.Context, msg string) {
	respondError(c, http.StatusNotFound, "not_found", msg)
}

// Conflict reports a request that lost against the record's current state,
// like canceling an already terminal task.
func Conflict(c *gin.Context, msg string) {
	respondError(c, http.StatusConflict, "conflict", msg)
}

func Internal(c *gin.Context, msg string) {
	respondError(c, http.StatusInternalServerError, "internal_error", msg)
}
