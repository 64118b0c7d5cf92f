package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success sends data as the response body. Successful payloads are not
// wrapped so clients read {tasks, cycles, ...} directly.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends an empty 204 response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// Abort sends an error response and stops the handler chain
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// TooLarge sends a 413 response
func TooLarge(c *gin.Context, message string) {
	Error(c, http.StatusRequestEntityTooLarge, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
