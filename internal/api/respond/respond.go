// Package respond centralizes the error payload shape used by all handlers.
package respond

import (
	"net/http"

	"storyshare-app/internal/domain/apperr"

	"github.com/gin-gonic/gin"
)

// Err writes the error as JSON using the apperr kind's status. Errors without
// a kind become a 500 with the fallback message.
func Err(c *gin.Context, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": fallback, "details": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
