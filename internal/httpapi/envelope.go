// Package httpapi implements C10: the gin-based HTTP surface over the
// job manager, path index, downloader and restore worker factory.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform JSON response shape every endpoint returns:
// {success, result, message}. A request body that fails to parse
// answers 400 with a plain text body rather than this envelope, keeping
// malformed requests distinct from application-level failures.
type envelope struct {
	Success bool `json:"success"`
	Result  any  `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(c *gin.Context, result any) {
	c.JSON(http.StatusOK, envelope{Success: true, Result: result})
}

func respondError(c *gin.Context, message string) {
	c.JSON(http.StatusOK, envelope{Success: false, Message: message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.String(http.StatusBadRequest, err.Error())
}
