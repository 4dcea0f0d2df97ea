// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Message string                   `json:"message"`
	Code    string                   `json:"code,omitempty"`
	Detail  *apperror.ConflictDetail `json:"detail,omitempty"`
}

// respondError maps a service error to its HTTP status and JSON body.
// Internal causes are logged and never leaked to the client.
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)

	if appErr.Kind == apperror.KindInternal {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).WithError(appErr.Err).Error("request failed")
	}

	c.JSON(apperror.HTTPStatus(appErr), errorBody{
		Message: appErr.Message,
		Code:    appErr.Code,
		Detail:  appErr.Detail,
	})
}

// respondOK wraps a payload in the standard success envelope
func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}
