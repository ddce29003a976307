package response

import (
	"github.com/gin-gonic/gin"

	"ticketry/internal/shared/apperr"
)

// OK writes a success envelope with the given payload.
func OK(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail writes an error envelope.
func Fail(c *gin.Context, code int, message string, errs interface{}) {
	c.JSON(code, Envelope{
		Success: false,
		Message: message,
		Errors:  errs,
	})
}

// Error maps an application error to its HTTP status and writes the
// envelope, exposing the stable kind in the errors field.
func Error(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), Envelope{
		Success: false,
		Message: err.Error(),
		Errors:  gin.H{"kind": apperr.KindOf(err)},
	})
}
