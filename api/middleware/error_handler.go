// api/middleware/error_handler.go
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/promptvault/promptvault-backend/api/models"
	"github.com/promptvault/promptvault-backend/config"
)

// ErrorHandler is the outermost safety net: handlers map their own business
// errors to envelope responses, and anything they merely attach via c.Error
// and leave unwritten is normalized here.
func ErrorHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		customLog.Errorf("[ErrorHandler] Unhandled error: %v | Type: %T", err, err)

		// Binding failures from c.ShouldBindJSON surface as missing fields
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range validationErrs {
				customLog.Warnf("Validation error: field %s failed on %s", fe.Field(), fe.Tag())
			}
			models.RespondError(c, http.StatusBadRequest, models.CodeMissingFields, "Required fields are missing or malformed")
			return
		}

		body := models.Envelope{
			Success: false,
			Error:   &models.ErrorBody{Code: models.CodeInternalError, Message: "An unexpected internal server error occurred"},
		}
		if !cfg.IsProduction() {
			body.Error.Stack = string(debug.Stack())
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	}
}
