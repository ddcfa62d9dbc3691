package api

import (
	"errors"
	"net/http"

	"github.com/blog-engagement-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var statusByKind = map[models.ErrorKind]int{
	models.KindNotFound:           http.StatusNotFound,
	models.KindInvalidParent:      http.StatusUnprocessableEntity,
	models.KindValidation:         http.StatusBadRequest,
	models.KindForbidden:          http.StatusForbidden,
	models.KindConflict:           http.StatusConflict,
	models.KindStorageUnavailable: http.StatusServiceUnavailable,
}

// respondError writes the JSON error body for err. Storage failures are
// logged and reported without driver detail.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	kind := models.KindOf(err)
	status := statusByKind[kind]

	body := gin.H{"error": err.Error(), "kind": kind}
	var fieldErrs models.ValidationErrors
	if errors.As(err, &fieldErrs) {
		body["error"] = "validation failed"
		body["details"] = fieldErrs
	}
	if kind == models.KindStorageUnavailable {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Storage unavailable")
		body["error"] = "storage unavailable, retry later"
	}

	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": models.KindValidation})
}
