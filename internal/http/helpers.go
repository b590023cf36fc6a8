package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/database/admins"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/services"
	"github.com/sboapp/admin/internal/settingsstore"
	"github.com/sboapp/admin/internal/storage"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500 response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logger.WithFields(logrus.Fields{"context": context, "path": c.Request.URL.Path, "error": err}).Error("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"})
}

// errorStatus maps domain errors onto HTTP status codes and error codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, settingsstore.ErrUnknownGroup),
		errors.Is(err, admins.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, admins.ErrLastOwner):
		return http.StatusConflict, "conflict"
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_type"
	case errors.Is(err, storage.ErrInvalidPDF), errors.Is(err, storage.ErrEmptyFile):
		return http.StatusBadRequest, "invalid_file"
	}
	return http.StatusInternalServerError, "internal"
}

// respondError sends the status errorStatus picks. Validation failures carry
// the per-field messages in details.
func respondError(c *gin.Context, err error, context string) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}
	resp := ErrorResponse{Error: err.Error(), Code: code}
	var verrs entities.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "validation failed"
		resp.Details = verrs
	}
	c.JSON(status, resp)
}

// auditWarningHeader marks a response whose write was applied but whose audit
// entry was neither written nor queued.
const auditWarningHeader = "X-Audit-Warning"

// auditLost absorbs services.ErrAuditNotRecorded. The data write behind it
// succeeded, so the handler answers as usual; the loss is logged and flagged
// on the response. Any other error is returned unchanged.
func auditLost(c *gin.Context, err error, context string) error {
	if !errors.Is(err, services.ErrAuditNotRecorded) {
		return err
	}
	logger.WithFields(logrus.Fields{"context": context, "path": c.Request.URL.Path, "error": err}).Error("Write applied without an audit entry")
	c.Header(auditWarningHeader, "audit entry not recorded")
	return nil
}

// --- Success Response Helpers ---

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// pageParam reads ?page=, defaulting to 1. Out-of-range pages are clamped
// by listing.Paginate.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

// limitParam reads ?limit= within [1, max], defaulting to def.
func limitParam(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		return def
	}
	return min(limit, max)
}

// bindJSONStrict decodes the request body and rejects unknown fields.
func bindJSONStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var errs entities.ValidationErrors
		errs.Add("body", "invalid JSON: "+err.Error())
		return errs
	}
	return nil
}

// decodeFormPatch turns the non-empty fields of an HTML form into dst, a JSON
// patch type, so edit forms share the API's partial-update semantics. Keys
// in numeric are decoded as numbers.
func decodeFormPatch(form url.Values, fields []string, numeric map[string]bool, dst any) error {
	var errs entities.ValidationErrors
	out := make(map[string]any)
	for _, field := range fields {
		v := strings.TrimSpace(form.Get(field))
		if v == "" {
			continue
		}
		if !numeric[field] {
			out[field] = v
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs.Add(field, "must be a number")
			continue
		}
		out[field] = n
	}
	if err := errs.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		errs.Add("form", err.Error())
		return errs
	}
	return nil
}

// --- HTML/JSON negotiation ---

// respondView renders an HTML template for browsers or returns data as JSON
// when the client asked for it.
func respondView(c *gin.Context, status int, template string, data gin.H, payload any) {
	if auth.WantsJSON(c.Request) {
		c.JSON(status, payload)
		return
	}
	c.HTML(status, template, data)
}
