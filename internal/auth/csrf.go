package auth

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const (
	csrfContextKey = "csrf_token"

	// CSRFTokenHeader carries the token on fetch requests from admin pages.
	CSRFTokenHeader = "X-CSRF-Token"
)

// CSRFMiddleware protects cookie-authenticated state changes. Requests that
// authenticate with a valid bearer token are exempt since browsers never
// attach one automatically.
func CSRFMiddleware(secret []byte, secure bool, service *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	return func(c *gin.Context) {
		if hasValidBearer(c, service) {
			c.Next()
			return
		}

		r := c.Request
		if !secure {
			// gorilla/csrf assumes TLS and rejects plaintext origins otherwise.
			r = csrf.PlaintextHTTPRequest(r)
		}

		passed := false
		protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(csrfContextKey, csrf.Token(r))
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, r)

		if !passed {
			c.Abort()
		}
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing","code":"csrf"}`))
		return
	}
	if ref := r.Referer(); ref != "" && isLocalPath(refPath(ref, r.Host)) {
		sep := "?"
		if strings.Contains(ref, "?") {
			sep = "&"
		}
		http.Redirect(w, r, refPath(ref, r.Host)+sep+"error=Session+expired.+Please+try+again.", http.StatusSeeOther)
		return
	}
	http.Error(w, "Session expired. Go back and try again.", http.StatusForbidden)
}

// refPath strips the scheme and host from a same-host referer.
func refPath(ref, host string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(ref, scheme+host); ok {
			if rest == "" {
				return "/"
			}
			return rest
		}
	}
	return ref
}

func hasValidBearer(c *gin.Context, service *Service) bool {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok || service == nil {
		return false
	}
	_, err := service.ValidateToken(token)
	return err == nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// CSRFToken returns the token for the current request, empty outside the
// CSRF middleware.
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

// CSRFField renders the hidden form input gorilla/csrf expects.
func CSRFField(c *gin.Context) template.HTML {
	token := CSRFToken(c)
	if token == "" {
		return ""
	}
	return template.HTML(`<input type="hidden" name="gorilla.csrf.Token" value="` + template.HTMLEscapeString(token) + `">`)
}

// WantsJSON reports whether the response should be JSON rather than HTML.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.Contains(r.Header.Get("Accept"), "application/json")
}
