package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/onboardhub/backend/internal/services"
)

const maxAuditBody = 2000

// AuditLog records write operations (POST/PUT/PATCH/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		entry := services.AuditEntry{
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetEmail(c), method, c.Request.URL.Path, status),
			UserID:    GetUserID(c),
			ProjectID: projectIDParam(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   bodySnippet,
				"audit":  true,
			},
		}
		if status >= 400 {
			services.LogWarning(entry)
		} else {
			services.LogInfo(entry)
		}
	}
}

func projectIDParam(c *gin.Context) uint {
	raw := c.Param("id")
	if raw == "" || !strings.HasPrefix(c.FullPath(), "/api/projects/:id") {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/projects/:id/invite-codes" + "POST" → module="Invite Codes", action="Create"
// and "/api/invite-codes/join" + "POST" → module="Invite Codes", action="Join"
func parseRouteInfo(fullPath, method string) (module, action string) {
	var static []string
	for _, seg := range strings.Split(strings.TrimPrefix(fullPath, "/api/"), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") && !strings.HasPrefix(seg, "*") {
			static = append(static, seg)
		}
	}
	if len(static) == 0 {
		return "Unknown", method
	}

	rest := static[1:]
	if static[0] == "projects" && len(static) > 1 && static[1] != "preview-course" {
		rest = static[2:]
		static = static[1:]
	}
	module = titleWords(static[0])

	if len(rest) > 0 {
		return module, titleWords(rest[len(rest)-1])
	}
	switch method {
	case "POST":
		action = "Create"
	case "PUT", "PATCH":
		action = "Update"
	case "DELETE":
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

// titleWords turns "invite-codes" into "Invite Codes".
func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAuditMessage(email, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	if email == "" {
		email = "anonymous"
	}
	b.WriteString(email)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed (" + strconv.Itoa(status) + ")")
	}
	return b.String()
}

// maskSensitiveFields replaces sensitive values in a JSON body
func maskSensitiveFields(body string) string {
	for _, key := range []string{"password", "api_key", "secret", "token"} {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue masks every quoted string value of key. Best effort; the body
// is not parsed.
func maskJSONValue(body, key string) string {
	needle := "\"" + key + "\""
	from := 0
	for {
		idx := strings.Index(strings.ToLower(body[from:]), needle)
		if idx == -1 {
			return body
		}
		idx += from + len(needle)

		colon := strings.Index(body[idx:], ":")
		if colon == -1 {
			return body
		}
		valueStart := idx + colon + 1
		for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
			valueStart++
		}
		if valueStart >= len(body) || body[valueStart] != '"' {
			from = idx
			continue
		}
		endQuote := strings.Index(body[valueStart+1:], "\"")
		if endQuote == -1 {
			return body
		}
		body = body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
		from = valueStart + 4
	}
}
