package bot

import (
	"errors"
	"sort"
	"strings"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/forms"
	"gitlab.com/yelinaung/finova-bot/internal/query"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

const (
	msgSessionExpired  = "⚠️ Tu sesión expiró, inicia sesión nuevamente."
	msgNetwork         = "⚠️ No se pudo conectar con el servidor."
	msgLoginRequired   = "🔒 Inicia sesión con <code>/login &lt;email&gt; &lt;clave&gt;</code> para continuar."
	msgInvalidFormPref = "❌ Revisa los datos:"
)

// userMessage turns an error into the HTML reply shown in the chat.
func userMessage(err error) string {
	var vErr *forms.ValidationError
	var apiErr *api.Error

	switch {
	case errors.As(err, &vErr):
		names := make([]string, 0, len(vErr.Fields))
		for name := range vErr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		sb.WriteString(msgInvalidFormPref)
		for _, name := range names {
			sb.WriteString("\n• ")
			sb.WriteString(escapeHTML(vErr.Fields[name]))
		}
		return sb.String()
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, query.ErrDisabled):
		return msgLoginRequired
	case api.IsAuthError(err):
		return msgSessionExpired
	case api.IsNetworkError(err):
		return msgNetwork
	case errors.As(err, &apiErr):
		return "❌ " + escapeHTML(apiErr.Message)
	default:
		return "❌ " + api.DefaultErrorMessage
	}
}
