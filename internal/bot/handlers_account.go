package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/forms"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

const helpText = `📚 <b>Comandos disponibles</b>

<b>Cuenta:</b>
• <code>/login &lt;email&gt; &lt;clave&gt;</code> - Iniciar sesión
• <code>/registro &lt;email&gt; &lt;clave&gt; &lt;confirmación&gt; [nombre=.. apellido=.. telefono=.. captcha=..]</code> - Crear cuenta
• <code>/google &lt;id_token&gt;</code> - Entrar con Google
• <code>/salir</code> - Cerrar sesión
• <code>/perfil</code> - Ver tu perfil
• <code>/editarperfil nombre=.. apellido=.. telefono=.. [quitarfoto=si]</code> - Editar perfil
• Foto con descripción <code>/foto</code> - Cambiar foto de perfil
• <code>/clave &lt;actual&gt; &lt;nueva&gt; &lt;confirmación&gt;</code> - Cambiar contraseña
• <code>/recuperar &lt;email&gt;</code> - Recuperar contraseña
• <code>/restablecer &lt;uid&gt; &lt;token&gt; &lt;clave&gt; &lt;confirmación&gt;</code> - Nueva contraseña

<b>Presupuesto:</b>
• <code>/partidas</code> - Ver partidas del mes
• <code>/partida nueva "Nombre" fijo|variable &lt;monto&gt;</code>
• <code>/partida editar &lt;id&gt; "Nombre" fijo|variable &lt;monto&gt;</code>
• <code>/partida borrar &lt;id&gt;</code>

<b>Gastos e ingresos:</b>
• <code>/gastos</code> - Ver gastos
• <code>/gasto nuevo &lt;monto&gt; &lt;fecha|hoy&gt; fijo|variable [partida=ID] [categoria=..] [nota=..]</code>
• <code>/gasto editar &lt;id&gt; ...</code> · <code>/gasto borrar &lt;id&gt;</code>
• <code>/ingresos</code> - Ver ingresos
• <code>/ingreso nuevo &lt;monto&gt; &lt;fecha|hoy&gt; fijo|eventual [nota=..]</code>
• <code>/ingreso editar &lt;id&gt; ...</code> · <code>/ingreso borrar &lt;id&gt;</code>

<b>Reportes:</b>
• <code>/resumen</code> - Resumen financiero
• <code>/grafico</code> - Gráfico de gastos por categoría
• <code>/exportar</code> - Exportar gastos en CSV`

func (b *Bot) handleStart(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, _ string) {
	firstName := ""
	if msg.From != nil {
		firstName = msg.From.FirstName
	}

	status := msgLoginRequired
	if snap := c.store.Snapshot(); snap.Authenticated() && snap.User != nil {
		status = fmt.Sprintf("Sesión activa como <b>%s</b>. Usa /resumen para ver tu panel.", escapeHTML(displayName(*snap.User)))
	}

	text := fmt.Sprintf(`👋 ¡Hola%s!

Soy tu asistente de Finova Finanzas: controla tus partidas, gastos e ingresos desde el chat.

%s

Usa /ayuda para ver todos los comandos.`, formatGreeting(firstName), status)

	b.reply(ctx, tg, c.id, text)
}

func (b *Bot) handleHelp(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	b.reply(ctx, tg, c.id, helpText)
}

// authFailureMessage shows the backend's reason for a rejected login or
// registration, which is not a session expiry.
func authFailureMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return "❌ " + escapeHTML(apiErr.Message)
	}
	return userMessage(err)
}

func (b *Bot) greet(ctx context.Context, tg TelegramAPI, c *chat) {
	if user := c.store.Snapshot().User; user != nil {
		b.reply(ctx, tg, c.id, fmt.Sprintf("👋 Hola, <b>%s</b>", escapeHTML(displayName(*user))))
	}
}

func (b *Bot) handleLogin(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string) {
	a := parseArgs(args)
	if len(a.positional) != 2 {
		b.reply(ctx, tg, c.id, "Uso: <code>/login &lt;email&gt; &lt;clave&gt;</code>")
		return
	}
	b.forgetMessage(ctx, tg, msg)

	form := forms.LoginForm{Email: a.arg(0), Password: a.arg(1)}
	if err := forms.Validate(form); err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	if err := c.store.Login(ctx, form.Credentials()); err != nil {
		logger.Log.Info().Str("email", logger.SanitizeEmail(form.Email)).Int("status", api.Status(err)).Msg("Login rejected")
		b.reply(ctx, tg, c.id, authFailureMessage(err))
		return
	}
	b.greet(ctx, tg, c)
}

func (b *Bot) handleRegister(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string) {
	a := parseArgs(args, "nombre", "apellido", "telefono", "captcha")
	if len(a.positional) != 3 {
		b.reply(ctx, tg, c.id, "Uso: <code>/registro &lt;email&gt; &lt;clave&gt; &lt;confirmación&gt; [nombre=.. apellido=.. telefono=.. captcha=..]</code>")
		return
	}
	b.forgetMessage(ctx, tg, msg)

	captchaRequired := b.cfg.RecaptchaRequired
	if authCfg, err := c.svc.AuthConfig(ctx); err == nil {
		captchaRequired = captchaRequired || authCfg.RecaptchaRequired
	} else {
		logger.Log.Warn().Err(err).Msg("Failed to fetch auth config, using local captcha setting")
	}

	firstName, _ := a.option("nombre")
	lastName, _ := a.option("apellido")
	phone, _ := a.option("telefono")
	captcha, _ := a.option("captcha")
	form := forms.RegisterForm{
		FirstName:       firstName,
		LastName:        lastName,
		Phone:           phone,
		Email:           a.arg(0),
		Password:        a.arg(1),
		PasswordConfirm: a.arg(2),
		RecaptchaToken:  captcha,
		CaptchaRequired: captchaRequired,
	}
	if err := forms.Validate(form); err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	if err := c.store.Register(ctx, form.Registration()); err != nil {
		b.reply(ctx, tg, c.id, authFailureMessage(err))
		return
	}
	b.reply(ctx, tg, c.id, "🎉 Cuenta creada.")
	b.greet(ctx, tg, c)
}

func (b *Bot) handleGoogle(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string) {
	idToken := strings.TrimSpace(args)
	if idToken == "" || strings.ContainsAny(idToken, " \n") {
		b.reply(ctx, tg, c.id, "Uso: <code>/google &lt;id_token&gt;</code>")
		return
	}
	b.forgetMessage(ctx, tg, msg)

	if err := c.store.LoginWithGoogle(ctx, idToken); err != nil {
		b.reply(ctx, tg, c.id, authFailureMessage(err))
		return
	}
	b.greet(ctx, tg, c)
}

func (b *Bot) handleLogout(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	if !c.store.Snapshot().Authenticated() {
		b.reply(ctx, tg, c.id, "No hay una sesión activa.")
		return
	}
	if err := c.store.Logout(ctx, session.LogoutOptions{Redirect: true}); err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(c.id)).Msg("Failed to clear stored session")
		b.replyError(ctx, tg, c.id, err)
	}
}

func (b *Bot) handleProfile(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	profile, err := c.svc.Profile(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	b.reply(ctx, tg, c.id, formatProfile(profile))
}

func (b *Bot) handleEditProfile(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, args string) {
	a := parseArgs(args, "nombre", "apellido", "telefono", "quitarfoto")
	form := forms.ProfileForm{
		FirstName: a.optionPtr("nombre"),
		LastName:  a.optionPtr("apellido"),
		Phone:     a.optionPtr("telefono"),
	}
	if v, ok := a.option("quitarfoto"); ok {
		form.RemovePhoto = isYes(v)
	}
	if form.FirstName == nil && form.LastName == nil && form.Phone == nil && !form.RemovePhoto {
		b.reply(ctx, tg, c.id, "Uso: <code>/editarperfil nombre=.. apellido=.. telefono=.. [quitarfoto=si]</code>")
		return
	}
	b.updateProfile(ctx, tg, c, form)
}

func (b *Bot) handlePhoto(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, _ string) {
	if len(msg.Photo) == 0 {
		b.reply(ctx, tg, c.id, "📷 Envía una foto con la descripción <code>/foto</code> para cambiar tu foto de perfil.")
		return
	}
	if !c.store.Snapshot().Authenticated() {
		b.reply(ctx, tg, c.id, msgLoginRequired)
		return
	}

	largest := msg.Photo[len(msg.Photo)-1]
	data, err := b.downloadFile(ctx, tg, largest.FileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(c.id)).Msg("Failed to download photo")
		b.reply(ctx, tg, c.id, "❌ No se pudo descargar la foto. Intenta nuevamente.")
		return
	}
	b.updateProfile(ctx, tg, c, forms.ProfileForm{Photo: &api.Photo{Filename: "avatar.jpg", Data: data}})
}

func (b *Bot) updateProfile(ctx context.Context, tg TelegramAPI, c *chat, form forms.ProfileForm) {
	profile, err := c.svc.UpdateProfile(ctx, form)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	b.reply(ctx, tg, c.id, "✅ Perfil actualizado.\n\n"+formatProfile(*profile))
}

func (b *Bot) handleChangePassword(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string) {
	a := parseArgs(args)
	if len(a.positional) != 3 {
		b.reply(ctx, tg, c.id, "Uso: <code>/clave &lt;actual&gt; &lt;nueva&gt; &lt;confirmación&gt;</code>")
		return
	}
	b.forgetMessage(ctx, tg, msg)

	detail, err := c.svc.ChangePassword(ctx, forms.PasswordChangeForm{
		Current: a.arg(0),
		New:     a.arg(1),
		Confirm: a.arg(2),
	})
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	if detail == "" {
		detail = "Contraseña actualizada."
	}
	b.reply(ctx, tg, c.id, "✅ "+escapeHTML(detail))
}

func (b *Bot) handleRequestReset(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, args string) {
	form := forms.PasswordResetRequestForm{Email: strings.TrimSpace(args)}
	if err := forms.Validate(form); err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	detail, err := c.store.RequestPasswordReset(ctx, form.Email)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	if detail == "" {
		detail = "Si el correo está registrado, recibirás instrucciones para restablecer tu contraseña."
	}
	b.reply(ctx, tg, c.id, "📧 "+escapeHTML(detail))
}

func (b *Bot) handleConfirmReset(ctx context.Context, tg TelegramAPI, c *chat, msg *tgmodels.Message, args string) {
	a := parseArgs(args)
	if len(a.positional) != 4 {
		b.reply(ctx, tg, c.id, "Uso: <code>/restablecer &lt;uid&gt; &lt;token&gt; &lt;clave&gt; &lt;confirmación&gt;</code>")
		return
	}
	b.forgetMessage(ctx, tg, msg)

	form := forms.PasswordResetForm{UID: a.arg(0), Token: a.arg(1), Password: a.arg(2), Confirm: a.arg(3)}
	if err := forms.Validate(form); err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	detail, err := c.store.ConfirmPasswordReset(ctx, form.Confirmation())
	if err != nil {
		b.reply(ctx, tg, c.id, authFailureMessage(err))
		return
	}
	if detail == "" {
		detail = "Contraseña restablecida. Ya puedes iniciar sesión."
	}
	b.reply(ctx, tg, c.id, "✅ "+escapeHTML(detail))
}
