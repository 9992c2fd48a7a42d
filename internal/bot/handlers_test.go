package bot

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/finova-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/session"
)

func TestDispatch_UnknownInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.send("hola")
	f.send("/volar")

	require.Equal(t, 2, f.tg.SentMessageCount())
	for _, text := range f.tg.Messages() {
		assert.Contains(t, text, "/ayuda")
	}
	assert.Equal(t, 0, f.bot.chats.Len())
}

func TestHandleStart(t *testing.T) {
	t.Parallel()

	t.Run("logged out", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/start")

		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.Contains(t, msg.Text, "¡Hola, Test!")
		assert.Contains(t, msg.Text, "/login")
	})

	t.Run("logged in", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/start@finova_bot")

		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.Contains(t, msg.Text, "Sesión activa como <b>Ana Soto</b>")
	})
}

func TestHandleHelp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.send("/ayuda")

	msg := f.tg.LastSentMessage()
	require.NotNil(t, msg)
	for _, cmd := range []string{"/login", "/partidas", "/gasto nuevo", "/resumen", "/exportar"} {
		assert.Contains(t, msg.Text, cmd)
	}
}

func TestHandleLogin(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.bot.dispatch(context.Background(), f.tg,
			mocks.NewUpdateBuilder().WithMessage(testChatID, testUserID, "/login ana@example.com secreto123").WithMessageID(55).Build())

		require.Equal(t, 1, f.tg.DeletedMessageCount())
		assert.Equal(t, 55, f.tg.DeletedMessages[0].MessageID)

		msgs := f.tg.Messages()
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0], "Hola, <b>Ana Soto</b>")
		assert.Equal(t, routeMessages[session.RouteDashboard], msgs[1])

		pair, ok, err := f.slots.For(slotOwner(testChatID)).Load(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, models.TokenPair{Access: "tok-1", Refresh: "ref-1"}, pair)
	})

	t.Run("invalid email never reaches the backend", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/login ana secreto123")

		assert.Equal(t, 0, f.backend.count("POST /auth/login/"))
		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.True(t, strings.HasPrefix(msg.Text, msgInvalidFormPref))
	})

	t.Run("rejected credentials show the backend reason", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.backend.fail("POST /auth/login/", http.StatusUnauthorized)

		f.send("/login ana@example.com malaclave")

		assert.Equal(t, []string{"❌ Credenciales inválidas"}, f.tg.Messages())
		assert.Equal(t, 0, f.slots.Len())
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/login ana@example.com")

		assert.Equal(t, 0, f.tg.DeletedMessageCount())
		assert.Contains(t, f.tg.LastSentMessage().Text, "Uso:")
	})
}

func TestHandleRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates the account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send(`/registro ana@example.com secreto123 secreto123 nombre="Ana María" telefono=+56911112222`)

		require.Equal(t, 1, f.backend.count("POST /auth/register/"))
		body := f.backend.decodeBody(t, "POST /auth/register/")
		assert.Equal(t, "Ana María", body["first_name"])
		msgs := f.tg.Messages()
		require.GreaterOrEqual(t, len(msgs), 2)
		assert.Equal(t, "🎉 Cuenta creada.", msgs[0])
	})

	t.Run("captcha required by the backend", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.backend.respond("GET /auth/config/", `{"recaptcha_required":true}`)

		f.send("/registro ana@example.com secreto123 secreto123")

		assert.Equal(t, 0, f.backend.count("POST /auth/register/"))
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, msgInvalidFormPref))
	})

	t.Run("password mismatch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/registro ana@example.com secreto123 secreto124")

		assert.Equal(t, 0, f.backend.count("POST /auth/register/"))
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, msgInvalidFormPref))
	})
}

func TestHandleLogout(t *testing.T) {
	t.Parallel()

	t.Run("clears the session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/salir")

		assert.Equal(t, []string{routeMessages[session.RouteLogin]}, f.tg.Messages())
		assert.Equal(t, 0, f.slots.Len())

		f.tg.Reset()
		f.send("/gastos")
		assert.Equal(t, []string{msgLoginRequired}, f.tg.Messages())
	})

	t.Run("without session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/salir")

		assert.Equal(t, []string{"No hay una sesión activa."}, f.tg.Messages())
	})
}

func TestStoredSession(t *testing.T) {
	t.Parallel()

	t.Run("restored on first message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.slots.For(slotOwner(testChatID)).Save(context.Background(),
			models.TokenPair{Access: "tok-1", Refresh: "ref-1"}))

		f.send("/perfil")

		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.Contains(t, msg.Text, "ana@example.com")
		assert.Equal(t, 1, f.tg.SentMessageCount())
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.slots.For(slotOwner(testChatID)).Save(context.Background(),
			models.TokenPair{Access: "old", Refresh: "old-refresh"}))
		f.backend.fail("GET /auth/me/", http.StatusUnauthorized)

		f.send("/gastos")

		assert.Equal(t, []string{msgSessionExpired, routeMessages[session.RouteLogin]}, f.tg.Messages())
		assert.Equal(t, 0, f.backend.count("GET /gastos/"))
		assert.Equal(t, 0, f.slots.Len())
	})

	t.Run("public command still runs", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.NoError(t, f.slots.For(slotOwner(testChatID)).Save(context.Background(),
			models.TokenPair{Access: "old", Refresh: "old-refresh"}))
		f.backend.fail("GET /auth/me/", http.StatusUnauthorized)

		f.send("/ayuda")

		msgs := f.tg.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, helpText, msgs[2])
	})
}

func TestHandleBudgetItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	f.send("/partidas")

	msg := f.tg.LastSentMessage()
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "<b>Casa</b> #1")
	assert.Contains(t, msg.Text, "90%")
	assert.Contains(t, msg.Text, "🟡")
	assert.Contains(t, msg.Text, "$270.000")
}

func TestHandleBudgetItem(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/partida nueva "Casa grande" Fijo 300.000`)

		body := f.backend.decodeBody(t, "POST /partidas/")
		assert.Equal(t, "Casa grande", body["nombre"])
		assert.Equal(t, "fijo", body["tipo"])
		assert.Contains(t, f.tg.LastSentMessage().Text, "✅ Partida creada: <b>Casa grande</b> #1")
	})

	t.Run("edit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/partida editar #1 "Casa grande" variable 300000`)

		assert.Equal(t, 1, f.backend.count("PUT /partidas/1/"))
		assert.Contains(t, f.tg.LastSentMessage().Text, "Partida actualizada")
	})

	t.Run("delete refreshes expenses", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/gastos")
		f.send("/partida borrar 1")
		f.send("/gastos")

		assert.Equal(t, 1, f.backend.count("DELETE /partidas/1/"))
		assert.Equal(t, 2, f.backend.count("GET /gastos/"))
		assert.Contains(t, f.tg.Messages(), "🗑️ Partida #1 eliminada.")
	})

	t.Run("invalid kind", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/partida nueva Casa mensual 1000`)

		assert.Equal(t, 0, f.backend.count("POST /partidas/"))
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, msgInvalidFormPref))
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		for _, text := range []string{"/partida", "/partida nueva Casa", "/partida editar x Casa fijo 1", "/partida borrar"} {
			f.send(text)
		}
		for _, text := range f.tg.Messages() {
			assert.Equal(t, usageBudgetItem, text)
		}
	})
}

func TestHandleExpense(t *testing.T) {
	t.Parallel()

	t.Run("create with today's date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/gasto nuevo 15.000 hoy variable partida=1 nota="Super del mes"`)

		body := f.backend.decodeBody(t, "POST /gastos/")
		assert.Equal(t, "2024-05-02", body["fecha"])
		assert.InDelta(t, 15000, body["monto"], 0.001)
		assert.InDelta(t, 1, body["partida"], 0.001)
		assert.Equal(t, "Super del mes", body["observacion"])
		assert.Nil(t, body["categoria"])

		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.Contains(t, msg.Text, "✅ Gasto registrado")
		assert.Contains(t, msg.Text, "$15.000")
		assert.Contains(t, msg.Text, "Casa")
	})

	t.Run("create with category", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/gasto nuevo 4500 2024-05-01 variable categoria="Café"`)

		body := f.backend.decodeBody(t, "POST /gastos/")
		assert.Equal(t, "Café", body["categoria"])
		assert.Nil(t, body["partida"])
	})

	t.Run("needs budget item or category", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/gasto nuevo 4500 hoy variable")

		assert.Equal(t, 0, f.backend.count("POST /gastos/"))
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, msgInvalidFormPref))
	})

	t.Run("invalid budget item id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/gasto nuevo 4500 hoy variable partida=casa")

		assert.Equal(t, 0, f.backend.count("POST /gastos/"))
		assert.Contains(t, f.tg.LastSentMessage().Text, "Selecciona una partida válida")
	})

	t.Run("edit and delete", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/gasto editar 3 15000 2024-05-02 fijo categoria=Casa")
		f.send("/gasto borrar #3")

		assert.Equal(t, 1, f.backend.count("PUT /gastos/3/"))
		assert.Equal(t, 1, f.backend.count("DELETE /gastos/3/"))
		assert.Equal(t, "🗑️ Gasto #3 eliminado.", f.tg.LastSentMessage().Text)
	})

	t.Run("expired session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.backend.fail("DELETE /gastos/3/", http.StatusUnauthorized)

		f.send("/gasto borrar 3")

		assert.Equal(t, []string{msgSessionExpired, routeMessages[session.RouteLogin]}, f.tg.Messages())
		assert.Equal(t, 0, f.slots.Len())
	})
}

func TestHandleExpenses(t *testing.T) {
	t.Parallel()

	t.Run("lists and caches", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/gastos")
		f.send("/gastos")

		assert.Equal(t, 1, f.backend.count("GET /gastos/"))
		msg := f.tg.LastSentMessage()
		assert.Contains(t, msg.Text, "💸 <b>Gastos</b> (1)")
		assert.Contains(t, msg.Text, "Supermercado")
		assert.Contains(t, msg.Text, "Total: <b>$15.000</b>")
	})

	t.Run("needs a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/gastos")

		assert.Equal(t, []string{msgLoginRequired}, f.tg.Messages())
		assert.Equal(t, 0, f.backend.count("GET /gastos/"))
	})
}

func TestHandleIncome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.login(t)

	f.send("/ingresos")
	f.send("/ingreso nuevo 900.000 hoy fijo nota=Sueldo")
	f.send("/ingresos")
	f.send("/ingreso borrar 4")
	f.send("/ingreso nuevo 1000 hoy mensual")

	body := f.backend.decodeBody(t, "POST /ingresos/")
	assert.Equal(t, "Sueldo", body["observacion"])
	assert.Equal(t, 1, f.backend.count("POST /ingresos/"))
	assert.Equal(t, 2, f.backend.count("GET /ingresos/"))
	assert.Equal(t, 1, f.backend.count("DELETE /ingresos/4/"))

	msgs := f.tg.Messages()
	require.Len(t, msgs, 5)
	assert.Contains(t, msgs[0], "💰 <b>Ingresos</b> (1)")
	assert.Contains(t, msgs[1], "✅ Ingreso registrado")
	assert.Equal(t, "🗑️ Ingreso #4 eliminado.", msgs[3])
	assert.True(t, strings.HasPrefix(msgs[4], msgInvalidFormPref))
}

func TestHandleSummary(t *testing.T) {
	t.Parallel()

	t.Run("renders totals and shares", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/resumen")

		msg := f.tg.LastSentMessage()
		require.NotNil(t, msg)
		assert.Contains(t, msg.Text, "Resumen de Ana Soto")
		assert.Contains(t, msg.Text, "Saldo: <b>$885.000</b>")
		assert.Contains(t, msg.Text, "• Casa: $15.000")
		assert.Contains(t, msg.Text, "💡 Mantén tu ahorro")
	})

	t.Run("expired session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.backend.fail("GET /resumen/", http.StatusUnauthorized)

		f.send("/resumen")

		assert.Equal(t, []string{msgSessionExpired, routeMessages[session.RouteLogin]}, f.tg.Messages())
	})

	t.Run("network failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.backend.fail("GET /resumen/", http.StatusInternalServerError)

		f.send("/resumen")

		assert.Equal(t, 1, f.tg.SentMessageCount())
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, "❌ "))
		assert.Equal(t, 1, f.slots.Len())
	})
}

func TestHandleChart(t *testing.T) {
	t.Parallel()

	t.Run("sends a png", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/grafico")

		doc := f.tg.LastSentDocument()
		require.NotNil(t, doc)
		assert.Equal(t, "grafico_2024-05.png", doc.Filename)
		assert.True(t, bytes.HasPrefix(doc.Data, []byte("\x89PNG")))
		assert.Contains(t, doc.Caption, "$15.000")
	})

	t.Run("no expenses", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.backend.respond("GET /resumen/", `{"total_ingresos":"0","total_gastos":"0","saldo":"0"}`)

		f.send("/grafico")

		assert.Equal(t, 0, f.tg.SentDocumentCount())
		assert.Equal(t, "📊 Aún no hay gastos para graficar.", f.tg.LastSentMessage().Text)
	})
}

func TestHandleExport(t *testing.T) {
	t.Parallel()

	t.Run("sends a csv", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/exportar")

		doc := f.tg.LastSentDocument()
		require.NotNil(t, doc)
		assert.Equal(t, "gastos_2024-05.csv", doc.Filename)
		assert.Equal(t, "📄 1 gastos exportados", doc.Caption)
		assert.Contains(t, string(doc.Data), "Supermercado")
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.backend.respond("GET /gastos/", `[]`)

		f.send("/exportar")

		assert.Equal(t, 0, f.tg.SentDocumentCount())
		assert.Equal(t, "📄 No tienes gastos para exportar.", f.tg.LastSentMessage().Text)
	})

	t.Run("send failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		f.tg.SendDocumentError = assert.AnError

		f.send("/exportar")

		assert.Contains(t, f.tg.LastSentMessage().Text, "No se pudo enviar el archivo")
	})
}

func TestHandleProfileEdits(t *testing.T) {
	t.Parallel()

	t.Run("edit fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send(`/editarperfil nombre="Ana María" telefono=+56911112222`)

		assert.Equal(t, 1, f.backend.count("PATCH /auth/me/"))
		body := f.backend.body("PATCH /auth/me/")
		assert.Contains(t, body, "Ana María")
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, "✅ Perfil actualizado."))
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/editarperfil")

		assert.Equal(t, 0, f.backend.count("PATCH /auth/me/"))
		assert.Contains(t, f.tg.LastSentMessage().Text, "Uso:")
	})

	t.Run("photo upload", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)
		files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("\xff\xd8\xff fake jpeg"))
		}))
		t.Cleanup(files.Close)
		f.tg.FileDownloadLinkToReturn = files.URL

		f.bot.dispatch(context.Background(), f.tg, mocks.PhotoUpdate(testChatID, testUserID, "photo-1", "/foto"))

		assert.Equal(t, 1, f.backend.count("PATCH /auth/me/"))
		assert.Contains(t, f.backend.body("PATCH /auth/me/"), "fake jpeg")
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, "✅ Perfil actualizado."))
	})

	t.Run("photo without image", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/foto")

		assert.Contains(t, f.tg.LastSentMessage().Text, "Envía una foto")
	})
}

func TestHandlePasswords(t *testing.T) {
	t.Parallel()

	t.Run("change", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/clave secreto123 nuevaclave1 nuevaclave1")

		assert.Equal(t, 1, f.tg.DeletedMessageCount())
		assert.Equal(t, "✅ Contraseña actualizada", f.tg.LastSentMessage().Text)
	})

	t.Run("change mismatch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.login(t)

		f.send("/clave secreto123 nuevaclave1 nuevaclave2")

		assert.Equal(t, 0, f.backend.count("POST /auth/password/change/"))
		assert.True(t, strings.HasPrefix(f.tg.LastSentMessage().Text, msgInvalidFormPref))
	})

	t.Run("request reset", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		f.send("/recuperar ana@example.com")

		assert.Equal(t, "📧 Revisa tu correo", f.tg.LastSentMessage().Text)
	})
}
