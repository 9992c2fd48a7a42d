package bot

import (
	tgbot "github.com/go-telegram/bot"
	"gitlab.com/yelinaung/finova-bot/internal/bot/mocks"
)

// TelegramAPI is the Telegram client surface used by the views. It is defined
// in mocks to avoid an import cycle with the recording MockBot.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*tgbot.Bot)(nil)
