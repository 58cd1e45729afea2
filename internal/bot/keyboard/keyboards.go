package keyboard

import (
	"github.com/go-telegram/bot/models"
)

// CreateWebAppKeyboard создает inline клавиатуру с кнопкой мини-приложения
func CreateWebAppKeyboard(webAppURL string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{
					Text:   "Открыть приложение",
					WebApp: &models.WebAppInfo{URL: webAppURL},
				},
			},
		},
	}
}

// CreateRemoveKeyboard создает объект для удаления клавиатуры
func CreateRemoveKeyboard() *models.ReplyKeyboardRemove {
	return &models.ReplyKeyboardRemove{
		RemoveKeyboard: true,
	}
}
