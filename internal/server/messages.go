package server

import "github.com/iamvkosarev/llm-relay/pkg/local"

var (
	MessageLoginSuccessful    = local.NewSet("Login successful", local.NewTrans(local.Rus, "Вход выполнен"))
	MessageInvalidCredentials = local.NewSet("Invalid credentials", local.NewTrans(local.Rus, "Неверные учетные данные"))
	MessageNotAuthenticated   = local.NewSet("Not authenticated", local.NewTrans(local.Rus, "Требуется авторизация"))
	MessageInvalidBody        = local.NewSet("Invalid JSON body", local.NewTrans(local.Rus, "Некорректное тело запроса"))
	MessageMessageRequired    = local.NewSet("Message is required", local.NewTrans(local.Rus, "Сообщение не указано"))
	MessageModelRequired      = local.NewSet("Model is required", local.NewTrans(local.Rus, "Модель не указана"))
	MessageInvalidModel       = local.NewSet("Invalid model", local.NewTrans(local.Rus, "Неизвестная модель"))
	MessageInvalidIndex       = local.NewSet("Invalid index", local.NewTrans(local.Rus, "Неверный индекс"))
	MessageRequestTimeout     = local.NewSet(
		"Request timeout. The AI model took too long to respond.",
		local.NewTrans(local.Rus, "Превышено время ожидания. Модель слишком долго отвечала."),
	)
	MessageNetworkErrorFormat = local.NewSet("Network error: %s", local.NewTrans(local.Rus, "Ошибка сети: %s"))
	MessageErrorFormat        = local.NewSet("Error: %s", local.NewTrans(local.Rus, "Ошибка: %s"))
	MessageServerError        = local.NewSet("internal server error", local.NewTrans(local.Rus, "внутренняя ошибка сервера"))
)
