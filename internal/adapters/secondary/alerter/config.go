package alerter

// Config чат дежурных: двойные оплаты, упавшие задачи, недоставленные уведомления
type Config struct {
	BotToken        string `envconfig:"BOT_TOKEN"`
	APIURL          string `envconfig:"API_URL"`
	ChatID          int64  `envconfig:"CHAT_ID"`
	MessageThreadID *int64 `envconfig:"MESSAGE_THREAD_ID"` // топик форума
}
