// Package telegram sends the daily digest of today's events to a Telegram chat.
//
// Messages go through the Bot API sendMessage method as plain HTTP requests with HTML
// formatting. Authentication requires a bot token (from @BotFather) and chat ID.
package telegram
