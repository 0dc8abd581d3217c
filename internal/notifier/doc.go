// Package notifier delivers the day's digest to its audience. DryRunNotifier prints
// what would be sent; TelegramNotifier posts to a Telegram chat.
package notifier
