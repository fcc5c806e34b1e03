// Package notify provides Notifier implementations: a logging notifier, an
// AMQP publisher, an MQTT publisher for crew devices and an operator webhook
// authenticated with OAuth2 client credentials. Implementations are built
// from configuration through the registry in factory.go.
package notify
