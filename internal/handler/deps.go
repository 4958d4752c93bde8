package handler

import (
	"relaychat/internal/app/auth"
	"relaychat/internal/app/relay"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
)

// AppDeps bundles the long-lived collaborators the HTTP layer needs.
// Everything here is constructed once at startup and injected.
type AppDeps struct {
	Config   *configs.AppConfig
	Hub      *relay.Hub
	Auth     *auth.Service
	Messages store.MessageStore
}
