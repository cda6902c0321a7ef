package chat

import pkgError "github.com/AzielCF/az-juris/pkg/error"

var (
	ErrChatNotFound = pkgError.NotFoundError("chat not found")
	ErrChatTenant   = pkgError.ConflictError("chat belongs to another tenant")
)
