package instance

import (
	pkgError "github.com/AzielCF/az-juris/pkg/error"
)

var (
	ErrInstanceNotFound     = pkgError.NotFoundError("instance not found")
	ErrInstanceConflict     = pkgError.ConflictError("an active instance with this name already exists")
	ErrInstanceNotConnected = pkgError.InstanceNotConnectedError("instance is not connected")
	ErrTenantRequired       = pkgError.UnauthorizedError("tenant id is required")
)
