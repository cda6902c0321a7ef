package bot

import pkgError "github.com/AzielCF/az-juris/pkg/error"

var ErrConfigNotFound = pkgError.NotFoundError("bot config not found")
