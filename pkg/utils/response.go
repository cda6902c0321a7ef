package utils

import (
	"errors"

	pkgError "github.com/AzielCF/az-juris/pkg/error"
)

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded hands the error to the recovery middleware, which renders it.
func PanicIfNeeded(err any) {
	if err == nil {
		return
	}
	if e, ok := err.(error); ok {
		var generic pkgError.GenericError
		if errors.As(e, &generic) {
			panic(generic)
		}
	}
	panic(err)
}
