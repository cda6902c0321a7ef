package validations

import (
	"context"
	"regexp"

	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Instance names travel in gateway URL paths.
var instanceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func ValidateCreateInstance(ctx context.Context, request domainInstance.CreateInstanceRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(instanceNamePattern).Error("must contain only letters, digits, '-' or '_'"),
		),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
