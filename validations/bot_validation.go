package validations

import (
	"context"
	"fmt"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/timeutils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxMenuDepth = 3

func ValidateSaveBotConfig(ctx context.Context, request domainBot.SaveConfigRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.WelcomeMessage, validation.Length(0, 4096)),
		validation.Field(&request.FallbackMessage, validation.Length(0, 4096)),
		validation.Field(&request.MenuOptions, validation.By(func(value any) error {
			return validateMenu(request.MenuOptions, 1)
		})),
		validation.Field(&request.BusinessHours, validation.By(func(value any) error {
			return validateBusinessHours(request.BusinessHours)
		})),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func validateMenu(options []domainBot.MenuOption, depth int) error {
	if depth > maxMenuDepth && len(options) > 0 {
		return validation.NewError("validation_menu_depth", fmt.Sprintf("menu options nest at most %d levels", maxMenuDepth))
	}
	for i, opt := range options {
		if err := validation.Validate(opt.Keyword, validation.Required); err != nil {
			return fmt.Errorf("option %d keyword: %w", i+1, err)
		}
		if err := validation.Validate(opt.Response, validation.Required); err != nil {
			return fmt.Errorf("option %d response: %w", i+1, err)
		}
		if err := validateMenu(opt.Options, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateBusinessHours(hours *domainBot.BusinessHours) error {
	if hours == nil {
		return nil
	}
	start, err := timeutils.ParseClock(hours.Start)
	if err != nil {
		return validation.NewError("validation_hours_start", "start must be HH:MM")
	}
	end, err := timeutils.ParseClock(hours.End)
	if err != nil {
		return validation.NewError("validation_hours_end", "end must be HH:MM")
	}
	if start >= end {
		return validation.NewError("validation_hours_window", "start must be before end")
	}
	if _, err := timeutils.LoadLocation(hours.Timezone); err != nil {
		return validation.NewError("validation_hours_timezone", "timezone must be an IANA zone name")
	}
	return validation.Validate(hours.OfflineMessage, validation.Required)
}
