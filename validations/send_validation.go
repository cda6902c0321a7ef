package validations

import (
	"context"

	domainChat "github.com/AzielCF/az-juris/domains/chat"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateSendMessage(ctx context.Context, request domainChat.SendMessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required, validation.By(validPhone)),
		validation.Field(&request.Message, validation.Required, validation.Length(1, 4096)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func validPhone(value any) error {
	phone, _ := value.(string)
	contact, ok := utils.ParseRemoteJID(phone)
	if !ok || contact.IsBroadcast {
		return validation.NewError("validation_phone", "must be a phone number or a contact JID")
	}
	if !contact.IsGroup && len(contact.User) < 8 {
		return validation.NewError("validation_phone_length", "must have at least 8 digits")
	}
	return nil
}
