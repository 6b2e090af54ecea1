package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/domain"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

var validate = validator.New()

var domainNameRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	validate.RegisterValidation("domain_name", func(fl validator.FieldLevel) bool {
		return domainNameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("ticket_priority", func(fl validator.FieldLevel) bool {
		return domain.TicketPriority(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("ticket_status", func(fl validator.FieldLevel) bool {
		return domain.TicketStatus(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("domain_status", func(fl validator.FieldLevel) bool {
		return domain.DomainStatus(fl.Field().String()).Valid()
	})
}

// normalizer is implemented by requests that clean their input before validation.
type normalizer interface {
	Normalize()
}

// Bind parses the JSON body into req, normalizes it and validates struct tags.
func Bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return Validate(req)
}

// Validate normalizes and validates an already populated request.
func Validate(req any) error {
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]any, len(verrs))
			for _, fe := range verrs {
				details[fieldPath(fe)] = fe.Tag()
			}
			return apperrors.NewValidationError("validation failed", details)
		}
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return nil
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
