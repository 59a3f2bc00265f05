package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Report json names so field errors line up with the request body.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("waste_type", func(fl validator.FieldLevel) bool {
			return collection.WasteType(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return user.Role(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return v
}

// Struct validates s and returns a validation error carrying one entry per failed field.
func Struct(op string, s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domainagg.Validation(op, err.Error())
	}
	out := &domainagg.Error{Code: domainagg.CodeValidation, Op: op, Message: "invalid input"}
	for _, fe := range verrs {
		out = out.WithField(fe.Field(), describe(fe))
	}
	if len(verrs) == 1 {
		out.Message = describe(verrs[0])
	}
	return out
}

func describe(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "gt":
		return f + " must be greater than " + fe.Param()
	case "gte":
		return f + " must be at least " + fe.Param()
	case "lte":
		return f + " must be at most " + fe.Param()
	case "min":
		return f + " is too short"
	case "max":
		return f + " is too long"
	case "oneof":
		return f + " must be one of " + fe.Param()
	case "waste_type":
		return f + " is not a known waste type"
	case "role":
		return f + " is not a known role"
	default:
		return f + " is invalid"
	}
}
