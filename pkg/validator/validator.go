package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

var once sync.Once

// ValidationError - одна помилка поля.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Field + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Field + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// Init реєструє власні правила у валідаторі gin. Безпечно викликати багато разів.
func Init() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(jsonTagName)
		_ = v.RegisterValidation("report_status", validateReportStatus)
		_ = v.RegisterValidation("objectid", validateObjectID)
		_ = v.RegisterValidation("coordinates", validateCoordinates)
	})
}

// Describe перетворює помилку прив'язки в короткий текст для клієнта.
func Describe(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func jsonTagName(fld reflect.StructField) string {
	name := fld.Tag.Get("json")
	if name == "" {
		return fld.Name
	}

	if comma := strings.Index(name, ","); comma != -1 {
		name = name[:comma]
	}

	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validateReportStatus(fl validator.FieldLevel) bool {
	return models.IsAcceptedStatus(fl.Field().String())
}

func validateObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

// [lng, lat] у допустимих межах
func validateCoordinates(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Len() != 2 {
		return false
	}
	lng := field.Index(0).Float()
	lat := field.Index(1).Float()
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
