package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/amicale-sp/calendriers/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors report JSON field names.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// FormatValidationErrors turns a binding error into the validation envelope.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	} else if err != nil {
		details = append(details, dto.ValidationDetail{Message: "Corps de requête invalide"})
	}

	return dto.NewValidationErrorResponse("Données invalides", requestID, details)
}

// HandleValidationError writes a 400 validation response.
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Ce champ est obligatoire"
	case "email":
		return "Adresse email invalide"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Au moins " + e.Param() + " caractères"
		}
		return "Doit être au moins " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Au plus " + e.Param() + " caractères"
		}
		return "Doit être au plus " + e.Param()
	case "uuid":
		return "Identifiant invalide"
	case "oneof":
		return "Doit être l'une des valeurs : " + e.Param()
	case "gte":
		return "Doit être supérieur ou égal à " + e.Param()
	case "lte":
		return "Doit être inférieur ou égal à " + e.Param()
	case "gt":
		return "Doit être supérieur à " + e.Param()
	case "datetime":
		return "Date invalide (format " + e.Param() + ")"
	default:
		return "Valeur invalide"
	}
}
