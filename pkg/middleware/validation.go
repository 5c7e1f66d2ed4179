package middleware

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/vas-service/pkg/errors"
)

var validateOnce sync.Once

var (
	orderNoRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-./]{0,63}$`)
	taskNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-.]{0,127}$`)
)

// InitValidator registers the VAS tags on gin's validator engine
func InitValidator() {
	validateOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("order_no", func(fl validator.FieldLevel) bool {
			return orderNoRegex.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("task_name", func(fl validator.FieldLevel) bool {
			return taskNameRegex.MatchString(fl.Field().String())
		})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// ValidOrderNo reports whether s is an acceptable order number
func ValidOrderNo(s string) bool {
	return orderNoRegex.MatchString(s)
}

// ValidationErrorFormatter formats validation errors into a field map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}
	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "order_no":
		return "must be a valid order number"
	case "task_name":
		return "must be a valid task name"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body and validates it
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			appErr := errors.ErrValidation("validation failed")
			for field, msg := range ValidationErrorFormatter(validationErrors) {
				appErr.WithDetail(field, msg)
			}
			return appErr
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ContentType rejects non-JSON bodies on write requests
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength > 0 && !strings.HasPrefix(contentType, "application/json") {
				AbortWithAppError(c, errors.NewAppError("INVALID_CONTENT_TYPE", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
				return
			}
		}
		c.Next()
	}
}
