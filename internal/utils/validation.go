package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	hhmmPattern        = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	profileCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	phonePattern       = regexp.MustCompile(`^\+?(55)?\s?\(?\d{2}\)?\s?9?\d{4}[-\s]?\d{4}$`)
)

var registerOnce sync.Once

// RegisterValidators adds the custom tags to gin's validator:
//
//	hhmm        a time of day such as 8:00 or 20:30
//	profilecode six characters from A-Z and 0-9
//	phone       a Brazilian phone number
//	weekday     0 (Sunday) to 6
//
// It also reports fields by their JSON name. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("hhmm", matchString(hhmmPattern))
		_ = v.RegisterValidation("profilecode", matchString(profileCodePattern))
		_ = v.RegisterValidation("phone", matchString(phonePattern))
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			d := fl.Field().Int()
			return d >= 0 && d <= 6
		})
	})
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	RegisterValidators()
	return binding.Validator.ValidateStruct(s)
}

var fieldMessages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email",
	"uuid":        "must be a valid id",
	"hhmm":        "must be a time such as 08:00",
	"profilecode": "must be 6 letters or digits",
	"phone":       "must be a valid phone number",
	"weekday":     "must be a weekday from 0 to 6",
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := fieldMessages[e.Tag()]; ok {
		return msg
	}
	switch e.Tag() {
	case "min":
		return fmt.Sprintf("must have at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must have at most %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte", "gt":
		return "must be at least " + e.Param()
	case "lte", "lt":
		return "must be at most " + e.Param()
	}
	return "is invalid"
}

// FieldErrors maps each invalid field to a readable message. It returns
// nil when err is not a validation error.
func FieldErrors(err error) map[string]string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		name := e.Field()
		if ns := e.Namespace(); strings.Count(ns, ".") > 1 {
			name = ns[strings.Index(ns, ".")+1:]
		}
		if _, seen := fields[name]; !seen {
			fields[name] = fieldMessage(e)
		}
	}
	return fields
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	fields := FieldErrors(err)
	if fields == nil {
		return err.Error()
	}
	var errorMessages []string
	for name, msg := range fields {
		errorMessages = append(errorMessages, name+" "+msg)
	}
	return strings.Join(errorMessages, ", ")
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	RegisterValidators()
	if err := c.ShouldBindJSON(obj); err != nil {
		if fields := FieldErrors(err); fields != nil {
			ValidationError(c, fields)
			return false
		}
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// BindQuery binds query parameters the same way BindAndValidate binds a body.
func BindQuery(c *gin.Context, obj interface{}) bool {
	RegisterValidators()
	if err := c.ShouldBindQuery(obj); err != nil {
		if fields := FieldErrors(err); fields != nil {
			ValidationError(c, fields)
			return false
		}
		BadRequest(c, "Invalid query: "+err.Error())
		return false
	}
	return true
}

// BindURI binds path parameters the same way BindAndValidate binds a body.
func BindURI(c *gin.Context, obj interface{}) bool {
	RegisterValidators()
	if err := c.ShouldBindUri(obj); err != nil {
		if fields := FieldErrors(err); fields != nil {
			ValidationError(c, fields)
			return false
		}
		BadRequest(c, "Invalid path: "+err.Error())
		return false
	}
	return true
}
