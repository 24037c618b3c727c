package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsEmpty checks if a string is empty.
func IsEmpty(s string) bool {
	return s == ""
}

func GetTraceID(c *gin.Context) (string, error) {
	traceID := c.GetString(pkg.TraceId)
	if IsEmpty(traceID) {
		return "", errors.New("trace id is empty")
	}
	return traceID, nil
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors turns validator errors into one readable error naming the
// env keys at fault. Secret values are never logged.
func FormatConfigErrors(logger *zap.Logger, err error, cfg interface{}) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.Field()
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if tag := f.Tag.Get("mapstructure"); !IsEmpty(tag) {
				key = tag
			}
		}
		rule := fe.Tag()
		if !IsEmpty(fe.Param()) {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		logger.Error("invalid_config", zap.String("key", key), zap.String("rule", rule))
		problems = append(problems, fmt.Sprintf("%s (%s)", key, rule))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
}

// FormatValidationErrors renders request validation failures as one line per
// field, e.g. "age must be min=17".
func FormatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"invalid input: " + err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if !IsEmpty(fe.Param()) {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		out = append(out, fmt.Sprintf("%s must be %s", snakeCase(fe.Field()), rule))
	}
	return out
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RegisterBindingValidations installs the request rules on gin's binding validator.
func RegisterBindingValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return models.RegisterValidations(v)
}
