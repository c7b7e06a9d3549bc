package validator

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	initOnce  sync.Once
)

var (
	notificationIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
)

// Init sets up the shared validator and its custom rules. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		validate = validator.New()
		sanitizer = bluemonday.StrictPolicy()

		registerCustomValidations(validate)
	})
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("notification_id", validateNotificationID)
}

func Validate(s interface{}) error {
	Init()
	return validate.Struct(s)
}

// ValidateNotificationID checks a payment id received in a notification
// before it is used to build a provider URL.
func ValidateNotificationID(id string) error {
	Init()
	return validate.Var(id, "required,max=64,notification_id")
}

// SanitizeString strips every tag from s and collapses whitespace.
func SanitizeString(s string) string {
	Init()
	return strings.TrimSpace(NormalizeSpaces(html.UnescapeString(sanitizer.Sanitize(s))))
}

func NormalizeSpaces(s string) string {
	return whitespacePattern.ReplaceAllString(s, " ")
}

// provider resource ids are numeric for payments and alphanumeric for other topics
func validateNotificationID(fl validator.FieldLevel) bool {
	return notificationIDPattern.MatchString(fl.Field().String())
}
