// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/offer-system/internal/model"
)

const clockLayout = "15:04"

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{4,19}$`)

var validate = newValidator()

// offerFields описывает правила для текстовых полей предложения.
type offerFields struct {
	Title          string `json:"title" validate:"required,max=200"`
	RestaurantName string `json:"restaurantName" validate:"required"`
	Location       string `json:"location" validate:"required"`
	PhoneNumber    string `json:"phoneNumber" validate:"required,phone"`
	Description    string `json:"description" validate:"max=4000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// Errors содержит ошибки проверки по полям. Совместима с errors.Is(err, model.ErrValidation).
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return fmt.Sprintf("%s: %s", model.ErrValidation, strings.Join(parts, "; "))
}

func (e Errors) Unwrap() error {
	return model.ErrValidation
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ParseWeekdays разбирает названия дней недели (полные или сокращённые, без учёта регистра).
// Повторы схлопываются, результат упорядочен с воскресенья.
func ParseWeekdays(days []string) ([]time.Weekday, error) {
	seen := model.NewSet[time.Weekday]()
	for _, d := range days {
		wd, ok := parseWeekday(d)
		if !ok {
			return nil, Errors{"validDays": fmt.Sprintf("unknown weekday %q", d)}
		}
		seen.Add(wd)
	}
	return model.SortedBy(seen, func(d time.Weekday) int { return int(d) }), nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// ValidateNewOffer проверяет создаваемое предложение. Изображение обязательно:
// либо загружаемый файл, либо готовая ссылка.
func ValidateNewOffer(o *model.Offer, hasUpload bool) error {
	errs := validateFields(o)
	if !hasUpload && strings.TrimSpace(o.Image.URL) == "" {
		errs["image"] = "is required"
	}
	return errs.orNil()
}

// ValidateOffer проверяет описательные поля предложения.
func ValidateOffer(o *model.Offer) error {
	return validateFields(o).orNil()
}

func validateFields(o *model.Offer) Errors {
	errs := Errors{}

	fields := offerFields{
		Title:          strings.TrimSpace(o.Title),
		RestaurantName: strings.TrimSpace(o.RestaurantName),
		Location:       strings.TrimSpace(o.Location),
		PhoneNumber:    strings.TrimSpace(o.PhoneNumber),
		Description:    o.Description,
	}
	if err := validate.Struct(fields); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs["offer"] = err.Error()
			return errs
		}
		for _, fe := range fieldErrs {
			errs[fe.Field()] = fieldMessage(fe)
		}
	}

	start, startOK := parseClock(o.StartTime, "startTime", errs)
	end, endOK := parseClock(o.EndTime, "endTime", errs)
	if startOK && endOK && !end.After(start) {
		errs["endTime"] = "must be after startTime"
	}

	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "phone":
		return "must contain digits only"
	default:
		return "is invalid"
	}
}

func parseClock(v *string, field string, errs Errors) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(clockLayout, *v)
	if err != nil {
		errs[field] = "must be in HH:MM format"
		return time.Time{}, false
	}
	return t, true
}
