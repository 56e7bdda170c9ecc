package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables.
// Every unparsable variable is reported, not just the first, and the result
// is validated before it is returned.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct fills the tagged fields of v, descending into nested sections.
func loadStruct(v reflect.Value) error {
	var errs []error
	forEachField(v, func(field reflect.StructField, val reflect.Value) {
		if err := loadField(field, val); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// forEachField calls fn for every settable leaf field of v. Nested structs
// are sections and are walked, not passed to fn.
func forEachField(v reflect.Value, fn func(reflect.StructField, reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, val := t.Field(i), v.Field(i)
		if !val.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			forEachField(val, fn)
			continue
		}
		fn(field, val)
	}
}

// lookupEnv returns the first non-empty value among a field's variables and
// the name it came from.
func lookupEnv(field reflect.StructField) (value, name string) {
	name = field.Tag.Get("env")
	for _, n := range []string{name, field.Tag.Get("envAlt")} {
		if n == "" {
			continue
		}
		if v := os.Getenv(n); v != "" {
			return v, n
		}
	}
	return "", name
}

func loadField(field reflect.StructField, val reflect.Value) error {
	if field.Tag.Get("env") == "" {
		return nil
	}

	value, name := lookupEnv(field)
	if value == "" {
		if field.Tag.Get("required") == "true" {
			return fmt.Errorf("required environment variable %s is not set", name)
		}
		value = field.Tag.Get("default")
	}
	if value == "" {
		return nil
	}

	if err := setField(val, value, field.Tag.Get("unit")); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
	}
	return nil
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value, unit string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		parse := func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
		if unit == "bytes" {
			parse = parseSize
		}
		i, err := parse(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("%d overflows %s", i, field.Type())
		}
		field.SetInt(i)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(value)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sizeUnits are binary multiples; KB and KiB mean the same.
var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GIB", 1 << 30}, {"MIB", 1 << 20}, {"KIB", 1 << 10},
	{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10},
	{"B", 1},
}

// parseSize parses a byte count such as "67108864", "64MiB" or "512 kb".
func parseSize(s string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(upper, u.suffix) {
			upper = strings.TrimSpace(strings.TrimSuffix(upper, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseInt(upper, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %d", n)
	}
	if n > (1<<63-1)/mult {
		return 0, fmt.Errorf("size %s overflows", s)
	}
	return n * mult, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field errors are named after the variable an operator would fix.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterValidation("oneofci", func(fl validator.FieldLevel) bool {
		for _, allowed := range strings.Fields(fl.Param()) {
			if strings.EqualFold(fl.Field().String(), allowed) {
				return true
			}
		}
		return false
	})

	v.RegisterStructValidation(rateRules, RateLimitConfig{})
	v.RegisterStructValidation(securityRules, SecurityConfig{})
	v.RegisterStructValidation(historyRules, Config{})
	return v
}

func rateRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(RateLimitConfig)
	if !c.Enabled {
		return
	}
	if c.RequestsPerMinute <= 0 {
		sl.ReportError(c.RequestsPerMinute, "RATE_LIMIT_REQUESTS_PER_MINUTE", "RequestsPerMinute", "enabled_gt", "0")
	}
	if c.UploadLimit <= 0 {
		sl.ReportError(c.UploadLimit, "RATE_LIMIT_UPLOAD", "UploadLimit", "enabled_gt", "0")
	}
}

func securityRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(SecurityConfig)
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		sl.ReportError(c.APIKeys, "API_KEYS", "APIKeys", "api_keys", "")
	}
}

// historyRules checks the pool and retention only when a database is set.
func historyRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if !c.Database.Enabled() {
		return
	}
	db := c.Database
	if db.MaxConns <= 0 {
		sl.ReportError(db.MaxConns, "DB_MAX_CONNS", "MaxConns", "gt", "0")
	} else if db.MaxConns < db.MinConns {
		sl.ReportError(db.MaxConns, "DB_MAX_CONNS", "MaxConns", "gtefield", "DB_MIN_CONNS")
	}
	if db.MinConns < 0 {
		sl.ReportError(db.MinConns, "DB_MIN_CONNS", "MinConns", "gte", "0")
	}
	if c.History.Retention <= 0 {
		sl.ReportError(c.History.Retention, "HISTORY_RETENTION", "Retention", "gt", "0")
	}
	if c.History.CheckInterval <= 0 {
		sl.ReportError(c.History.CheckInterval, "HISTORY_CHECK_INTERVAL", "CheckInterval", "gt", "0")
	}
}

// Validate checks the configuration and describes every failure.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// describe renders one rule failure for an operator.
func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s (%v) must be positive", name, fe.Value())
	case "gte":
		return fmt.Sprintf("%s (%v) must be at least %s", name, fe.Value(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s (%v) must be at most %s", name, fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s (%v) must be >= %s", name, fe.Value(), fe.Param())
	case "enabled_gt":
		return fmt.Sprintf("%s must be positive when rate limiting is enabled", name)
	case "nonblank":
		return fmt.Sprintf("%s must not be empty", name)
	case "oneofci":
		return fmt.Sprintf("%s (%q) must be one of: %s", name, fe.Value(),
			strings.Join(strings.Fields(fe.Param()), ", "))
	case "api_keys":
		return "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth"
	}
	return fmt.Sprintf("%s (%v) fails %s", name, fe.Value(), fe.Tag())
}

// String returns a safe string representation of the config for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Catalog: {Source: %q, FetchTimeout: %s}, ", c.Catalog.Source, c.Catalog.FetchTimeout)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.Timeout)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, UploadLimit: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.UploadLimit)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	if c.Database.Enabled() {
		fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
			c.Database.MaxConns, c.Database.MinConns)
	} else {
		b.WriteString("Database: {disabled}, ")
	}
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
