// Package validation validates configuration and domain values.
//
// Struct tag validation uses go-playground/validator:
//
//	type GatewayConfig struct {
//	    Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
//	    MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects field errors:
//
//	v := validation.New()
//	v.Required("pushkey", p.PushKey).OneOf("kind", p.Kind, kinds)
//	if err := v.Validate(); err != nil { ... }
//
// Both forms report failures as INVALID_PARAM errors.
package validation
