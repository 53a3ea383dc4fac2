package pkgconfig

import (
	"io"
	"strings"

	"github.com/spf13/viper"
)

// Config is the read-only view of configuration the application depends on.
type Config interface {
	GetString(key string) string
	GetInt(key string) int64
	GetArray(key string) []string
	io.Closer
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewEnv returns a Viper-backed Config that reads keys from environment
// variables, falling back to defaults. Key "log_level" is read from LOG_LEVEL.
func NewEnv(defaults map[string]any) *Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return &Viper{v: v}
}

// GetInt returns the value for key as int64.
func (vc *Viper) GetInt(key string) int64 {
	return vc.v.GetInt64(key)
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetArray returns the value for key split by commas. Blank items are
// dropped, so an unset key yields an empty slice.
func (vc *Viper) GetArray(key string) []string {
	parts := strings.Split(vc.v.GetString(key), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	return nil
}
