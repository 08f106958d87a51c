package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/silverpipe/constants"
)

// GetEnvVar fetches OS environment variable.
// If the variable is not set it returns empty string.
// It also returns an error if there is a missing value AND mandatory == true.
func GetEnvVar(k string, mandatory bool) (string, error) {
	if value := os.Getenv(k); value != "" {
		return value, nil
	}
	if mandatory {
		return "", fmt.Errorf("environment variable %v is not set", k)
	}
	return "", nil
}

// ReadValueFromEnv will read the env var and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	}
	return fmt.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" {
		v = defaultValue
	}
	return
}

// GetEnvVarName converts a dotted or dashed setting name like "store.dsn" into SP_STORE_DSN.
func GetEnvVarName(setting string) string {
	n := strings.TrimSpace(strings.ToUpper(setting))
	n = strings.NewReplacer(".", "_", "-", "_").Replace(n)
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}
