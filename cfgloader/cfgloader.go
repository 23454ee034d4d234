// Package cfgloader loads, defaults and validates configuration at process start.
package cfgloader

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rise-and-shine/dropsync/observability/logger"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"

	envVarEnvironment = "ENVIRONMENT"
	envVarConfigPath  = "CONFIG_PATH"
)

// MustLoad is Load that logs the failure and exits the process.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		logger.Named("cfgloader").Fatalx(err)
	}
	return cfg
}

// Load reads the configuration for the current ENVIRONMENT.
//
// The file is ./config/${ENVIRONMENT}.yaml unless CONFIG_PATH or WithPath
// points elsewhere. A .env file in the working directory is loaded first and
// ${VAR} references in the YAML are expanded from the environment. Fields
// missing from the file receive their `default` tag, then the whole struct is
// checked against its `validate` tags. Fields tagged `mask:"true"` are
// starred out when the loaded config is logged.
func Load[T any](opts ...Option) (T, error) {
	var cfg T

	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.ValueOf(cfg).Kind() == reflect.Ptr {
		return cfg, errx.New("[cfgloader]: type parameter must not be a pointer", errx.WithCode(CodeInvalidTarget))
	}

	_ = godotenv.Load()

	env := os.Getenv(envVarEnvironment)
	if !slices.Contains([]string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}, env) {
		return cfg, errx.New(
			"[cfgloader]: ENVIRONMENT is not set or invalid, choices are: production, staging, dev, local, test",
			errx.WithCode(CodeInvalidEnvironment),
			errx.WithDetails(errx.D{"environment": env}),
		)
	}

	path := configPath(env, o)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errx.New(
			"[cfgloader]: cannot read config file",
			errx.WithCode(CodeFileUnreadable),
			errx.WithDetails(errx.D{"path": path, "cause": err.Error()}),
		)
	}

	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, errx.New(
			"[cfgloader]: cannot parse config file",
			errx.WithCode(CodeInvalidConfig),
			errx.WithDetails(errx.D{"path": path, "cause": err.Error()}),
		)
	}

	if err = defaults.Set(&cfg); err != nil {
		return cfg, errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	if err = validate(&cfg, env); err != nil {
		return cfg, err
	}

	if !o.Silent {
		printConfig(&cfg, env)
	}
	return cfg, nil
}

func configPath(env string, o Options) string {
	if o.Path != "" {
		return o.Path
	}
	if p := os.Getenv(envVarConfigPath); p != "" {
		return p
	}
	return fmt.Sprintf("./config/%s.yaml", env)
}

func validate(cfg any, env string) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type
	if !ok {
		return errx.Wrap(err, errx.WithCode(CodeInvalidConfig))
	}

	failed := make([]string, 0, len(errs))
	for _, fe := range errs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		failed = append(failed, fe.Namespace()+": "+tag)
	}
	return errx.New(
		fmt.Sprintf("[cfgloader]: invalid fields in %s config -> %s", env, strings.Join(failed, ", ")),
		errx.WithCode(CodeInvalidConfig),
	)
}
