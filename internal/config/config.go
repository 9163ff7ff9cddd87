package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultFPS             = 30
	DefaultCPUInterval     = 100 * time.Millisecond
	DefaultRenderer        = "fill"
	DefaultSink            = string(SinkLog)
	DefaultMaxBuffers      = 8
	DefaultLogLevel        = string(LogLevelInfo)
	DefaultMetricsDB       = "/var/lib/pipdrain/metrics.db"
	DefaultMetricsInterval = time.Second
	// MaxFPS is the highest frame rate with a non-zero frame interval.
	MaxFPS             = int(time.Second)
	DefaultBatteryRoot = "/sys/class/power_supply"

	defaultEnvPrefix  = "PIPDRAIN"
	defaultConfigName = "pipdrain"
)

type Config struct {
	FPS             int           `mapstructure:"fps"`
	CPUInterval     time.Duration `mapstructure:"cpu_interval"`
	Renderer        string        `mapstructure:"renderer"`
	Sink            string        `mapstructure:"sink"`
	Drain           bool          `mapstructure:"drain"`
	Duration        time.Duration `mapstructure:"duration"`
	MaxBuffers      int           `mapstructure:"max_buffers"`
	LogLevel        string        `mapstructure:"log_level"`
	Metrics         bool          `mapstructure:"metrics"`
	MetricsDB       string        `mapstructure:"metrics_db"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	GPU             bool          `mapstructure:"gpu"`
	Battery         bool          `mapstructure:"battery"`
	BatteryRoot     string        `mapstructure:"battery_root"`
}

// Load reads the configuration from defaults, the config file, PIPDRAIN_*
// environment variables and os.Args, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadWithOptions(WithArgs(os.Args[1:]))
}

func LoadWithOptions(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(ErrInvalidOption, err)
		}
	}
	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fps", DefaultFPS)
	v.SetDefault("cpu_interval", DefaultCPUInterval)
	v.SetDefault("renderer", DefaultRenderer)
	v.SetDefault("sink", DefaultSink)
	v.SetDefault("drain", true)
	v.SetDefault("duration", time.Duration(0))
	v.SetDefault("max_buffers", DefaultMaxBuffers)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics", false)
	v.SetDefault("metrics_db", DefaultMetricsDB)
	v.SetDefault("metrics_interval", DefaultMetricsInterval)
	v.SetDefault("gpu", false)
	v.SetDefault("battery", true)
	v.SetDefault("battery_root", DefaultBatteryRoot)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("pipdrain", pflag.ContinueOnError)
	fs.Int("fps", DefaultFPS, "Frames rendered per second")
	fs.Duration("cpu-interval", DefaultCPUInterval, "Interval between CPU usage samples")
	fs.String("renderer", DefaultRenderer, "Renderer painting the frames")
	fs.String("sink", DefaultSink, "Display sink: log, tui or gst")
	fs.Bool("drain", true, "Produce frames on every tick (false pauses playback)")
	fs.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	fs.Int("max-buffers", DefaultMaxBuffers, "Pixel buffers per pool")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.Bool("metrics", false, "Record usage snapshots to SQLite")
	fs.String("metrics-db", DefaultMetricsDB, "Path to the metrics database")
	fs.Duration("metrics-interval", DefaultMetricsInterval, "Interval between metrics snapshots")
	fs.Bool("gpu", false, "Sample NVIDIA GPU utilisation")
	fs.Bool("battery", true, "Report battery drain")
	fs.String("battery-root", DefaultBatteryRoot, "sysfs power_supply directory")

	return fs
}

// bindFlags binds every flag to the viper key with dashes replaced by
// underscores. Only flags set on the command line override other sources.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})

	return bindErr
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, defaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.FPS <= 0 || c.FPS > MaxFPS {
		return errFactory.WithData(errors.ErrInvalidFrameRate, c.FPS)
	}
	if c.CPUInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.CPUInterval)
	}
	// the status log runs on this interval with or without the metrics store
	if c.MetricsInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.MetricsInterval)
	}
	if c.Duration < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Duration)
	}
	if c.MaxBuffers <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "max_buffers must be positive")
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if !SinkKind(c.Sink).IsValid() {
		return errFactory.WithData(errors.ErrInvalidSink, c.Sink)
	}
	if c.Renderer == "" {
		return errFactory.New(errors.ErrInvalidRenderer)
	}

	return nil
}

// FrameInterval is the time between two rendered frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
