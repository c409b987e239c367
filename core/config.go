package core

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugHost          string        `mapstructure:"debugHost"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		// AllowQueryIdentity accepts the `?user=` query parameter as the requester when no token is sent.
		AllowQueryIdentity bool          `mapstructure:"allowQueryIdentity"`
		DegradeReads       bool          `mapstructure:"degradeReads"`
		DisableReqLogs     bool          `mapstructure:"disableReqLogs"`
		LoginRateLimit     int           `mapstructure:"loginRateLimit"`
		LoginRateWindow    time.Duration `mapstructure:"loginRateWindow"`
		// TrustedProxies lists the IPs or CIDRs (space separated in env vars) allowed to set X-Forwarded-For.
		// Empty: the client IP is the peer address.
		TrustedProxies     []string      `mapstructure:"trustedProxies"`
	}

	DatabaseConfig struct {
		Engine         string        `mapstructure:"engine"` // mongo | postgres | memory
		URI            string        `mapstructure:"uri"`
		Name           string        `mapstructure:"name"`
		ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	NATSConfig struct {
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"`
	}

	AttendanceConfig struct {
		// RosterSize is the denominator of daily percentages. 0 means: count provisioned non-admin accounts.
		RosterSize           int  `mapstructure:"rosterSize"`
		StrictRoster         bool `mapstructure:"strictRoster"`
		AnalyticsConcurrency int  `mapstructure:"analyticsConcurrency"`
	}

	LogConfig struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	Config struct {
		Env          string           `mapstructure:"-"`
		Build        string           `mapstructure:"build"`
		Debug        bool             `mapstructure:"debug"`
		TestMode     bool             `mapstructure:"testMode"`
		AppName      string           `mapstructure:"appName"`
		SecretKey    string           `mapstructure:"secretKey"`
		RollbarToken string           `mapstructure:"rollbarToken"`
		Timezone     string           `mapstructure:"timezone"`
		Server       ServerConfig     `mapstructure:"server"`
		Database     DatabaseConfig   `mapstructure:"database"`
		Redis        RedisConfig      `mapstructure:"redis"`
		NATS         NATSConfig       `mapstructure:"nats"`
		Attendance   AttendanceConfig `mapstructure:"attendance"`
		Log          LogConfig        `mapstructure:"log"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Attendance")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("timezone", "Asia/Kolkata")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.debugHost", ":5010")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.allowQueryIdentity", true)
	v.SetDefault("server.degradeReads", false)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.loginRateLimit", 10)
	v.SetDefault("server.loginRateWindow", time.Minute)
	v.SetDefault("server.trustedProxies", []string{})

	v.SetDefault("database.engine", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "attendance")
	v.SetDefault("database.connectTimeout", 10*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "attendance.marked")

	v.SetDefault("attendance.rosterSize", 0)
	v.SetDefault("attendance.strictRoster", false)
	v.SetDefault("attendance.analyticsConcurrency", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")
}

// NewConfig reads the configuration of the current environment (`ENV`: DEV (default), TEST, QA, PROD).
// Values come from defaults, then `config/.env.<env>` if it exists, then `<ENV>_`-prefixed variables.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env

	if _, err := NewClock(conf.Timezone); err != nil {
		return nil, err
	}
	if _, err := conf.Server.TrustedProxyNets(); err != nil {
		return nil, err
	}
	if conf.Attendance.RosterSize < 0 {
		return nil, errors.New("attendance.rosterSize cannot be negative")
	}
	if conf.Attendance.AnalyticsConcurrency <= 0 {
		conf.Attendance.AnalyticsConcurrency = 1
	}
	return conf, nil
}

// TrustedProxyNets parses TrustedProxies. Bare IPs are taken as single-host ranges.
func (sc ServerConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(sc.TrustedProxies))
	for _, proxy := range sc.TrustedProxies {
		proxy = CleanString(proxy)
		if proxy == "" {
			continue
		}
		if ip := net.ParseIP(proxy); ip != nil {
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(proxy)
		if err != nil {
			return nil, errors.Wrapf(err, "server.trustedProxies: %q", proxy)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}
