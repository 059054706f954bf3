package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"WFA_CONFIG", "WFA_PORT", "WFA_HTTP_TIMEOUT", "WFA_REFRESH_INTERVAL",
	"WFA_CLIMATE_CSV", "WFA_CLIMATE_VALUE_FIELD", "WFA_WILDFIRE_ENABLED",
	"WFA_WILDFIRE_MIN_YEAR", "WFA_DB_PATH", "WFA_METRICS_NAMESPACE",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := Load()

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, "8080")
				convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.ClimateDataset, convey.ShouldEqual, "climate")
				convey.So(cfg.WildfireMinYear, convey.ShouldEqual, 1984)
				convey.So(cfg.ClimateFields().Category, convey.ShouldEqual, "City")
				convey.So(cfg.DBPath, convey.ShouldBeEmpty)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "wildfire_analysis")
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("WFA_PORT", "9090")
			_ = os.Setenv("WFA_HTTP_TIMEOUT", "5s")
			_ = os.Setenv("WFA_WILDFIRE_MIN_YEAR", "2000")
			_ = os.Setenv("WFA_WILDFIRE_ENABLED", "false")
			_ = os.Setenv("WFA_DB_PATH", "/tmp/readings.db")
			_ = os.Setenv("WFA_METRICS_NAMESPACE", "wfa")

			cfg, err := Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Port, convey.ShouldEqual, "9090")
				convey.So(cfg.HTTPTimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.WildfireMinYear, convey.ShouldEqual, 2000)
				convey.So(cfg.WildfireEnabled, convey.ShouldBeFalse)
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/readings.db")
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "wfa")
			})
		})

		convey.Convey("When a YAML file is given", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "port: \"7070\"\nclimate_csv: /data/climate.csv\nrefresh_interval: 30m\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("WFA_CONFIG", path)
			_ = os.Setenv("WFA_PORT", "6060")

			cfg, err := Load()

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ClimateCSV, convey.ShouldEqual, "/data/climate.csv")
				convey.So(cfg.RefreshInterval, convey.ShouldEqual, 30*time.Minute)
				convey.So(cfg.Port, convey.ShouldEqual, "6060")
			})
		})

		convey.Convey("When the config file is missing", func() {
			_ = os.Setenv("WFA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := Load()

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When settings are invalid", func() {
			_ = os.Setenv("WFA_REFRESH_INTERVAL", "0s")
			_ = os.Setenv("WFA_CLIMATE_VALUE_FIELD", "")

			_, err := Load()

			convey.Convey("Then validation reports the problem", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "refresh_interval")
			})
		})
	})
}
