// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "HydroNet-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "hydronet.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("engine.workers", 4)
	viper.SetDefault("engine.historyweeks", 4)
	viper.SetDefault("engine.validweekminreadings", 50)
	// 15-minute telemetry sampling gives 96 raw samples per full day.
	viper.SetDefault("engine.expecteddailyreadings", 96)
	viper.SetDefault("engine.upsertretrybackoff", 2*time.Second)

	viper.SetDefault("engine.detection.flatlinerunhours", 3)
	viper.SetDefault("engine.detection.spikefactor", 3.0)
	viper.SetDefault("engine.detection.rangemin", 0.0)
	viper.SetDefault("engine.detection.rangemax", 0.0)

	// Composite confidence weights. Signal quality, classification certainty
	// and the best individual method score must sum to 1.0.
	viper.SetDefault("engine.scoring.signalquality", 0.25)
	viper.SetDefault("engine.scoring.certainty", 0.30)
	viper.SetDefault("engine.scoring.bestmethod", 0.45)

	viper.SetDefault("engine.predictor.enabled", false)
	viper.SetDefault("engine.predictor.url", "http://localhost:8501")
	viper.SetDefault("engine.predictor.timeout", 5*time.Second)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8090")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.broker", "tcp://localhost:1883")
	viper.SetDefault("notification.topic", "hydronet")
	viper.SetDefault("notification.username", "")
	viper.SetDefault("notification.password", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8091")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "hydronet.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "hydronet")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "hydronet")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
