package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 按环境配置全局 logger：dev 用彩色控制台输出，其余环境输出
// JSON 并带上服务名，便于日志采集。
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	base := zerolog.New(os.Stdout)
	if env == "dev" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = base.With().Timestamp().Str("service", "chatapp").Logger()
}
