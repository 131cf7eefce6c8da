package logger

import (
	"go.uber.org/zap"
)

// NewLogger 创建一个新的 zap.Logger 实例
// 开发环境使用 console 输出，生产环境输出 JSON
func NewLogger(development bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "ncov-crawler")), nil
}
