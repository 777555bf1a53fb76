// Copyright 2025 SQLFence Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"time"

	"github.com/sqlfence/sqlfence/lib/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func buildEncoder(cfg *config.Log) zapcore.Encoder {
	encfg := zap.NewProductionEncoderConfig()
	encfg.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.Format("2006/01/02 15:04:05.000 -07:00"))
	}
	encfg.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(l.CapitalString())
	}
	switch cfg.Encoder {
	case "console":
		return zapcore.NewConsoleEncoder(encfg)
	default:
		return zapcore.NewJSONEncoder(encfg)
	}
}

func buildSyncer(cfg *config.Log) zapcore.WriteSyncer {
	if len(cfg.LogFile.Filename) == 0 {
		return zapcore.Lock(os.Stdout)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile.Filename,
		MaxSize:    cfg.LogFile.MaxSize,
		MaxAge:     cfg.LogFile.MaxDays,
		MaxBackups: cfg.LogFile.MaxBackups,
	})
}

// BuildLogger creates the process logger from the log config.
func BuildLogger(cfg *config.Log) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, level, err
	}
	syncer := buildSyncer(cfg)
	lg := zap.New(zapcore.NewCore(buildEncoder(cfg), syncer, level),
		zap.ErrorOutput(syncer), zap.AddStacktrace(zapcore.FatalLevel), zap.AddCaller())
	return lg, level, nil
}
