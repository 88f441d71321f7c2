package logger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Chuksremi15/wiseramp-backend/internal/types/environments"
)

var _ = Describe("Logger", func() {
	var logger *Logger

	Describe("#New", func() {
		It("should create a new logger with production config when environment is production", func() {
			logger = New(environments.Production)
			Expect(logger).NotTo(BeNil())
			Expect(logger.wrappedLogger).NotTo(BeNil())
		})

		It("should create a new logger with development config when environment is development", func() {
			logger = New(environments.Development)
			Expect(logger).NotTo(BeNil())
			Expect(logger.wrappedLogger).NotTo(BeNil())
		})

		It("should create a new logger with staging config when environment is staging", func() {
			logger = New(environments.Staging)
			Expect(logger).NotTo(BeNil())
			Expect(logger.wrappedLogger).NotTo(BeNil())
		})

		It("should fall back to production config when environment is unknown", func() {
			logger = New(environments.Environment("unknown"))
			Expect(logger).NotTo(BeNil())

			core := logger.wrappedLogger.WithOptions(zap.AddCaller()).Core()
			Expect(core.Enabled(zapcore.InfoLevel)).To(BeTrue())
			Expect(core.Enabled(zapcore.DebugLevel)).To(BeFalse())
		})
	})

	Describe("logging methods", func() {
		BeforeEach(func() {
			logger = New(environments.Test)
		})

		It("should log messages with string fields without panicking", func() {
			Expect(func() {
				logger.Debug("debug message", map[string]string{"key": "value"})
				logger.Info("info message", map[string]string{"key": "value"})
				logger.Warn("warn message", map[string]string{"key": "value"})
				logger.Error("error message", map[string]string{"key": "value"})
			}).NotTo(Panic())
		})

		It("should log messages without fields", func() {
			Expect(func() {
				logger.Info("no fields")
			}).NotTo(Panic())
		})
	})
})
