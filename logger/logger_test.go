package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/silverpipe/logger"
)

var _ = Describe("Logger", func() {
	log := logger.NewLogger("test-service", "debug", true)
	log.SetJSON()

	decode := func(b *bytes.Buffer) map[string]interface{} {
		var actual map[string]interface{}
		_ = json.Unmarshal(b.Bytes(), &actual)
		return actual
	}

	It("Should have `test-service` as service name", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		log.Info("Testing")
		Expect(decode(logOutput)["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		log.Info("Testing")
		Expect(decode(logOutput)["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		log.Warn("Testing")
		Expect(decode(logOutput)["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		log.Error("Testing")
		actual := decode(logOutput)
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		log.Info("Testing")
		Expect(decode(logOutput)["msg"]).To(Equal("Testing"))
	})

	It("Should carry run fields on child loggers", func() {
		logOutput := bytes.NewBufferString("")
		log.SetOutput(logOutput)
		child := logger.WithFields(log, map[string]interface{}{"retailer": "walmart", "runId": "r1"})
		child.Info("Testing")
		actual := decode(logOutput)
		Expect(actual["retailer"]).To(Equal("walmart"))
		Expect(actual["runId"]).To(Equal("r1"))
		Expect(actual["service"]).To(Equal("test-service"))
	})
})
