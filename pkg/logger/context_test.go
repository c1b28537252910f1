package logger

import (
	"context"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestLogger(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Logger Suite")
}

var _ = ginkgo.Describe("request logger context", func() {
	ginkgo.It("should return the enriched logger from the same context", func() {
		ctx := With(context.Background(), "request_id", "abc-123")
		gomega.Expect(From(ctx)).ToNot(gomega.BeNil())
		gomega.Expect(From(ctx)).ToNot(gomega.BeIdenticalTo(LoggerWrapper()))
	})

	ginkgo.It("should fall back to the process logger", func() {
		gomega.Expect(From(context.Background())).To(gomega.BeIdenticalTo(LoggerWrapper()))
		gomega.Expect(From(nil)).To(gomega.BeIdenticalTo(LoggerWrapper()))
	})
})
