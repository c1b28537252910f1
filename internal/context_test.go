package internal

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("WithTimeout", func() {
	ginkgo.It("should honor an explicit timeout", func() {
		ctx, cancel := WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		deadline, ok := ctx.Deadline()
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(time.Until(deadline)).To(gomega.BeNumerically("<=", 50*time.Millisecond))
	})

	ginkgo.It("should fall back to a default deadline for a non-positive duration", func() {
		ctx, cancel := WithTimeout(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(time.Until(deadline)).To(gomega.BeNumerically(">", time.Second))
	})
})

var _ = ginkgo.Describe("Session context", func() {
	ginkgo.It("should round-trip a session through a context", func() {
		sess := &SessionInfo{UserID: 7, Username: "tech1", Role: "technician"}
		ctx := ContextWithSession(context.Background(), sess)

		got, ok := SessionFromContext(ctx)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(got).To(gomega.Equal(sess))
	})

	ginkgo.It("should report a missing session", func() {
		_, ok := SessionFromContext(context.Background())
		gomega.Expect(ok).To(gomega.BeFalse())

		_, ok = SessionFromContext(nil)
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
