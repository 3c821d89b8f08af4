package batch_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopdex/shop-collector/internal/batch"
)

var _ = Describe("rate gate", func() {
	var gate batch.RateGate

	It("waits out the full interval", func() {
		started := time.Now()
		elapsed := gate.Wait(context.TODO(), 50*time.Millisecond, nil)
		Expect(elapsed).To(BeTrue())
		Expect(time.Since(started)).To(BeNumerically(">=", 50*time.Millisecond))
	})

	It("returns immediately for a zero interval", func() {
		Expect(gate.Wait(context.TODO(), 0, nil)).To(BeTrue())
	})

	It("ends early on an interrupt", func() {
		interrupt := make(chan struct{})
		go func() {
			time.Sleep(10 * time.Millisecond)
			close(interrupt)
		}()

		started := time.Now()
		elapsed := gate.Wait(context.TODO(), 5*time.Second, interrupt)
		Expect(elapsed).To(BeFalse())
		Expect(time.Since(started)).To(BeNumerically("<", time.Second))
	})

	It("ends early when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.TODO())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		elapsed := gate.Wait(ctx, 5*time.Second, nil)
		Expect(elapsed).To(BeFalse())
	})
})
