package progress_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopdex/shop-collector/internal/progress"
)

var _ = Describe("progress hub", func() {
	var hub *progress.Hub

	BeforeEach(func() {
		hub = progress.NewHub()
	})

	It("delivers snapshots to a subscriber of the run", func() {
		sub := hub.Subscribe("run-1")
		defer hub.Unsubscribe(sub)

		hub.Broadcast(progress.Snapshot{RunID: "run-1", Status: "running"})

		var snap progress.Snapshot
		Eventually(sub.Updates()).Should(Receive(&snap))
		Expect(snap.Status).To(Equal("running"))
	})

	It("keeps runs isolated", func() {
		sub := hub.Subscribe("run-1")
		defer hub.Unsubscribe(sub)

		hub.Broadcast(progress.Snapshot{RunID: "run-2", Status: "running"})

		Consistently(sub.Updates()).ShouldNot(Receive())
	})

	It("fans out to every subscriber", func() {
		first := hub.Subscribe("run-1")
		second := hub.Subscribe("run-1")
		defer hub.Unsubscribe(first)
		defer hub.Unsubscribe(second)

		Expect(hub.Subscribers("run-1")).To(Equal(2))

		hub.Broadcast(progress.Snapshot{RunID: "run-1"})
		Eventually(first.Updates()).Should(Receive())
		Eventually(second.Updates()).Should(Receive())
	})

	It("drops snapshots for a subscriber that fell behind", func() {
		sub := hub.Subscribe("run-1")
		defer hub.Unsubscribe(sub)

		// Fill the buffer and then some; Broadcast must not block.
		for i := 0; i < 50; i++ {
			hub.Broadcast(progress.Snapshot{RunID: "run-1", Progress: progress.Progress{Completed: i}})
		}

		received := 0
		for {
			select {
			case <-sub.Updates():
				received++
				continue
			default:
			}
			break
		}
		Expect(received).To(BeNumerically("<", 50))
		Expect(received).To(BeNumerically(">", 0))
	})

	It("closes the channel on unsubscribe", func() {
		sub := hub.Subscribe("run-1")
		hub.Unsubscribe(sub)

		Eventually(sub.Updates()).Should(BeClosed())
		Expect(hub.Subscribers("run-1")).To(BeZero())
	})

	It("tolerates double unsubscribe", func() {
		sub := hub.Subscribe("run-1")
		hub.Unsubscribe(sub)
		hub.Unsubscribe(sub)
	})
})
