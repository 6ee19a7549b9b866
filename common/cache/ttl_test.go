package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/common/cache"
)

var _ = Describe("TTLCache", func() {
	var (
		ctx   context.Context
		clock *cache.FakeClock
		c     *cache.TTLCache[string]
		calls atomic.Int32
		fetch func(context.Context) (string, error)
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = cache.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		var err error
		c, err = cache.NewTTL[string](time.Hour, 16, clock)
		Expect(err).NotTo(HaveOccurred())
		calls.Store(0)
		fetch = func(context.Context) (string, error) {
			calls.Add(1)
			return "general", nil
		}
	})

	It("rejects a non-positive ttl", func() {
		_, err := cache.NewTTL[string](0, 16, clock)
		Expect(err).To(HaveOccurred())
	})

	It("serves a fresh entry without fetching", func() {
		v, err := c.GetOrFetch(ctx, "C1", fetch)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("general"))

		clock.Advance(59 * time.Minute)
		v, err = c.GetOrFetch(ctx, "C1", fetch)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("general"))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("refetches exactly once after the ttl elapses", func() {
		_, _ = c.GetOrFetch(ctx, "C1", fetch)
		clock.Advance(time.Hour)

		_, err := c.GetOrFetch(ctx, "C1", fetch)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.GetOrFetch(ctx, "C1", fetch)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("shares one fetch between concurrent misses", func() {
		release := make(chan struct{})
		slow := func(context.Context) (string, error) {
			calls.Add(1)
			<-release
			return "random", nil
		}

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				v, err := c.GetOrFetch(ctx, "C2", slow)
				Expect(err).NotTo(HaveOccurred())
				results[i] = v
			}(i)
		}

		Eventually(calls.Load).Should(Equal(int32(1)))
		close(release)
		wg.Wait()

		Expect(calls.Load()).To(Equal(int32(1)))
		for _, r := range results {
			Expect(r).To(Equal("random"))
		}
	})

	It("does not cache fetch errors", func() {
		boom := errors.New("boom")
		_, err := c.GetOrFetch(ctx, "C1", func(context.Context) (string, error) { return "", boom })
		Expect(err).To(MatchError(boom))

		v, err := c.GetOrFetch(ctx, "C1", fetch)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("general"))
	})

	It("drops invalidated entries", func() {
		c.Set("C1", "old")
		c.Invalidate("C1")

		_, ok := c.Get("C1")
		Expect(ok).To(BeFalse())
	})

	It("does not let an in-flight fetch overwrite a later write", func() {
		entered := make(chan struct{})
		release := make(chan struct{})
		slow := func(context.Context) (string, error) {
			close(entered)
			<-release
			return "old prompt", nil
		}

		done := make(chan string)
		go func() {
			defer GinkgoRecover()
			v, err := c.GetOrFetch(ctx, "C1", slow)
			Expect(err).NotTo(HaveOccurred())
			done <- v
		}()

		Eventually(entered).Should(BeClosed())
		c.Set("C1", "new prompt")
		close(release)
		Eventually(done).Should(Receive(Equal("old prompt")))

		v, ok := c.Get("C1")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("new prompt"))
	})

	It("does not cache a fetch that raced an invalidation", func() {
		entered := make(chan struct{})
		release := make(chan struct{})
		slow := func(context.Context) (string, error) {
			close(entered)
			<-release
			return "old prompt", nil
		}

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			_, err := c.GetOrFetch(ctx, "C1", slow)
			Expect(err).NotTo(HaveOccurred())
		}()

		Eventually(entered).Should(BeClosed())
		c.Invalidate("C1")
		close(release)
		Eventually(done).Should(BeClosed())

		_, ok := c.Get("C1")
		Expect(ok).To(BeFalse())
	})

	It("keeps serving waiters when the caller that started the fetch gives up", func() {
		release := make(chan struct{})
		var fetchErr atomic.Value
		slow := func(fctx context.Context) (string, error) {
			calls.Add(1)
			<-release
			if err := fctx.Err(); err != nil {
				fetchErr.Store(err)
			}
			return "general", nil
		}

		firstCtx, cancel := context.WithCancel(ctx)
		firstDone := make(chan error, 1)
		go func() {
			_, err := c.GetOrFetch(firstCtx, "C1", slow)
			firstDone <- err
		}()
		Eventually(calls.Load).Should(Equal(int32(1)))

		secondDone := make(chan string, 1)
		go func() {
			defer GinkgoRecover()
			v, err := c.GetOrFetch(ctx, "C1", slow)
			Expect(err).NotTo(HaveOccurred())
			secondDone <- v
		}()

		cancel()
		Eventually(firstDone).Should(Receive(MatchError(context.Canceled)))

		close(release)
		Eventually(secondDone).Should(Receive(Equal("general")))
		Expect(calls.Load()).To(Equal(int32(1)))
		Expect(fetchErr.Load()).To(BeNil())
	})

	It("keeps the last write", func() {
		c.Set("C1", "a")
		c.Set("C1", "b")
		v, ok := c.Get("C1")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("b"))
	})

	It("evicts the least recently used entry beyond capacity", func() {
		small, err := cache.NewTTL[int](time.Minute, 2, clock)
		Expect(err).NotTo(HaveOccurred())
		small.Set("a", 1)
		small.Set("b", 2)
		small.Set("c", 3)

		Expect(small.Len()).To(Equal(2))
		_, ok := small.Get("a")
		Expect(ok).To(BeFalse())
	})
})
