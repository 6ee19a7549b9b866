package slackclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"

	"slackgpt.app/relay/core/config"
	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/slackclient"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		handlers map[string]http.HandlerFunc
		forms    map[string][]map[string]string
		mu       sync.Mutex
		client   *slackclient.Client
	)

	sent := func(method string) []map[string]string {
		mu.Lock()
		defer mu.Unlock()
		return forms[method]
	}

	BeforeEach(func() {
		ctx = context.Background()
		handlers = map[string]http.HandlerFunc{}
		forms = map[string][]map[string]string{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.TrimPrefix(r.URL.Path, "/")
			Expect(r.ParseForm()).To(Succeed())
			values := map[string]string{}
			for k := range r.Form {
				values[k] = r.Form.Get(k)
			}
			mu.Lock()
			forms[method] = append(forms[method], values)
			mu.Unlock()

			h, ok := handlers[method]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			h(w, r)
		}))
		client = slackclient.New(config.SlackConfig{BotToken: "xoxb-test"}, slack.OptionAPIURL(server.URL+"/"))
	})

	AfterEach(func() {
		server.Close()
	})

	It("follows cursors when fetching thread replies", func() {
		handlers["conversations.replies"] = func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("cursor") == "" {
				_, _ = io.WriteString(w, `{"ok":true,"messages":[{"type":"message","user":"U1","text":"root","ts":"100.000"}],"has_more":true,"response_metadata":{"next_cursor":"c2"}}`)
				return
			}
			_, _ = io.WriteString(w, `{"ok":true,"messages":[{"type":"message","bot_id":"B1","text":"answer","ts":"100.500"}],"has_more":false}`)
		}

		replies, err := client.FetchThreadReplies(ctx, "C1", "100.000")

		Expect(err).NotTo(HaveOccurred())
		Expect(replies).To(Equal([]model.ThreadReply{
			{Timestamp: "100.000", Text: "root", UserID: "U1"},
			{Timestamp: "100.500", Text: "answer", IsBot: true},
		}))
		Expect(sent("conversations.replies")).To(HaveLen(2))
		Expect(sent("conversations.replies")[1]["cursor"]).To(Equal("c2"))
	})

	It("posts mrkdwn into the thread and returns the handle", func() {
		handlers["chat.postMessage"] = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"ok":true,"channel":"C1","ts":"100.900"}`)
		}

		handle, err := client.CreateMessage(ctx, "C1", "100.000", "**hi**")

		Expect(err).NotTo(HaveOccurred())
		Expect(handle).To(Equal(model.MessageHandle{ChannelID: "C1", Timestamp: "100.900"}))
		form := sent("chat.postMessage")[0]
		Expect(form["text"]).To(Equal("*hi*"))
		Expect(form["thread_ts"]).To(Equal("100.000"))
	})

	It("updates a message in place", func() {
		handlers["chat.update"] = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"ok":true,"channel":"C1","ts":"100.900","text":"done"}`)
		}

		err := client.UpdateMessage(ctx, model.MessageHandle{ChannelID: "C1", Timestamp: "100.900"}, "done")

		Expect(err).NotTo(HaveOccurred())
		Expect(sent("chat.update")[0]["ts"]).To(Equal("100.900"))
	})

	It("marks 429 responses as rate limited", func() {
		handlers["chat.update"] = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		}

		err := client.UpdateMessage(ctx, model.MessageHandle{ChannelID: "C1", Timestamp: "1"}, "x")

		Expect(errors.Is(err, slackclient.ErrRateLimited)).To(BeTrue())
	})

	It("samples channel members", func() {
		handlers["conversations.members"] = func(w http.ResponseWriter, r *http.Request) {
			Expect(r.FormValue("limit")).To(Equal("3"))
			_, _ = io.WriteString(w, `{"ok":true,"members":["U1","U2"],"response_metadata":{"next_cursor":""}}`)
		}

		n, err := client.ChannelMemberCount(ctx, "C1")

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("reads the channel name", func() {
		handlers["conversations.info"] = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"ok":true,"channel":{"id":"C1","name":"general"}}`)
		}

		name, err := client.ChannelName(ctx, "C1")

		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("general"))
	})

	It("surfaces Slack API errors", func() {
		handlers["conversations.info"] = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"ok":false,"error":"channel_not_found"}`)
		}

		_, err := client.ChannelName(ctx, "C404")

		Expect(err).To(MatchError(ContainSubstring("channel_not_found")))
	})
})

var _ = Describe("ChannelLimiter", func() {
	It("does not block when unlimited", func() {
		l := slackclient.NewChannelLimiter(0, 1)
		for i := 0; i < 100; i++ {
			Expect(l.Wait(context.Background(), "C1")).To(Succeed())
		}
	})

	It("returns when the context is cancelled", func() {
		l := slackclient.NewChannelLimiter(0.001, 1)
		Expect(l.Wait(context.Background(), "C1")).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(l.Wait(ctx, "C1")).NotTo(Succeed())
	})
})
