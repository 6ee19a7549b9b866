package imaging_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/internal/imaging"
	"slackgpt.app/relay/internal/model"
)

type mockDownloader struct {
	downloadFn func(ctx context.Context, url string) ([]byte, error)
	urls       []string
}

func (m *mockDownloader) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	if m.downloadFn != nil {
		return m.downloadFn(ctx, url)
	}
	return nil, errors.New("not found")
}

func encodePNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 255, A: 128})
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

func decodeSize(data []byte) (int, int, string) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	return cfg.Width, cfg.Height, format
}

var _ = Describe("Downscale", func() {
	It("returns small images unchanged", func() {
		data := encodePNG(40, 20)

		out, mimeType, err := imaging.Downscale(data, "image/png", 64)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
		Expect(mimeType).To(Equal("image/png"))
	})

	It("fills in the mimetype from the decoded format", func() {
		_, mimeType, err := imaging.Downscale(encodeJPEG(10, 10), "", 64)

		Expect(err).NotTo(HaveOccurred())
		Expect(mimeType).To(Equal("image/jpeg"))
	})

	It("shrinks a wide png to the long edge limit and keeps png", func() {
		out, mimeType, err := imaging.Downscale(encodePNG(300, 100), "image/png", 60)

		Expect(err).NotTo(HaveOccurred())
		Expect(mimeType).To(Equal("image/png"))
		w, h, format := decodeSize(out)
		Expect(format).To(Equal("png"))
		Expect(w).To(Equal(60))
		Expect(h).To(Equal(20))
	})

	It("shrinks a tall jpeg and re-encodes as jpeg", func() {
		out, mimeType, err := imaging.Downscale(encodeJPEG(90, 270), "image/jpeg", 90)

		Expect(err).NotTo(HaveOccurred())
		Expect(mimeType).To(Equal("image/jpeg"))
		w, h, format := decodeSize(out)
		Expect(format).To(Equal("jpeg"))
		Expect(w).To(Equal(30))
		Expect(h).To(Equal(90))
	})

	It("rejects data that is not an image", func() {
		_, _, err := imaging.Downscale([]byte("<html>login</html>"), "image/png", 64)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("DataURL", func() {
	It("encodes bytes with the mimetype", func() {
		url := imaging.DataURL([]byte("abc"), "image/png")
		Expect(url).To(Equal("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc"))))
	})
})

var _ = Describe("Loader", func() {
	var (
		ctx        context.Context
		downloader *mockDownloader
		loader     *imaging.Loader
	)

	BeforeEach(func() {
		ctx = context.Background()
		downloader = &mockDownloader{}
		loader = imaging.NewLoader(downloader, 50)
	})

	It("downloads images in order and returns data URLs", func() {
		small := encodePNG(10, 10)
		large := encodePNG(200, 100)
		downloader.downloadFn = func(_ context.Context, url string) ([]byte, error) {
			if url == "https://files/small" {
				return small, nil
			}
			return large, nil
		}

		urls := loader.Load(ctx, []model.File{
			{ID: "F1", Mimetype: "image/png", URLPrivate: "https://files/small"},
			{ID: "F2", Mimetype: "image/png", URLPrivate: "https://files/large"},
		})

		Expect(urls).To(HaveLen(2))
		Expect(urls[0]).To(Equal(imaging.DataURL(small, "image/png")))
		Expect(urls[1]).To(HavePrefix("data:image/png;base64,"))

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(urls[1], "data:image/png;base64,"))
		Expect(err).NotTo(HaveOccurred())
		w, h, _ := decodeSize(raw)
		Expect(w).To(Equal(50))
		Expect(h).To(Equal(25))
	})

	It("skips non-image files without downloading them", func() {
		urls := loader.Load(ctx, []model.File{
			{ID: "F1", Mimetype: "application/pdf", URLPrivate: "https://files/doc"},
		})

		Expect(urls).To(BeEmpty())
		Expect(downloader.urls).To(BeEmpty())
	})

	It("skips files that fail to download or decode", func() {
		good := encodeJPEG(8, 8)
		downloader.downloadFn = func(_ context.Context, url string) ([]byte, error) {
			switch url {
			case "https://files/missing":
				return nil, errors.New("404")
			case "https://files/html":
				return []byte("<html></html>"), nil
			}
			return good, nil
		}

		urls := loader.Load(ctx, []model.File{
			{ID: "F1", Mimetype: "image/jpeg", URLPrivate: "https://files/missing"},
			{ID: "F2", Mimetype: "image/png", URLPrivate: "https://files/html"},
			{ID: "F3", Mimetype: "image/jpeg", URLPrivate: "https://files/ok"},
		})

		Expect(urls).To(ConsistOf(imaging.DataURL(good, "image/jpeg")))
		Expect(downloader.urls).To(HaveLen(3))
	})
})
