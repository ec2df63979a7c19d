package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the compression middleware.
type BrotliConfig struct {
	Quality   int
	MinLength int
	// Skipper bypasses compression for matching requests.
	Skipper func(c *gin.Context) bool
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// precompressedTypes already carry their own compression.
var precompressedTypes = []string{
	"application/vnd.openxmlformats-officedocument",
	"application/zip",
	"image/",
}

// brotliWriter buffers the body until MinLength bytes are seen, then either
// switches to brotli or, for small bodies, writes them through unchanged.
type brotliWriter struct {
	gin.ResponseWriter
	cfg        BrotliConfig
	writer     *brotli.Writer
	buf        []byte
	decided    bool
	compressed bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.decided {
		if bw.compressed {
			return bw.writer.Write(data)
		}
		return bw.ResponseWriter.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.cfg.MinLength {
		return len(data), nil
	}
	if err := bw.decide(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// decide picks the encoding once and drains the buffer into it.
func (bw *brotliWriter) decide() error {
	bw.decided = true
	header := bw.ResponseWriter.Header()
	if len(bw.buf) >= bw.cfg.MinLength && !isPrecompressed(header.Get("Content-Type")) {
		bw.compressed = true
		header.Set("Content-Encoding", "br")
		header.Del("Content-Length")
		bw.writer = brotli.NewWriterLevel(bw.ResponseWriter, bw.cfg.Quality)
	}

	var err error
	if len(bw.buf) > 0 {
		if bw.compressed {
			_, err = bw.writer.Write(bw.buf)
		} else {
			_, err = bw.ResponseWriter.Write(bw.buf)
		}
	}
	bw.buf = nil
	return err
}

// Flush commits to an encoding so streamed responses reach the client.
func (bw *brotliWriter) Flush() {
	if !bw.decided {
		_ = bw.decide()
	}
	if bw.compressed {
		_ = bw.writer.Flush()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) close() error {
	if !bw.decided {
		if err := bw.decide(); err != nil {
			return err
		}
	}
	if bw.compressed {
		return bw.writer.Close()
	}
	return nil
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isUpgrade(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, cfg: cfg}
		c.Writer = bw
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// isUpgrade reports WebSocket handshakes, which must not be wrapped.
func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func isPrecompressed(contentType string) bool {
	for _, t := range precompressedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
