package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the compression middleware. Responses shorter than
// MinLength are sent uncompressed.
type BrotliConfig struct {
	Quality   int
	MinLength int
	// Skipper, when set, bypasses compression for matching requests.
	Skipper func(c *gin.Context) bool
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter holds the body back until MinLength bytes are seen, then
// switches to streaming brotli output for the rest of the response.
type brotliWriter struct {
	gin.ResponseWriter
	quality   int
	minLength int
	buf       []byte
	enc       *brotli.Writer
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.enc != nil {
		return bw.enc.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}

	h := bw.ResponseWriter.Header()
	if h.Get("Content-Encoding") != "" {
		// Handler already encoded the body.
		return len(data), bw.flushPlain()
	}
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")

	bw.enc = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)
	if _, err := bw.enc.Write(bw.buf); err != nil {
		return 0, err
	}
	bw.buf = nil
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush pushes out whatever is pending, compressed or not.
func (bw *brotliWriter) Flush() {
	if bw.enc != nil {
		_ = bw.enc.Flush()
	} else {
		_ = bw.flushPlain()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) flushPlain() error {
	if len(bw.buf) == 0 {
		return nil
	}
	_, err := bw.ResponseWriter.Write(bw.buf)
	bw.buf = nil
	return err
}

// finish closes the encoder or writes a short body as-is.
func (bw *brotliWriter) finish() error {
	if bw.enc != nil {
		return bw.enc.Close()
	}
	return bw.flushPlain()
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
		if shouldSkip(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// shouldSkip reports requests whose response must pass through untouched.
func shouldSkip(c *gin.Context) bool {
	// SSE frames must reach the client unbuffered.
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	// The Upgrade handshake fails on a wrapped writer.
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	return c.Request.Method == http.MethodHead
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
