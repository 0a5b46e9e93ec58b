package frame

import (
	"bytes"
	"io"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws/wsflate"
	"github.com/klauspost/compress/flate"
)

// DeflateExtension is the permessage-deflate extension token (RFC 7692).
const DeflateExtension = "permessage-deflate"

// chat frames are small; favour latency over ratio
const deflateLevel = flate.BestSpeed

// DeflateOffer is the extension option a client sends in its handshake.
// Both sides reset their compression context per message.
func DeflateOffer() httphead.Option {
	return wsflate.DefaultParameters.Option()
}

// DeflateAccepted reports whether the server agreed to permessage-deflate.
func DeflateAccepted(exts []httphead.Option) bool {
	for _, opt := range exts {
		if bytes.Equal(opt.Name, []byte(DeflateExtension)) {
			return true
		}
	}
	return false
}

// NewDeflateReader returns a reusable reader inflating message payloads.
func NewDeflateReader() *wsflate.Reader {
	return wsflate.NewReader(nil, func(r io.Reader) wsflate.Decompressor {
		return flate.NewReader(r)
	})
}

// NewDeflateWriter returns a reusable writer deflating message payloads.
func NewDeflateWriter() *wsflate.Writer {
	return wsflate.NewWriter(nil, func(w io.Writer) wsflate.Compressor {
		f, _ := flate.NewWriter(w, deflateLevel)
		return f
	})
}
