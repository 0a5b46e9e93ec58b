package dispatch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"

	"github.com/a-essam23/go-dispatch-client/frame"
)

// Conn is one live full-duplex connection exchanging text frames.
// ReadMessage is called from a single goroutine; WriteMessage and Close may
// be called concurrently with it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Conn, sending header with the handshake request.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}

// WSDialer dials go-dispatch over gobwas/ws.
type WSDialer struct {
	// Compression offers permessage-deflate. Frames are compressed only if
	// the server accepts the offer.
	Compression bool
}

// Dial performs the WebSocket handshake.
func (d WSDialer) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	dialer := ws.Dialer{Header: ws.HandshakeHeaderHTTP(header)}
	if d.Compression {
		dialer.Extensions = []httphead.Option{frame.DeflateOffer()}
	}

	conn, br, hs, err := dialer.Dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn, br, ws.StateClientSide, d.Compression && frame.DeflateAccepted(hs.Extensions)), nil
}

type wsConn struct {
	conn    net.Conn
	state   ws.State
	deflate bool
	control wsutil.FrameHandlerFunc

	rd   *wsutil.Reader
	rmsg wsflate.MessageState
	fr   *wsflate.Reader

	wmu  sync.Mutex // guards every write to conn, control replies included
	wr   *wsutil.Writer
	wmsg wsflate.MessageState
	fw   *wsflate.Writer

	closeOnce sync.Once
	closeErr  error
}

// newWSConn wraps an upgraded socket. side is ws.StateClientSide or
// ws.StateServerSide.
func newWSConn(conn net.Conn, br *bufio.Reader, side ws.State, deflate bool) *wsConn {
	c := &wsConn{conn: conn, state: side, deflate: deflate}
	if deflate {
		c.state |= ws.StateExtended
	}

	// Bytes the server sent right after the handshake are buffered in br.
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	reply := wsutil.ControlFrameHandler(conn, side)
	c.control = func(h ws.Header, r io.Reader) error {
		c.wmu.Lock()
		defer c.wmu.Unlock()
		return reply(h, r)
	}

	c.rd = &wsutil.Reader{
		Source:         src,
		State:          c.state,
		OnIntermediate: c.control,
	}
	c.wr = wsutil.NewWriter(conn, c.state, ws.OpText)

	if deflate {
		c.rd.Extensions = []wsutil.RecvExtension{&c.rmsg}
		c.fr = frame.NewDeflateReader()
		c.fw = frame.NewDeflateWriter()
	}
	return c
}

// ReadMessage returns the next text message. Control frames are answered
// inline; binary messages are not part of the protocol and are skipped.
func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		h, err := c.rd.NextFrame()
		if err != nil {
			return nil, err
		}
		if h.OpCode.IsControl() {
			if err := c.control(h, c.rd); err != nil {
				return nil, err
			}
			continue
		}
		if h.OpCode == ws.OpBinary {
			if err := c.rd.Discard(); err != nil {
				return nil, err
			}
			continue
		}

		var r io.Reader = c.rd
		if c.deflate && c.rmsg.IsCompressed() {
			c.fr.Reset(c.rd)
			r = c.fr
		}
		return io.ReadAll(r)
	}
}

// WriteMessage sends data as a single text message.
func (c *wsConn) WriteMessage(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	// Reset drops the writer's extensions.
	c.wr.Reset(c.conn, c.state, ws.OpText)
	if !c.deflate {
		if _, err := c.wr.Write(data); err != nil {
			return err
		}
		return c.wr.Flush()
	}

	c.wr.SetExtensions(&c.wmsg)
	c.wmsg.SetCompressed(true)
	c.fw.Reset(c.wr)
	if _, err := c.fw.Write(data); err != nil {
		return err
	}
	// Flush ends the message with the sync marker the extension strips.
	if err := c.fw.Flush(); err != nil {
		return err
	}
	return c.wr.Flush()
}

// Close sends a normal closure frame when the write side is free and closes
// the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		if c.wmu.TryLock() {
			body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
			_ = wsutil.WriteMessage(c.conn, c.state, ws.OpClose, body)
			c.wmu.Unlock()
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// isNormalClose reports whether err ends a connection without a failure:
// a clean closure handshake or EOF.
func isNormalClose(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		return closed.Code == ws.StatusNormalClosure || closed.Code == ws.StatusGoingAway
	}
	return false
}
