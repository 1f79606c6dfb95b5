package frame

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameARoundTrip(t *testing.T) {
	cases := []struct {
		id   uint32
		body string
	}{
		{1, ""},
		{42, "hello"},
		{0xFFFFFFFF, "<rpc/>"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := SendA(&buf, tc.id, tc.body); err != nil {
			t.Fatalf("SendA(%d, %q) error: %v", tc.id, tc.body, err)
		}
		id, body, eof, err := RecvA(&buf)
		if err != nil {
			t.Fatalf("RecvA() error: %v", err)
		}
		if eof {
			t.Fatalf("RecvA() unexpected eof")
		}
		if id != tc.id || body != tc.body {
			t.Fatalf("RecvA() = (%d, %q), want (%d, %q)", id, body, tc.id, tc.body)
		}
	}
}

func TestRecvAEOFOnEmptyStream(t *testing.T) {
	_, _, eof, err := RecvA(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eof {
		t.Fatalf("expected eof on empty stream")
	}
}

func TestRecvAMalformedLength(t *testing.T) {
	buf := make([]byte, headerSize)
	buf[3] = 2 // total-length = 2, smaller than the header itself
	_, _, _, err := RecvA(bytes.NewReader(buf))
	if err == nil {
		t.Fatalf("expected error for malformed length field")
	}
}

func TestRecvAOversizeBody(t *testing.T) {
	buf := make([]byte, headerSize)
	total := uint64(headerSize) + maxBodyBytes + 1
	buf[0] = byte(total >> 24)
	buf[1] = byte(total >> 16)
	buf[2] = byte(total >> 8)
	buf[3] = byte(total)
	_, _, _, err := RecvA(bytes.NewReader(buf))
	if err == nil {
		t.Fatalf("expected error for oversize body")
	}
}

func TestDecoderBAccumulatesAcrossFeeds(t *testing.T) {
	dec := NewDecoderB()
	if _, complete := dec.Feed([]byte("<rpc>he")); complete {
		t.Fatalf("expected incomplete after first partial feed")
	}
	if _, complete := dec.Feed([]byte("llo</rpc>]]>]")); complete {
		t.Fatalf("expected incomplete mid-terminator")
	}
	payload, complete := dec.Feed([]byte("]>"))
	if !complete {
		t.Fatalf("expected complete after terminator finishes")
	}
	if string(payload) != "<rpc>hello</rpc>" {
		t.Fatalf("payload = %q, want <rpc>hello</rpc>", payload)
	}
}

func TestDecoderBStripsEmbeddedNUL(t *testing.T) {
	dec := NewDecoderB()
	payload, complete := dec.Feed([]byte("a\x00b]]>]]>"))
	if !complete {
		t.Fatalf("expected complete")
	}
	if string(payload) != "ab" {
		t.Fatalf("payload = %q, want ab (NUL stripped)", payload)
	}
}

func TestDecoderBResetsAfterCompleteMessage(t *testing.T) {
	dec := NewDecoderB()
	dec.Feed([]byte("one]]>]]>"))
	payload, complete := dec.Feed([]byte("two]]>]]>"))
	if !complete || string(payload) != "two" {
		t.Fatalf("second message = %q, complete=%v, want two, true", payload, complete)
	}
}

func TestReadBBlockingWrapper(t *testing.T) {
	r := bytes.NewReader(EncodeB([]byte("<rpc/>")))
	payload, err := ReadB(r, nil)
	if err != nil {
		t.Fatalf("ReadB() error: %v", err)
	}
	if string(payload) != "<rpc/>" {
		t.Fatalf("ReadB() = %q, want <rpc/>", payload)
	}
}

type errReader struct{ err error }

func (e errReader) Read(p []byte) (int, error) { return 0, e.err }

func TestReadBPropagatesReadError(t *testing.T) {
	_, err := ReadB(errReader{err: io.ErrClosedPipe}, nil)
	if err == nil {
		t.Fatalf("expected propagated read error")
	}
}

func TestDecoderAWholeMessageInOneFeed(t *testing.T) {
	d := NewDecoderA()
	id, body, complete, err := d.Feed(EncodeA(7, "<get/>"))
	if err != nil {
		t.Fatalf("Feed() error: %v", err)
	}
	if !complete || id != 7 || body != "<get/>" {
		t.Fatalf("Feed() = (%d, %q, %v), want (7, <get/>, true)", id, body, complete)
	}
}

func TestDecoderASplitAcrossFeeds(t *testing.T) {
	d := NewDecoderA()
	whole := EncodeA(3, "<lock/>")
	_, _, complete, err := d.Feed(whole[:4])
	if err != nil || complete {
		t.Fatalf("Feed(partial header) = complete=%v err=%v, want false, nil", complete, err)
	}
	_, _, complete, err = d.Feed(whole[4:9])
	if err != nil || complete {
		t.Fatalf("Feed(partial body) = complete=%v err=%v, want false, nil", complete, err)
	}
	id, body, complete, err := d.Feed(whole[9:])
	if err != nil {
		t.Fatalf("Feed(rest) error: %v", err)
	}
	if !complete || id != 3 || body != "<lock/>" {
		t.Fatalf("Feed(rest) = (%d, %q, %v), want (3, <lock/>, true)", id, body, complete)
	}
}

func TestDecoderADrainsPipelinedMessages(t *testing.T) {
	d := NewDecoderA()
	both := append(EncodeA(1, "first"), EncodeA(2, "second")...)

	id, body, complete, err := d.Feed(both)
	if err != nil || !complete || id != 1 || body != "first" {
		t.Fatalf("Feed() = (%d, %q, %v, %v), want (1, first, true, nil)", id, body, complete, err)
	}

	id, body, complete, err = d.Feed(nil)
	if err != nil || !complete || id != 2 || body != "second" {
		t.Fatalf("Feed(nil) = (%d, %q, %v, %v), want (2, second, true, nil)", id, body, complete, err)
	}
}

func TestDecoderARejectsOversizeLength(t *testing.T) {
	d := NewDecoderA()
	header := make([]byte, headerSize)
	header[0], header[1], header[2], header[3] = 0xFF, 0xFF, 0xFF, 0xFF
	_, _, complete, err := d.Feed(header)
	if err == nil || complete {
		t.Fatalf("Feed() = complete=%v err=%v, want false, non-nil", complete, err)
	}
}
