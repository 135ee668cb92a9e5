package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"powernode-go/errcode"
	"powernode-go/services/espat"
	"powernode-go/services/modemsim"
	"powernode-go/types"
	"powernode-go/x/timex"
)

type recordSender struct {
	got []types.Sample
	err error
}

func (r *recordSender) Send(s types.Sample) error {
	r.got = append(r.got, s)
	return r.err
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("uart gone") }

var sample = types.Sample{TimestampMs: 12345, PowerA: 600, PowerB: 250, ActuatorOn: true}

func TestEncode(t *testing.T) {
	var buf [64]byte
	b, err := Encode(buf[:], sample)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"t":12345,"pA":600,"pB":250,"fan":true}` {
		t.Fatalf("got %s", b)
	}
	if _, err := Encode(buf[:16], sample); !errcode.Is(err, errcode.Overflow) {
		t.Fatalf("short buffer err=%v", err)
	}
}

func TestDebugSink(t *testing.T) {
	var out bytes.Buffer
	d := NewDebugSink(&out)
	if err := d.Send(sample); err != nil {
		t.Fatal(err)
	}
	if err := d.Send(types.Sample{TimestampMs: 4294967295, PowerA: 65535}); err != nil {
		t.Fatal(err)
	}
	want := `{"t":12345,"pA":600,"pB":250,"fan":true}` + "\r\n" +
		`{"t":4294967295,"pA":65535,"pB":0,"fan":false}` + "\r\n"
	if out.String() != want {
		t.Fatalf("got %q", out.String())
	}
	if err := NewDebugSink(failWriter{}).Send(sample); err == nil {
		t.Fatal("write error swallowed")
	}
}

func newWiFi(f modemsim.Faults, fb Sender) (*WiFi, *modemsim.Modem, *timex.Manual) {
	clk := timex.NewManual(0)
	m := modemsim.New(clk, f)
	c := espat.New(clk, espat.ESPAT, espat.Config{})
	w := NewWiFi(c, m, clk, WiFiConfig{
		SSID: "lab", Password: "pw", Host: "10.0.0.2", Port: 3000,
	}, fb)
	return w, m, clk
}

func TestWiFiBringsUpOnceAndSends(t *testing.T) {
	fb := &recordSender{}
	w, m, _ := newWiFi(modemsim.Faults{}, fb)
	for i := 0; i < 3; i++ {
		if err := w.Send(sample); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if len(fb.got) != 0 {
		t.Fatalf("fallback used %d times", len(fb.got))
	}
	joins := 0
	for _, c := range m.Commands() {
		if strings.HasPrefix(c, "AT+CWJAP=") || strings.HasPrefix(c, "AT+CIPSTART=") {
			joins++
		}
	}
	if joins != 2 {
		t.Fatalf("bring-up commands=%d, want one join and one open", joins)
	}
	if len(m.Bodies()) != 3 {
		t.Fatalf("bodies=%d", len(m.Bodies()))
	}
	if !bytes.HasSuffix(m.Bodies()[0], []byte(`{"t":12345,"pA":600,"pB":250,"fan":true}`)) {
		t.Fatalf("body %q", m.Bodies()[0])
	}
	if st := w.Stats(); st.Sent != 3 || st.Fallback != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestWiFiBringUpFailureFallsBackAndWaits(t *testing.T) {
	fb := &recordSender{}
	w, m, clk := newWiFi(modemsim.Faults{FailJoin: true}, fb)

	if err := w.Send(sample); err != nil {
		t.Fatalf("send with working fallback: %v", err)
	}
	if len(fb.got) != 1 || w.State() != espat.Error {
		t.Fatalf("fallback=%d state=%v", len(fb.got), w.State())
	}

	n := len(m.Commands())
	clk.Advance(5000)
	if err := w.Send(sample); err != nil {
		t.Fatal(err)
	}
	if len(m.Commands()) != n {
		t.Fatalf("bring-up retried during back-off: %q", m.Commands()[n:])
	}
	if len(fb.got) != 2 {
		t.Fatalf("fallback=%d", len(fb.got))
	}

	m.SetFaults(modemsim.Faults{})
	clk.Advance(5000)
	if err := w.Send(sample); err != nil {
		t.Fatal(err)
	}
	if len(fb.got) != 2 || len(m.Bodies()) != 1 {
		t.Fatalf("fallback=%d bodies=%d", len(fb.got), len(m.Bodies()))
	}
	if got := m.Commands()[n]; got != "AT+RST" {
		t.Fatalf("recovery began with %q", got)
	}
	st := w.Stats()
	if st.BringUpFailures != 1 || st.Fallback != 2 || st.Sent != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestWiFiSendFailureClosesAndReopens(t *testing.T) {
	fb := &recordSender{}
	w, m, _ := newWiFi(modemsim.Faults{}, fb)
	if err := w.Send(sample); err != nil {
		t.Fatal(err)
	}

	m.SetFaults(modemsim.Faults{FailSend: true})
	if err := w.Send(sample); err != nil {
		t.Fatal(err)
	}
	cmds := m.Commands()
	if cmds[len(cmds)-1] != "AT+CIPCLOSE" {
		t.Fatalf("no close after failed send: %q", cmds)
	}
	if len(fb.got) != 1 {
		t.Fatalf("fallback=%d", len(fb.got))
	}

	m.SetFaults(modemsim.Faults{})
	n := len(cmds)
	if err := w.Send(sample); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(m.Commands()[n], "AT+CIPSTART=") {
		t.Fatalf("session not reopened: %q", m.Commands()[n:])
	}
	if st := w.Stats(); st.SendFailures != 1 || st.Sent != 2 || st.LastErr != errcode.ProtocolError {
		t.Fatalf("stats=%+v", st)
	}
}

func TestWiFiErrorOnlyWhenFallbackFails(t *testing.T) {
	fb := &recordSender{err: errors.New("uart gone")}
	w, _, _ := newWiFi(modemsim.Faults{FailJoin: true}, fb)
	if err := w.Send(sample); err == nil || err.Error() != "uart gone" {
		t.Fatalf("err=%v", err)
	}

	w2, _, _ := newWiFi(modemsim.Faults{FailJoin: true}, nil)
	if err := w2.Send(sample); !errcode.Is(err, errcode.ProtocolError) {
		t.Fatalf("no fallback err=%v", err)
	}
}
