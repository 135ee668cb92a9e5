package node

import (
	"context"
	"errors"
	"testing"

	"powernode-go/types"
	"powernode-go/x/timex"
)

type fixedSensor struct {
	r     types.Reading
	reads int
}

func (f *fixedSensor) Read() types.Reading { f.reads++; return f.r }

type recordSender struct {
	got    []types.Sample
	err    error
	onSend func()
}

func (r *recordSender) Send(s types.Sample) error {
	r.got = append(r.got, s)
	if r.onSend != nil {
		r.onSend()
	}
	return r.err
}

type meterFunc func() (uint16, error)

func (f meterFunc) ReadPowerMilliwatts() (uint16, error) { return f() }

func TestControlThreshold(t *testing.T) {
	cases := []struct {
		a, b uint16
		on   bool
	}{
		{0, 0, false},
		{600, 600, false},
		{601, 0, true},
		{0, 601, true},
		{65535, 65535, true},
	}
	for _, tc := range cases {
		act := &PinActuator{}
		n := New(Config{}, timex.NewManual(0), &fixedSensor{r: types.Reading{A: tc.a, B: tc.b}}, act, &recordSender{})
		n.sense(0)
		n.control(10)
		if act.On() != tc.on || n.State().ActuatorOn != tc.on {
			t.Errorf("A=%d B=%d: on=%v want %v", tc.a, tc.b, act.On(), tc.on)
		}
	}
}

func TestDataFlowOverOneSecond(t *testing.T) {
	sensor := &RampSensor{}
	act := &PinActuator{}
	out := &recordSender{}
	n := New(Config{}, timex.NewManual(0), sensor, act, out)
	n.Start(0)
	for now := uint32(1); now <= 1000; now++ {
		n.Step(now)
	}

	want := []types.Sample{
		{TimestampMs: 500, PowerA: 500, PowerB: 500, ActuatorOn: false},
		{TimestampMs: 1000, PowerA: 0, PowerB: 1000, ActuatorOn: true},
	}
	if len(out.got) != len(want) {
		t.Fatalf("reports=%v", out.got)
	}
	for i := range want {
		if out.got[i] != want[i] {
			t.Fatalf("report %d = %+v want %+v", i, out.got[i], want[i])
		}
	}
	if !act.On() {
		t.Fatal("actuator off with B=1000")
	}
}

func TestTaskTableOrder(t *testing.T) {
	n := New(Config{}, timex.NewManual(0), &RampSensor{}, &PinActuator{}, &recordSender{})
	tasks := n.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("tasks=%d", len(tasks))
	}
	names := []string{"sense", "control", "report"}
	periods := []uint32{1, 10, 500}
	for i, tk := range tasks {
		if tk.Name != names[i] || tk.PeriodMs != periods[i] {
			t.Fatalf("task %d = %s/%d", i, tk.Name, tk.PeriodMs)
		}
	}
}

func TestNothingReportedBeforeControl(t *testing.T) {
	out := &recordSender{}
	n := New(Config{ControlPeriodMs: 1000, ReportPeriodMs: 100}, timex.NewManual(0), &RampSensor{}, &PinActuator{}, out)
	n.Start(0)
	for now := uint32(1); now <= 999; now++ {
		n.Step(now)
	}
	if len(out.got) != 0 {
		t.Fatalf("reported %v from an empty mailbox", out.got)
	}
}

func TestSendFailureKeepsRunning(t *testing.T) {
	out := &recordSender{err: errors.New("down")}
	n := New(Config{}, timex.NewManual(0), &RampSensor{}, &PinActuator{}, out)
	n.Start(0)
	for now := uint32(1); now <= 2000; now++ {
		n.Step(now)
	}
	if len(out.got) != 4 {
		t.Fatalf("reports=%d", len(out.got))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := timex.NewManual(0)
	act := &PinActuator{}
	out := &recordSender{onSend: cancel}
	n := New(Config{}, clk, &fixedSensor{r: types.Reading{A: 900}}, act, out)
	n.Run(ctx)
	if len(out.got) != 1 {
		t.Fatalf("reports=%d", len(out.got))
	}
	if act.On() {
		t.Fatal("actuator left on after stop")
	}
}

func TestPairSensorZeroesFailedChannel(t *testing.T) {
	s := &PairSensor{
		A: meterFunc(func() (uint16, error) { return 0, errors.New("nack") }),
		B: meterFunc(func() (uint16, error) { return 420, nil }),
	}
	if r := s.Read(); r != (types.Reading{A: 0, B: 420}) {
		t.Fatalf("reading=%+v", r)
	}
}

func TestRampSensorWraps(t *testing.T) {
	var s RampSensor
	var r types.Reading
	for i := 0; i < 200; i++ {
		r = s.Read()
	}
	if r != (types.Reading{A: 0, B: 1000}) {
		t.Fatalf("after 200 reads: %+v", r)
	}
	if r = s.Read(); r != (types.Reading{A: 5, B: 995}) {
		t.Fatalf("after wrap: %+v", r)
	}
}
