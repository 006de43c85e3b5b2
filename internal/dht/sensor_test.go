package dht

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nerrad567/servo-switch/internal/pigpio"
)

// frameEdges synthesises the edges a DHT11 produces when sending frame,
// starting at tick start.
func frameEdges(start uint32, frame [frameBytes]byte) []pigpio.Edge {
	tick := start
	edges := []pigpio.Edge{{Tick: tick, High: false}} // host start signal
	add := func(d uint32, high bool) {
		tick += d
		edges = append(edges, pigpio.Edge{Tick: tick, High: high})
	}

	add(18000, true) // host releases the line
	add(30, false)   // sensor response low
	add(80, true)    // sensor response high
	add(80, false)   // first bit's low phase
	for i := 0; i < frameBits; i++ {
		width := uint32(27)
		if frame[i/8]&(1<<(7-uint(i%8))) != 0 {
			width = 70
		}
		add(50, true)
		add(width, false)
	}
	add(50, true) // sensor releases the line
	return edges
}

func checksummed(b0, b1, b2, b3 byte) [frameBytes]byte {
	return [frameBytes]byte{b0, b1, b2, b3, b0 + b1 + b2 + b3}
}

// fakeGPIO replays one edge capture per Read attempt.
type fakeGPIO struct {
	captures   [][]pigpio.Edge
	captureErr error
	calls      int
	writes     []bool
	modes      map[uint]pigpio.Mode
	pulls      map[uint]pigpio.Pull
}

func newFakeGPIO(captures ...[]pigpio.Edge) *fakeGPIO {
	return &fakeGPIO{
		captures: captures,
		modes:    make(map[uint]pigpio.Mode),
		pulls:    make(map[uint]pigpio.Pull),
	}
}

func (f *fakeGPIO) SetMode(_ context.Context, pin uint, mode pigpio.Mode) error {
	f.modes[pin] = mode
	return nil
}

func (f *fakeGPIO) SetPullUpDown(_ context.Context, pin uint, pull pigpio.Pull) error {
	f.pulls[pin] = pull
	return nil
}

func (f *fakeGPIO) Write(_ context.Context, _ uint, high bool) error {
	f.writes = append(f.writes, high)
	return nil
}

func (f *fakeGPIO) Capture(ctx context.Context, _ uint, _ time.Duration, trigger func(context.Context) error) ([]pigpio.Edge, error) {
	if err := trigger(ctx); err != nil {
		return nil, err
	}
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	i := f.calls
	f.calls++
	if i >= len(f.captures) {
		return nil, nil
	}
	return f.captures[i], nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    [frameBytes]byte
		wantTemp float64
		wantHum  float64
	}{
		{name: "typical", frame: checksummed(45, 0, 23, 4), wantTemp: 23.4, wantHum: 45},
		{name: "humidity tenths", frame: checksummed(60, 5, 19, 0), wantTemp: 19, wantHum: 60.5},
		{name: "negative temperature", frame: checksummed(80, 0, 2, 0x83), wantTemp: -2.3, wantHum: 80},
		{name: "all zero", frame: checksummed(0, 0, 0, 0), wantTemp: 0, wantHum: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := decodeFrame(frameEdges(1000, tt.frame))
			if err != nil {
				t.Fatalf("decodeFrame() error = %v", err)
			}
			if frame != tt.frame {
				t.Fatalf("decodeFrame() = %v, want %v", frame, tt.frame)
			}

			r := parseFrame(frame)
			if !r.Valid {
				t.Error("Valid = false, want true")
			}
			if !approx(r.TemperatureC, tt.wantTemp) {
				t.Errorf("TemperatureC = %v, want %v", r.TemperatureC, tt.wantTemp)
			}
			if !approx(r.HumidityPercent, tt.wantHum) {
				t.Errorf("HumidityPercent = %v, want %v", r.HumidityPercent, tt.wantHum)
			}
		})
	}
}

func TestDecodeFrame_TickWraparound(t *testing.T) {
	want := checksummed(50, 0, 21, 0)
	frame, err := decodeFrame(frameEdges(math.MaxUint32-2000, want))
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if frame != want {
		t.Errorf("decodeFrame() = %v, want %v", frame, want)
	}
}

func TestDecodeFrame_Checksum(t *testing.T) {
	bad := checksummed(45, 0, 23, 4)
	bad[4]++

	_, err := decodeFrame(frameEdges(0, bad))
	if !errors.Is(err, ErrChecksum) {
		t.Errorf("decodeFrame() error = %v, want ErrChecksum", err)
	}
}

func TestDecodeFrame_Incomplete(t *testing.T) {
	edges := frameEdges(0, checksummed(45, 0, 23, 4))

	_, err := decodeFrame(edges[:40])
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("decodeFrame() error = %v, want ErrTimeout", err)
	}

	if _, err := decodeFrame(nil); !errors.Is(err, ErrTimeout) {
		t.Errorf("decodeFrame(nil) error = %v, want ErrTimeout", err)
	}
}

func TestSensor_Bind(t *testing.T) {
	gpio := newFakeGPIO()
	s := New(gpio, Config{Pin: 14})

	if err := s.Bind(context.Background()); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if gpio.modes[14] != pigpio.ModeInput {
		t.Errorf("mode = %v, want input", gpio.modes[14])
	}
	if gpio.pulls[14] != pigpio.PullUp {
		t.Errorf("pull = %v, want up", gpio.pulls[14])
	}
	if s.Pin() != 14 {
		t.Errorf("Pin() = %d, want 14", s.Pin())
	}
}

func TestSensor_Read(t *testing.T) {
	gpio := newFakeGPIO(frameEdges(0, checksummed(45, 0, 23, 4)))
	s := New(gpio, Config{Pin: 14})

	r, err := s.Read(context.Background(), 5)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !r.Valid || !approx(r.TemperatureC, 23.4) || !approx(r.HumidityPercent, 45) {
		t.Errorf("Read() = %+v, want valid 23.4C 45%%", r)
	}
	if gpio.calls != 1 {
		t.Errorf("attempts = %d, want 1", gpio.calls)
	}
	if len(gpio.writes) != 1 || gpio.writes[0] {
		t.Errorf("writes = %v, want a single low start signal", gpio.writes)
	}
	if gpio.modes[14] != pigpio.ModeInput {
		t.Error("line not released to input after start signal")
	}
}

func TestSensor_Read_RetriesAfterTimeout(t *testing.T) {
	gpio := newFakeGPIO(nil, nil, frameEdges(0, checksummed(40, 0, 20, 0)))
	s := New(gpio, Config{Pin: 14})

	r, err := s.Read(context.Background(), 5)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !r.Valid || !approx(r.TemperatureC, 20) {
		t.Errorf("Read() = %+v, want valid 20C", r)
	}
	if gpio.calls != 3 {
		t.Errorf("attempts = %d, want 3", gpio.calls)
	}
}

func TestSensor_Read_Timeout(t *testing.T) {
	gpio := newFakeGPIO()
	s := New(gpio, Config{Pin: 14})

	_, err := s.Read(context.Background(), 5)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Read() error = %v, want ErrTimeout", err)
	}
	if gpio.calls != 6 {
		t.Errorf("attempts = %d, want 6 (1 + 5 retries)", gpio.calls)
	}
}

func TestSensor_Read_ChecksumExhausted(t *testing.T) {
	bad := checksummed(45, 0, 23, 4)
	bad[4]++
	edges := frameEdges(0, bad)
	gpio := newFakeGPIO(edges, edges, edges)
	s := New(gpio, Config{Pin: 14})

	r, err := s.Read(context.Background(), 2)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.Valid {
		t.Error("Valid = true, want false for corrupt frames")
	}
	if gpio.calls != 3 {
		t.Errorf("attempts = %d, want 3", gpio.calls)
	}
}

func TestSensor_Read_HardwareErrorNotRetried(t *testing.T) {
	gpio := newFakeGPIO()
	gpio.captureErr = pigpio.ErrNotConnected
	s := New(gpio, Config{Pin: 14})

	_, err := s.Read(context.Background(), 5)
	if !errors.Is(err, pigpio.ErrNotConnected) {
		t.Fatalf("Read() error = %v, want ErrNotConnected", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("hardware error reported as timeout")
	}
}

func TestSensor_Read_ContextCancelled(t *testing.T) {
	gpio := newFakeGPIO()
	s := New(gpio, Config{Pin: 14})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Read(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}
