package ingest

import "time"

// Meter integrates total power into energy for the current local day using
// the trapezoid rule between consecutive readings.
type Meter struct {
	maxGap time.Duration

	have   bool
	last   time.Time
	lastMw uint32
	day    int // y*1000 + yearday of the last reading
	mWh    float64
}

// NewMeter returns a meter that skips intervals longer than maxGap.
func NewMeter(maxGap time.Duration) *Meter {
	return &Meter{maxGap: maxGap}
}

// Add records totalMw at the given time. A reading older than the previous
// one is ignored. Crossing local midnight starts a new day at zero.
func (m *Meter) Add(at time.Time, totalMw uint32) {
	day := dayOf(at)
	if !m.have {
		m.have, m.last, m.lastMw, m.day = true, at, totalMw, day
		return
	}
	if at.Before(m.last) {
		return
	}
	if day != m.day {
		m.mWh = 0
		m.day = day
	} else if dt := at.Sub(m.last); dt <= m.maxGap {
		m.mWh += (float64(m.lastMw) + float64(totalMw)) / 2 * dt.Hours()
	}
	m.last, m.lastMw = at, totalMw
}

// TodayMWh returns the energy so far today in milliwatt-hours.
func (m *Meter) TodayMWh() float64 { return m.mWh }

// TodayKWh returns the energy so far today in kilowatt-hours.
func (m *Meter) TodayKWh() float64 { return m.mWh / 1e6 }

func dayOf(t time.Time) int {
	t = t.Local()
	return t.Year()*1000 + t.YearDay()
}
