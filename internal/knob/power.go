package knob

import "sync"

// Power reports battery and display state.
type Power interface {
	Charging() bool
	DisplaySleeping() bool
	BatteryLevel() int
}

// StaticPower is a Power whose values are set by its owner. The zero value is
// a discharged battery with the display awake.
type StaticPower struct {
	mu       sync.RWMutex
	charging bool
	sleeping bool
	level    int
}

// NewStaticPower returns a StaticPower for a mains-powered host.
func NewStaticPower() *StaticPower {
	return &StaticPower{charging: true, level: 100}
}

func (p *StaticPower) Charging() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.charging
}

func (p *StaticPower) DisplaySleeping() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sleeping
}

func (p *StaticPower) BatteryLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// SetCharging sets the charging state.
func (p *StaticPower) SetCharging(charging bool) {
	p.mu.Lock()
	p.charging = charging
	p.mu.Unlock()
}

// SetDisplaySleeping sets the display sleep state.
func (p *StaticPower) SetDisplaySleeping(sleeping bool) {
	p.mu.Lock()
	p.sleeping = sleeping
	p.mu.Unlock()
}

// SetBatteryLevel sets the battery percentage, clamped to 0..100.
func (p *StaticPower) SetBatteryLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}
