package device

import (
	"strconv"

	"github.com/ivlev/marionette/internal/system"
	"github.com/ivlev/marionette/internal/timeline"
)

// Servo is one PWM channel of the servo board
type Servo struct {
	Name string `json:"name"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
	Step int    `json:"step"`
}

// GPIO is a binary output driven high when its motor value exceeds 90
type GPIO struct {
	Name string `json:"name"`
}

// Profile maps motor ids to the hardware outputs of a marionette
type Profile struct {
	Servos map[int]Servo
	GPIOs  map[int]GPIO
	// Inverted servos are mounted mirrored: angle = 180 - value
	Inverted map[string]bool
}

// DefaultProfile is the wiring of the stage marionette
func DefaultProfile() Profile {
	return Profile{
		Servos: map[int]Servo{
			0:  {Name: "ALa", Min: 0, Max: 120, Step: 10},
			1:  {Name: "ALiR", Min: 180, Max: 38, Step: -10},
			2:  {Name: "BL", Min: 0, Max: 180, Step: 60},
			3:  {Name: "SLR", Min: 180, Max: 120, Step: -60},
			4:  {Name: "ARaR", Min: 140, Max: 28, Step: -10},
			5:  {Name: "ARi", Min: 0, Max: 140, Step: 10},
			6:  {Name: "BRR", Min: 0, Max: 180, Step: 60},
			7:  {Name: "SR", Min: 0, Max: 60, Step: 60},
			8:  {Name: "K", Min: 0, Max: 180, Step: 60},
			9:  {Name: "DreiDrachen", Min: 0, Max: 180, Step: 60},
			10: {Name: "WippDrache", Min: 130, Max: 150, Step: 60},
			11: {Name: "LangDrache", Min: 65, Max: 180, Step: 60},
			12: {Name: "KopfDrache", Min: 0, Max: 60, Step: 60},
			13: {Name: "PflanzenDrache", Min: 70, Max: 180, Step: 60},
			14: {Name: "KnopfSchlange", Min: 30, Max: 180, Step: 60},
			15: {Name: "FressDrache", Min: 0, Max: 180, Step: 60},
		},
		GPIOs: map[int]GPIO{
			4:  {Name: "1FlugDrache"},
			11: {Name: "LedGruen"},
			14: {Name: "Schwanzbeisser"},
			15: {Name: "Reiter"},
			17: {Name: "Reserve"},
			18: {Name: "HubAb"},
			22: {Name: "HubEin"},
			23: {Name: "2Flugdrachen"},
			25: {Name: "LedRot"},
			27: {Name: "HubAuf"},
		},
		Inverted: map[string]bool{"SR": true, "ALiR": true, "ARaR": true, "BRR": true},
	}
}

// Outputs is what a pose drives on the hardware
type Outputs struct {
	Servos map[int]int  `json:"servos"`
	GPIOs  map[int]bool `json:"gpios"`
}

// Outputs converts a pose into servo angles and GPIO levels. Motors that
// are not wired are ignored.
func (p Profile) Outputs(pose timeline.Pose) Outputs {
	out := Outputs{Servos: map[int]int{}, GPIOs: map[int]bool{}}
	for ch, s := range p.Servos {
		v, ok := pose[s.Name]
		if !ok {
			continue
		}
		if p.Inverted[s.Name] {
			v = 180 - v
		}
		out.Servos[ch] = min(max(v, 0), 180)
	}
	for pin, g := range p.GPIOs {
		if v, ok := pose[g.Name]; ok {
			out.GPIOs[pin] = v > 90
		}
	}
	return out
}

// Block is the device configuration attached to exported documents
func (p Profile) Block(host *system.HostInfo) map[string]any {
	servos := make(map[string]Servo, len(p.Servos))
	for ch, s := range p.Servos {
		servos[strconv.Itoa(ch)] = s
	}
	gpios := make(map[string]GPIO, len(p.GPIOs))
	for pin, g := range p.GPIOs {
		gpios[strconv.Itoa(pin)] = g
	}

	block := map[string]any{
		"servos": servos,
		"gpios":  gpios,
	}
	if host != nil {
		block["host"] = host
	}
	return block
}
