package utils

import "sort"

type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64
	Max        float64
	Default    float64
	Unit       string
	Comment    string
	Endianness string // only "little" supported
}

type FrameDef struct {
	ID      uint32
	Name    string
	DLC     int
	Device  string
	CycleMS int
	// Direction is "rx" for frames carrying device inputs toward the
	// master and "tx" for frames carrying master outputs to a device.
	Direction string
	Signals   []SignalDef
}

// DeviceDef groups the frames belonging to one bus device. A sensor-only
// device has just an input frame; a valve-only device just an output frame.
type DeviceDef struct {
	Name        string
	InputFrame  *FrameDef
	OutputFrame *FrameDef
}

type BusMap struct {
	ByID     map[uint32]*FrameDef
	ByName   map[string]*FrameDef
	ByDevice map[string]*DeviceDef
}

func (m *BusMap) FrameNames() []string {
	out := make([]string, 0, len(m.ByName))
	for k := range m.ByName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *BusMap) DeviceNames() []string {
	out := make([]string, 0, len(m.ByDevice))
	for k := range m.ByDevice {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
