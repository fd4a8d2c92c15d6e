package utils

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// MgmtFrameName is the optional management frame used to announce lifecycle
// transitions on the bus. Maps without it still work; transitions are then
// master-local bookkeeping only.
const MgmtFrameName = "LINK_MGMT"

// SocketCANMaster implements BusMaster over a SocketCAN interface. Frames
// arrive asynchronously; a background goroutine keeps the latest payload per
// frame ID and Exchange snapshots those payloads into device input buffers,
// so the control loop sees one coherent process image per period.
type SocketCANMaster struct {
	txConn net.Conn
	rxConn net.Conn
	tx     *socketcan.Transmitter

	bmap *BusMap
	log  *Logger

	state   LinkState
	devices map[string]*Device

	mu     sync.Mutex
	latest map[uint32]can.Frame

	done chan struct{}
}

func NewSocketCANMaster(ctx context.Context, iface string, bmap *BusMap, log *Logger) (*SocketCANMaster, error) {
	txConn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial (tx): %w", err)
	}
	rxConn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		txConn.Close()
		return nil, fmt.Errorf("socketcan dial (rx): %w", err)
	}

	m := &SocketCANMaster{
		txConn:  txConn,
		rxConn:  rxConn,
		tx:      socketcan.NewTransmitter(txConn),
		bmap:    bmap,
		log:     log,
		state:   StateIdle,
		devices: make(map[string]*Device, len(bmap.ByDevice)),
		latest:  make(map[uint32]can.Frame),
		done:    make(chan struct{}),
	}

	for name, def := range bmap.ByDevice {
		dev := &Device{Name: name}
		if def.InputFrame != nil {
			dev.Inputs = make([]byte, def.InputFrame.DLC)
		}
		if def.OutputFrame != nil {
			dev.Outputs = make([]byte, def.OutputFrame.DLC)
		}
		m.devices[name] = dev
	}

	go m.receiveLoop()

	return m, nil
}

// receiveLoop drains the socket and retains the newest frame per ID.
func (m *SocketCANMaster) receiveLoop() {
	m.log.Debug("RX loop started")
	defer m.log.Debug("RX loop stopped")

	recv := socketcan.NewReceiver(m.rxConn)
	for recv.Receive() {
		frame := recv.Frame()
		m.mu.Lock()
		m.latest[frame.ID] = frame
		m.mu.Unlock()
		m.log.Trace("RX id=0x%X len=%d data=% X", frame.ID, frame.Length, frame.Data[:frame.Length])
	}
	if err := recv.Err(); err != nil {
		select {
		case <-m.done:
			// closed during shutdown, not an error
		default:
			m.log.Error("RX error: %v", err)
		}
	}
}

func (m *SocketCANMaster) RequestState(ctx context.Context, target LinkState) error {
	if err := CheckTransition(m.state, target); err != nil {
		return err
	}

	if fd, err := m.bmap.FrameByName(MgmtFrameName); err == nil {
		frame, err := m.bmap.EncodeBusFrame(fd.Name, map[string]float64{
			"requested_state": float64(target),
		})
		if err != nil {
			return fmt.Errorf("encode %s: %w", MgmtFrameName, err)
		}
		if err := m.tx.TransmitFrame(ctx, frame); err != nil {
			return fmt.Errorf("transmit %s: %w", MgmtFrameName, err)
		}
	}

	m.log.Info("Link state %s -> %s", m.state, target)
	m.state = target
	return nil
}

func (m *SocketCANMaster) Exchange(ctx context.Context) error {
	// Outputs take effect on the wire only in the operational state;
	// safe-operational exchanges refresh inputs alone.
	if m.state == StateOperational {
		for name, dev := range m.devices {
			def := m.bmap.ByDevice[name]
			if def.OutputFrame == nil {
				continue
			}
			var frame can.Frame
			frame.ID = def.OutputFrame.ID
			frame.Length = uint8(len(dev.Outputs))
			copy(frame.Data[:], dev.Outputs)
			if err := m.tx.TransmitFrame(ctx, frame); err != nil {
				return fmt.Errorf("transmit %s (0x%X): %w", def.OutputFrame.Name, frame.ID, err)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, dev := range m.devices {
		def := m.bmap.ByDevice[name]
		if def.InputFrame == nil {
			continue
		}
		frame, ok := m.latest[def.InputFrame.ID]
		if !ok {
			continue
		}
		n := copy(dev.Inputs, frame.Data[:frame.Length])
		if n < len(dev.Inputs) {
			for i := n; i < len(dev.Inputs); i++ {
				dev.Inputs[i] = 0
			}
		}
		dev.InputValid = true
	}
	return nil
}

func (m *SocketCANMaster) Device(name string) (*Device, bool) {
	dev, ok := m.devices[name]
	return dev, ok
}

func (m *SocketCANMaster) State() LinkState {
	return m.state
}

// DecodeInputs returns the physical signal values of a device's current
// input buffer, for diagnostics.
func (m *SocketCANMaster) DecodeInputs(name string) (map[string]float64, error) {
	dev, ok := m.devices[name]
	if !ok || !dev.InputValid {
		return nil, fmt.Errorf("device %q has no valid input", name)
	}
	def := m.bmap.ByDevice[name]
	return m.bmap.DecodeFrame(def.InputFrame.ID, dev.Inputs)
}

func (m *SocketCANMaster) Close() error {
	close(m.done)
	if m.rxConn != nil {
		_ = m.rxConn.Close()
	}
	if m.txConn != nil {
		return m.txConn.Close()
	}
	return nil
}
