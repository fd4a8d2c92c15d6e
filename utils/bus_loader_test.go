package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const busMapHeader = "direction,frame_id,frame_name,device_name,cycle_ms,dlc," +
	"signal_name,start_bit,bit_length,endianness,signed,factor,offset,min,max,default,unit,comment\n"

func writeTempMap(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bus_map.csv")
	require.NoError(t, os.WriteFile(path, []byte(busMapHeader+rows), 0644))
	return path
}

func TestLoadBusMap(t *testing.T) {
	path := writeTempMap(t,
		"rx,0x181,MUSCLE_SENSOR_POS,MUSCLE_SENSOR,10,2,position_raw,0,16,little,false,1,0,0,65535,0,count,transducer word\n"+
			"tx,0x201,MUSCLE_VALVE_CMD,MUSCLE_VALVE,10,1,valve_pattern,0,2,little,false,1,0,0,3,0,,2-bit pattern\n"+
			"tx,0x701,LINK_MGMT,,0,1,requested_state,0,4,little,false,1,0,0,3,0,,lifecycle request\n")

	m, err := LoadBusMap(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"LINK_MGMT", "MUSCLE_SENSOR_POS", "MUSCLE_VALVE_CMD"}, m.FrameNames())
	assert.Equal(t, []string{"MUSCLE_SENSOR", "MUSCLE_VALVE"}, m.DeviceNames(), "management frame belongs to no device")

	sensor, err := m.DeviceByName("MUSCLE_SENSOR")
	require.NoError(t, err)
	require.NotNil(t, sensor.InputFrame)
	assert.Nil(t, sensor.OutputFrame)
	assert.Equal(t, uint32(0x181), sensor.InputFrame.ID)
	assert.Equal(t, 2, sensor.InputFrame.DLC)

	valve, err := m.DeviceByName("MUSCLE_VALVE")
	require.NoError(t, err)
	assert.Nil(t, valve.InputFrame)
	require.NotNil(t, valve.OutputFrame)
	assert.Equal(t, "valve_pattern", valve.OutputFrame.Signals[0].Name)

	fd, err := m.FrameByID(0x701)
	require.NoError(t, err)
	assert.Equal(t, "LINK_MGMT", fd.Name)
}

func TestLoadBusMapGroupsSignalsByFrame(t *testing.T) {
	path := writeTempMap(t,
		"rx,0x181,MUSCLE_SENSOR_POS,MUSCLE_SENSOR,10,4,status,16,8,little,false,1,0,0,255,0,,\n"+
			"rx,0x181,MUSCLE_SENSOR_POS,MUSCLE_SENSOR,10,4,position_raw,0,16,little,false,1,0,0,65535,0,count,\n"+
			"tx,0x201,MUSCLE_VALVE_CMD,MUSCLE_VALVE,10,1,valve_pattern,0,2,little,false,1,0,0,3,0,,\n")

	m, err := LoadBusMap(path)
	require.NoError(t, err)

	fd, err := m.FrameByName("MUSCLE_SENSOR_POS")
	require.NoError(t, err)
	require.Len(t, fd.Signals, 2)
	// sorted by start bit
	assert.Equal(t, "position_raw", fd.Signals[0].Name)
	assert.Equal(t, "status", fd.Signals[1].Name)
}

func TestLoadBusMapRejections(t *testing.T) {
	cases := []struct {
		name string
		rows string
	}{
		{"bad direction", "sideways,0x181,F,D,10,2,s,0,16,little,false,1,0,0,1,0,,\n"},
		{"bad frame id", "rx,zzz,F,D,10,2,s,0,16,little,false,1,0,0,1,0,,\n"},
		{"big endian", "rx,0x181,F,D,10,2,s,0,16,big,false,1,0,0,1,0,,\n"},
		{"zero bit length", "rx,0x181,F,D,10,2,s,0,0,little,false,1,0,0,1,0,,\n"},
		{"dlc too large", "rx,0x181,F,D,10,9,s,0,16,little,false,1,0,0,1,0,,\n"},
		{"inconsistent dlc", "rx,0x181,F,D,10,2,a,0,8,little,false,1,0,0,1,0,,\nrx,0x181,F,D,10,4,b,8,8,little,false,1,0,0,1,0,,\n"},
		{"inconsistent direction", "rx,0x181,F,D,10,2,a,0,8,little,false,1,0,0,1,0,,\ntx,0x181,F,D,10,2,b,8,8,little,false,1,0,0,1,0,,\n"},
		{"two rx frames one device", "rx,0x181,F1,D,10,2,a,0,8,little,false,1,0,0,1,0,,\nrx,0x182,F2,D,10,2,b,0,8,little,false,1,0,0,1,0,,\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBusMap(writeTempMap(t, tc.rows))
			assert.Error(t, err)
		})
	}
}

func TestLoadBusMapMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus_map.csv")
	require.NoError(t, os.WriteFile(path, []byte("direction,frame_id\nrx,0x1\n"), 0644))
	_, err := LoadBusMap(path)
	assert.Error(t, err)
}

func TestLookupErrors(t *testing.T) {
	m := &BusMap{ByID: map[uint32]*FrameDef{}, ByName: map[string]*FrameDef{}, ByDevice: map[string]*DeviceDef{}}
	_, err := m.FrameByName("nope")
	assert.Error(t, err)
	_, err = m.FrameByID(0x99)
	assert.Error(t, err)
	_, err = m.DeviceByName("nope")
	assert.Error(t, err)
}
