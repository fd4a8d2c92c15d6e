package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codecMap(t *testing.T) *BusMap {
	t.Helper()
	path := writeTempMap(t,
		"rx,0x181,MUSCLE_SENSOR_POS,MUSCLE_SENSOR,10,3,position_raw,0,16,little,false,1,0,0,65535,0,count,\n"+
			"rx,0x181,MUSCLE_SENSOR_POS,MUSCLE_SENSOR,10,3,temp_c,16,8,little,true,0.5,-20,-20,43.5,0,degC,\n"+
			"tx,0x701,LINK_MGMT,,0,1,requested_state,0,4,little,false,1,0,0,3,0,,\n")
	m, err := LoadBusMap(path)
	require.NoError(t, err)
	return m
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := codecMap(t)

	payload, id, err := m.EncodeFrame("MUSCLE_SENSOR_POS", map[string]float64{
		"position_raw": 32768,
		"temp_c":       -5.5,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x181), id)
	require.Len(t, payload, 3)

	vals, err := m.DecodeFrame(id, payload)
	require.NoError(t, err)
	assert.Equal(t, 32768.0, vals["position_raw"])
	assert.InDelta(t, -5.5, vals["temp_c"], 1e-9)
}

func TestEncodeClampsToPhysicalRange(t *testing.T) {
	m := codecMap(t)

	payload, id, err := m.EncodeFrame("MUSCLE_SENSOR_POS", map[string]float64{
		"position_raw": 1e9,
		"temp_c":       -100,
	})
	require.NoError(t, err)

	vals, err := m.DecodeFrame(id, payload)
	require.NoError(t, err)
	assert.Equal(t, 65535.0, vals["position_raw"])
	assert.InDelta(t, -20.0, vals["temp_c"], 1e-9)
}

func TestEncodeUsesSignalDefaults(t *testing.T) {
	m := codecMap(t)

	payload, id, err := m.EncodeFrame("MUSCLE_SENSOR_POS", nil)
	require.NoError(t, err)

	vals, err := m.DecodeFrame(id, payload)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vals["position_raw"])
	assert.InDelta(t, 0.0, vals["temp_c"], 0.5, "default quantized to signal resolution")
}

func TestEncodeBusFrame(t *testing.T) {
	m := codecMap(t)

	f, err := m.EncodeBusFrame("LINK_MGMT", map[string]float64{
		"requested_state": float64(StateOperational),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x701), f.ID)
	assert.Equal(t, uint8(1), f.Length)
	assert.Equal(t, byte(StateOperational), f.Data[0])
}

func TestEncodeUnknownFrame(t *testing.T) {
	m := codecMap(t)
	_, _, err := m.EncodeFrame("NOPE", nil)
	assert.Error(t, err)
}

func TestDecodeShortPayload(t *testing.T) {
	m := codecMap(t)
	_, err := m.DecodeFrame(0x181, []byte{0x01})
	assert.Error(t, err)
}

func TestBitHelpers(t *testing.T) {
	var payload uint64
	payload = setBits(payload, 4, 8, 0xAB)
	assert.Equal(t, uint64(0xAB), getBits(payload, 4, 8))

	// overwrite in place
	payload = setBits(payload, 4, 8, 0x12)
	assert.Equal(t, uint64(0x12), getBits(payload, 4, 8))

	// out-of-range lengths are inert
	assert.Equal(t, payload, setBits(payload, 0, 0, 0xFF))
	assert.Equal(t, uint64(0), getBits(payload, 0, 65))
}

func TestSignedRawConversions(t *testing.T) {
	assert.Equal(t, int64(-1), unsignedToRawInt64(0xFF, 8, true))
	assert.Equal(t, int64(255), unsignedToRawInt64(0xFF, 8, false))
	assert.Equal(t, int64(127), unsignedToRawInt64(0x7F, 8, true))

	assert.Equal(t, uint64(0xFF), rawToUnsigned(-1, 8))
	assert.Equal(t, uint64(0x80), rawToUnsigned(-128, 8))
	assert.Equal(t, uint64(5), rawToUnsigned(5, 8))
}

func TestClampRaw(t *testing.T) {
	assert.Equal(t, int64(255), clampRaw(300, 8, false))
	assert.Equal(t, int64(0), clampRaw(-5, 8, false))
	assert.Equal(t, int64(127), clampRaw(300, 8, true))
	assert.Equal(t, int64(-128), clampRaw(-300, 8, true))
	assert.Equal(t, int64(42), clampRaw(42, 8, true))
}
