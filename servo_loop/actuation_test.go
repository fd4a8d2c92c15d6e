package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActuateDeadbandPolicy(t *testing.T) {
	cases := []struct {
		name     string
		signal   float64
		deadband float64
		want     ValveCommand
	}{
		{"positive beyond deadband extends", 0.02, 0.01, ValveExtend},
		{"negative beyond deadband retracts", -0.02, 0.01, ValveRetract},
		{"zero is neutral", 0.0, 0.01, ValveNeutral},
		{"exactly at boundary is neutral", 0.01, 0.01, ValveNeutral},
		{"exactly at negative boundary is neutral", -0.01, 0.01, ValveNeutral},
		{"just past boundary extends", 0.010001, 0.01, ValveExtend},
		{"zero deadband extends on any positive", 1e-9, 0.0, ValveExtend},
		{"zero deadband retracts on any negative", -1e-9, 0.0, ValveRetract},
		{"zero deadband neutral only at zero", 0.0, 0.0, ValveNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Actuate(tc.signal, tc.deadband))
		})
	}
}

func TestValveCommandBitPatterns(t *testing.T) {
	assert.Equal(t, byte(0b00), byte(ValveNeutral))
	assert.Equal(t, byte(0b01), byte(ValveRetract))
	assert.Equal(t, byte(0b10), byte(ValveExtend))
}

func TestValveCommandString(t *testing.T) {
	assert.Equal(t, "neutral", ValveNeutral.String())
	assert.Equal(t, "retract", ValveRetract.String())
	assert.Equal(t, "extend", ValveExtend.String())
	assert.Equal(t, "invalid", ValveCommand(0b11).String())
}
