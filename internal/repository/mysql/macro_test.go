package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func TestPivot_EveryIndicatorLandsInItsColumn(t *testing.T) {
	r := NewMacroReader(nil)

	rows := []macroRow{
		{IndicatorName: "VIX", IndicatorDate: testDay, Value: 18.5},
		{IndicatorName: "SPX", IndicatorDate: testDay, Value: 6200.1},
		{IndicatorName: "DXY", IndicatorDate: testDay, Value: 104.2},
		{IndicatorName: "TNX", IndicatorDate: testDay, Value: 4.35},
		{IndicatorName: "GOLD", IndicatorDate: testDay, Value: 2900.0},
		{IndicatorName: "FEDFUNDS", IndicatorDate: testDay, Value: 4.5},
	}

	record := r.pivot(rows, testDay)
	require.NotNil(t, record)
	assert.Equal(t, testDay, record.Date)

	require.NotNil(t, record.VIX)
	assert.Equal(t, 18.5, *record.VIX)
	require.NotNil(t, record.SPX)
	assert.Equal(t, 6200.1, *record.SPX)
	require.NotNil(t, record.DXY)
	assert.Equal(t, 104.2, *record.DXY)
	require.NotNil(t, record.TNX)
	assert.Equal(t, 4.35, *record.TNX)
	require.NotNil(t, record.Gold)
	assert.Equal(t, 2900.0, *record.Gold)
	require.NotNil(t, record.FedFunds)
	assert.Equal(t, 4.5, *record.FedFunds)
}

func TestPivot_NormalizesIndicatorNames(t *testing.T) {
	r := NewMacroReader(nil)

	rows := []macroRow{
		{IndicatorName: " vix ", IndicatorDate: testDay, Value: 20.0},
		{IndicatorName: "FedFunds", IndicatorDate: testDay, Value: 4.25},
	}

	record := r.pivot(rows, testDay)
	require.NotNil(t, record)
	require.NotNil(t, record.VIX)
	assert.Equal(t, 20.0, *record.VIX)
	require.NotNil(t, record.FedFunds)
	assert.Equal(t, 4.25, *record.FedFunds)
}

func TestPivot_DropsUnknownNames(t *testing.T) {
	r := NewMacroReader(nil)

	rows := []macroRow{
		{IndicatorName: "VIX", IndicatorDate: testDay, Value: 18.5},
		{IndicatorName: "CPI_YOY", IndicatorDate: testDay, Value: 2.9},
	}

	record := r.pivot(rows, testDay)
	require.NotNil(t, record)
	require.NotNil(t, record.VIX)
	assert.Nil(t, record.SPX)
	assert.Nil(t, record.DXY)
	assert.Nil(t, record.TNX)
	assert.Nil(t, record.Gold)
	assert.Nil(t, record.FedFunds)
}

func TestPivot_NilWhenNothingRecognized(t *testing.T) {
	r := NewMacroReader(nil)

	assert.Nil(t, r.pivot(nil, testDay))
	assert.Nil(t, r.pivot([]macroRow{
		{IndicatorName: "CPI_YOY", IndicatorDate: testDay, Value: 2.9},
	}, testDay))
}
