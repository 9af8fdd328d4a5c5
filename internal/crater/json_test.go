package crater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/mare-crater-map/internal/domain"
)

func TestJSONSource_Read(t *testing.T) {
	path := writeFile(t, "craters.json", `[
		{"longitude": -17.2, "latitude": 33.1, "size": 4.2, "polygon_name": "Mare Imbrium"},
		{"longitude": "31.4", "lattitude": "8.5", "size": "0.5"},
		{"longitude": 10, "latitude": 1, "lattitude": 99, "diameter": 2, "depth": 0.3, "timestep": 2, "erased_step": 5},
		{"longitude": 10, "latitude": 1},
		{"longitude": 200, "latitude": 1, "size": 1},
		{"longitude": 1, "latitude": 1, "size": ""}
	]`)

	records, report, err := JSONSource{Path: path}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Read)
	assert.Equal(t, 3, report.Rejected)
	require.Len(t, records, 3)

	assert.InEpsilon(t, -17.2, records[0].Longitude, 1e-9)
	assert.Equal(t, "mare_imbrium", records[0].RegionKey)
	assert.Nil(t, records[0].CreatedStep)

	assert.InEpsilon(t, 8.5, records[1].Latitude, 1e-9, "lattitude alias")
	assert.InEpsilon(t, 0.5, records[1].Diameter, 1e-9)
	assert.Empty(t, records[1].RegionKey)

	assert.InEpsilon(t, 1.0, records[2].Latitude, 1e-9, "latitude wins over lattitude")
	assert.Equal(t, 2, records[2].Created())
	erased, ok := records[2].Erased()
	assert.True(t, ok)
	assert.Equal(t, 5, erased)
	require.NotNil(t, records[2].Depth)
	assert.InEpsilon(t, 0.3, *records[2].Depth, 1e-9)
}

func TestJSONSource_StepValidation(t *testing.T) {
	path := writeFile(t, "craters.json", `[
		{"longitude": 1, "latitude": 1, "size": 2, "timestep": 0, "erased_step": "inf"},
		{"longitude": 1, "latitude": 1, "size": 2, "timestep": "NaN"},
		{"longitude": 1, "latitude": 1, "size": 2, "created_step": -1},
		{"longitude": 1, "latitude": 1, "size": 2, "timestep": 1.5},
		{"longitude": 1, "latitude": 1, "size": 2, "timestep": 1, "erased_step": "-inf"},
		{"longitude": 1, "latitude": 1, "size": 2, "created_step": 3, "erased_step": 8}
	]`)

	records, report, err := JSONSource{Path: path}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Read)
	assert.Equal(t, 4, report.Rejected)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].ErasedStep)
	assert.True(t, records[0].VisibleAt(500))

	assert.Equal(t, 3, records[1].Created())
	step, ok := records[1].Erased()
	assert.True(t, ok)
	assert.Equal(t, 8, step)
}

func TestJSONSource_Kilometers(t *testing.T) {
	path := writeFile(t, "craters.json", `[{"longitude": 0, "latitude": 0, "size": 0.004}]`)

	records, _, err := JSONSource{Path: path, Unit: domain.Kilometers}.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InEpsilon(t, 4.0, records[0].Diameter, 1e-9)
}

func TestJSONSource_Malformed(t *testing.T) {
	path := writeFile(t, "craters.json", `{"not": "an array"}`)
	_, _, err := JSONSource{Path: path}.Read(context.Background())
	assert.Error(t, err)

	path = writeFile(t, "craters.json", `[{"longitude": "east", "latitude": 0, "size": 1}]`)
	_, _, err = JSONSource{Path: path}.Read(context.Background())
	assert.Error(t, err)
}
