package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramFile() Document {
	return Document{
		"id": "param-checkout",
		"values": []interface{}{
			map[string]interface{}{"window_from": "2024-02-01", "mean": 0.42},
			map[string]interface{}{"window_from": "2024-01-01", "mean": 0.38},
		},
		"meta": map[string]interface{}{
			"source": "analytics",
		},
	}
}

func TestGetDottedPath(t *testing.T) {
	value, found, err := Get(paramFile(), "meta.source")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "analytics", value)
}

func TestGetMissingPath(t *testing.T) {
	_, found, err := Get(paramFile(), "meta.owner")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = Get(paramFile(), "nothing.at.all")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIndexedElement(t *testing.T) {
	value, found, err := Get(paramFile(), "values[1].mean")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.38, value)
}

func TestGetLatestSelectsMaxWindowFromNotPosition(t *testing.T) {
	// The newest entry sits first: order in the array must not matter.
	value, found, err := Get(paramFile(), "values[latest].mean")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.42, value)
}

func TestGetLatestAcceptsFullTimestamps(t *testing.T) {
	doc := Document{
		"values": []interface{}{
			map[string]interface{}{"window_from": "2024-03-01T09:00:00Z", "mean": 0.1},
			map[string]interface{}{"window_from": "2024-03-01T12:00:00Z", "mean": 0.2},
		},
	}
	value, found, err := Get(doc, "values[latest].mean")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.2, value)
}

func TestGetLatestTieKeepsEarliestIndex(t *testing.T) {
	doc := Document{
		"values": []interface{}{
			map[string]interface{}{"window_from": "2024-01-01", "mean": 0.1},
			map[string]interface{}{"window_from": "2024-01-01", "mean": 0.2},
		},
	}
	value, _, err := Get(doc, "values[latest].mean")
	require.NoError(t, err)
	assert.Equal(t, 0.1, value)
}

func TestGetAppendSegmentIsWriteOnly(t *testing.T) {
	_, _, err := Get(paramFile(), "values[]")
	require.Error(t, err)
}

func TestSetCreatesIntermediateObjects(t *testing.T) {
	doc := Document{}
	require.NoError(t, Set(doc, "p.mean", 0.5))
	value, found, err := Get(doc, "p.mean")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.5, value)
}

func TestSetThroughLatest(t *testing.T) {
	doc := paramFile()
	require.NoError(t, Set(doc, "values[latest].mean", 0.9))

	value, _, err := Get(doc, "values[0].mean")
	require.NoError(t, err)
	assert.Equal(t, 0.9, value)

	// The older entry is untouched.
	value, _, err = Get(doc, "values[1].mean")
	require.NoError(t, err)
	assert.Equal(t, 0.38, value)
}

func TestSetAppendsNewElement(t *testing.T) {
	doc := paramFile()
	entry := map[string]interface{}{"window_from": "2024-03-01", "mean": 0.5}
	require.NoError(t, Set(doc, "values[]", entry))

	arr := doc["values"].([]interface{})
	require.Len(t, arr, 3)
	assert.Equal(t, entry, arr[2])

	// After the append, the latest selector picks the new entry.
	value, _, err := Get(doc, "values[latest].mean")
	require.NoError(t, err)
	assert.Equal(t, 0.5, value)
}

func TestSetAppendCreatesArray(t *testing.T) {
	doc := Document{}
	require.NoError(t, Set(doc, "schedules[]", map[string]interface{}{"window_from": "2024-01-01"}))
	require.Len(t, doc["schedules"], 1)
}

func TestSetErrors(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"index out of range", "values[9].mean"},
		{"latest on empty array", "empty[latest].mean"},
		{"scalar in the middle", "id.nested"},
		{"non-terminal append", "values[].mean"},
		{"empty path", ""},
		{"bad selector", "values[x].mean"},
	}

	doc := paramFile()
	doc["empty"] = []interface{}{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Set(doc, tc.path, 1.0))
		})
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	doc := paramFile()
	clone := DeepCopy(doc)

	require.NoError(t, Set(clone, "values[0].mean", 0.99))
	require.NoError(t, Set(clone, "meta.source", "manual"))

	value, _, err := Get(doc, "values[0].mean")
	require.NoError(t, err)
	assert.Equal(t, 0.42, value)

	value, _, err = Get(doc, "meta.source")
	require.NoError(t, err)
	assert.Equal(t, "analytics", value)
}
