package textconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

func TestNew_DisabledReturnsIdentity(t *testing.T) {
	for _, name := range []string{"", "none", "NONE"} {
		conv, err := New(name, observability.DiscardLogger())
		require.NoError(t, err)
		assert.IsType(t, domain.IdentityConverter{}, conv)
		assert.Equal(t, "多云", conv.Convert("多云"))
	}
}

func TestConverter_SimplifiedToTaiwan(t *testing.T) {
	conv, err := New("s2twp", observability.DiscardLogger())
	require.NoError(t, err)

	assert.Equal(t, "多雲", conv.Convert("多云"))
	assert.Equal(t, "陣雨", conv.Convert("阵雨"))
	assert.Equal(t, "", conv.Convert(""))
}

func TestConverter_TraditionalUnchanged(t *testing.T) {
	conv, err := New("s2twp", observability.DiscardLogger())
	require.NoError(t, err)

	assert.Equal(t, "晴時多雲", conv.Convert("晴時多雲"))
}

func TestNew_UnknownConversion(t *testing.T) {
	_, err := New("no-such-dictionary", observability.DiscardLogger())
	require.Error(t, err)
}
