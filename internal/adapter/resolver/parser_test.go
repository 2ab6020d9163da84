package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/olla4/internal/core/domain"
)

func TestParseBodyDefaultsAndNormalisesWeights(t *testing.T) {
	body := []byte(`{
		"type": "bound",
		"addrs": [
			{"ip": "10.0.0.1", "port": 9000, "meta": {}},
			{"ip": "10.0.0.2", "port": 9000, "meta": {"endpoint_addr_weight": 3}}
		],
		"meta": {}
	}`)

	addrs, err := parseBody(body)
	require.NoError(t, err)
	require.Len(t, addrs, 2)

	// 1.0 (defaulted) + 3.0 = 4.0 total; normalised: 0.25 and 0.75
	assert.InDelta(t, 0.25, addrs[0].Weight, 1e-9)
	assert.InDelta(t, 0.75, addrs[1].Weight, 1e-9)
	assert.Equal(t, "10.0.0.1:9000", addrs[0].Addr.String())
}

func TestParseBodyNotBound(t *testing.T) {
	body := []byte(`{"type": "neg", "addrs": [], "meta": {}}`)

	_, err := parseBody(body)
	require.Error(t, err)

	var notBound *domain.ResolverNotBoundError
	require.ErrorAs(t, err, &notBound)
	assert.Equal(t, "neg", notBound.Kind)
}

func TestParseBodyInvalidJSON(t *testing.T) {
	_, err := parseBody([]byte("not json"))
	require.Error(t, err)

	var parseErr *domain.ResolverParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseBodyMissingAddrsArray(t *testing.T) {
	body := []byte(`{"type": "bound", "meta": {}}`)
	_, err := parseBody(body)
	require.Error(t, err)

	var parseErr *domain.ResolverParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseBodyEmptyMetaUniformAfterNormalise(t *testing.T) {
	body := []byte(`{"type": "bound", "addrs": [
		{"ip": "10.0.0.1", "port": 1, "meta": {}},
		{"ip": "10.0.0.2", "port": 1, "meta": {}}
	], "meta": {}}`)

	addrs, err := parseBody(body)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.InDelta(t, 0.5, addrs[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, addrs[1].Weight, 1e-9)
}
