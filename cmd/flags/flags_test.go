package flags

import (
	"testing"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMockChains(t *testing.T) {
	chains, err := ParseMockChains([]string{"31337=http://localhost:8545", "0x1a4 = http://devnet:8545"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.MockChains{31337: "http://localhost:8545", 420: "http://devnet:8545"}, chains)

	for _, bad := range []string{"31337", "abc=http://x", "1="} {
		_, err := ParseMockChains([]string{bad})
		assert.Error(t, err, bad)
	}
}
