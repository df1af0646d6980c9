package camerasrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitRegexpExtractsPIDsFromFuserOutput(t *testing.T) {
	sample := "/dev/video0:        1234  5678 91011"
	matches := digitRegexp.FindAllString(sample, -1)
	assert.Equal(t, []string{"1234", "5678", "91011"}, matches)
}

func TestSortedKeysOrdersAscending(t *testing.T) {
	m := map[int]struct{}{42: {}, 7: {}, 100: {}, 1: {}}
	assert.Equal(t, []int{1, 7, 42, 100}, sortedKeys(m))
}

func TestSortedKeysHandlesEmptyAndSingle(t *testing.T) {
	assert.Empty(t, sortedKeys(map[int]struct{}{}))
	assert.Equal(t, []int{5}, sortedKeys(map[int]struct{}{5: {}}))
}

func TestKillDeviceHoldersNoopWhenDisabled(t *testing.T) {
	killed := KillDeviceHolders(nil, "/dev/video0", false)
	assert.False(t, killed)
}
