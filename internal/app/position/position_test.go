package position

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		positions []int
		expected  int
	}{
		{name: "empty partition", positions: nil, expected: Base},
		{name: "single", positions: []int{0}, expected: 1},
		{name: "unordered", positions: []int{2, 0, 1}, expected: 3},
		{name: "gap is not filled", positions: []int{0, 5}, expected: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Next(tt.positions))
		})
	}
}

func TestSequence(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Sequence(3, 3))
	assert.Empty(t, Sequence(0, 0))
}

func TestCloseGap(t *testing.T) {
	tests := []struct {
		name      string
		positions []int
		removed   int
		expected  []Shift
	}{
		{
			name:      "remove head",
			positions: []int{1, 2, 3},
			removed:   0,
			expected:  []Shift{{1, 0}, {2, 1}, {3, 2}},
		},
		{
			name:      "remove middle, unordered input",
			positions: []int{4, 0, 3, 1},
			removed:   2,
			expected:  []Shift{{3, 2}, {4, 3}},
		},
		{
			name:      "remove tail",
			positions: []int{0, 1},
			removed:   2,
			expected:  []Shift{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CloseGap(tt.positions, tt.removed))
		})
	}
}

// apply replays shifts over a position→label map the way storage would.
func apply(t *testing.T, labels map[int]string, shifts []Shift) map[int]string {
	t.Helper()
	byLabel := make(map[string]int, len(labels))
	for p, l := range labels {
		byLabel[l] = p
	}
	// resolve every shift against the layout before any of them is applied
	moves := make(map[string]int, len(shifts))
	for _, s := range shifts {
		l, ok := labels[s.From]
		require.True(t, ok, "no record at %d", s.From)
		moves[l] = s.To
	}
	for l, to := range moves {
		byLabel[l] = to
	}
	out := make(map[int]string, len(byLabel))
	for l, p := range byLabel {
		_, dup := out[p]
		require.False(t, dup, "position %d assigned twice", p)
		out[p] = l
	}
	return out
}

func TestMove(t *testing.T) {
	five := map[int]string{0: "a", 1: "b", 2: "c", 3: "d", 4: "e"}
	positions := []int{0, 1, 2, 3, 4}

	tests := []struct {
		name     string
		from, to int
		expected map[int]string
	}{
		{
			name:     "move 3 to 0",
			from:     3,
			to:       0,
			expected: map[int]string{0: "d", 1: "a", 2: "b", 3: "c", 4: "e"},
		},
		{
			name:     "move 0 to 3",
			from:     0,
			to:       3,
			expected: map[int]string{0: "b", 1: "c", 2: "d", 3: "a", 4: "e"},
		},
		{
			name:     "move to tail",
			from:     1,
			to:       4,
			expected: map[int]string{0: "a", 1: "c", 2: "d", 3: "e", 4: "b"},
		},
		{
			name:     "adjacent swap",
			from:     2,
			to:       1,
			expected: map[int]string{0: "a", 1: "c", 2: "b", 3: "d", 4: "e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shifts, err := Move(positions, tt.from, tt.to)
			require.NoError(t, err)
			require.NotEmpty(t, shifts)
			assert.Equal(t, Shift{From: tt.from, To: tt.to}, shifts[len(shifts)-1], "moved record is written last")
			assert.Equal(t, tt.expected, apply(t, five, shifts))
		})
	}
}

func TestMove_ThreeToZeroShifts(t *testing.T) {
	shifts, err := Move([]int{0, 1, 2, 3, 4}, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, []Shift{{2, 3}, {1, 2}, {0, 1}, {3, 0}}, shifts)
}

func TestMove_Errors(t *testing.T) {
	_, err := Move([]int{0, 1}, 5, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	shifts, err := Move([]int{0, 1}, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestMoveAmong(t *testing.T) {
	tests := []struct {
		name     string
		slots    []int
		from, to int
		expected []Shift
	}{
		{
			name:     "contiguous matches Move",
			slots:    []int{0, 1, 2, 3, 4},
			from:     3,
			to:       0,
			expected: []Shift{{2, 3}, {1, 2}, {0, 1}, {3, 0}},
		},
		{
			name:     "up across a hole",
			slots:    []int{0, 1, 3},
			from:     3,
			to:       0,
			expected: []Shift{{1, 3}, {0, 1}, {3, 0}},
		},
		{
			name:     "down across a hole",
			slots:    []int{3, 0, 1},
			from:     0,
			to:       3,
			expected: []Shift{{1, 0}, {3, 1}, {0, 3}},
		},
		{
			name:     "same slot",
			slots:    []int{0, 2},
			from:     2,
			to:       2,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shifts, err := MoveAmong(tt.slots, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, shifts)
		})
	}
}

func TestMoveAmong_Errors(t *testing.T) {
	_, err := MoveAmong([]int{0, 1, 3}, 2, 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = MoveAmong([]int{0, 1, 3}, 3, 2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestContiguous(t *testing.T) {
	assert.True(t, Contiguous(nil, 0))
	assert.True(t, Contiguous([]int{2, 0, 1}, 0))
	assert.False(t, Contiguous([]int{0, 2}, 0))
	assert.False(t, Contiguous([]int{0, 0, 1}, 0))
	assert.True(t, Contiguous([]int{1, 2}, 1))
}

func TestSplice(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected []string
		wantErr  bool
	}{
		{name: "forward", from: 0, to: 2, expected: []string{"b", "c", "a", "d"}},
		{name: "backward", from: 3, to: 0, expected: []string{"d", "a", "b", "c"}},
		{name: "to last", from: 1, to: 3, expected: []string{"a", "c", "d", "b"}},
		{name: "same index", from: 2, to: 2, expected: []string{"a", "b", "c", "d"}},
		{name: "from out of range", from: 4, to: 0, wantErr: true},
		{name: "to out of range", from: 0, to: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []string{"a", "b", "c", "d"}
			out, err := Splice(in, tt.from, tt.to)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrOutOfRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
			assert.Equal(t, []string{"a", "b", "c", "d"}, in, "input is not modified")
		})
	}
}
