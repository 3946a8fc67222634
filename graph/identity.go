package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meikuraledutech/workflow"
)

// minter hands out node identities from a monotonically increasing counter.
// The counter is never rewound, so an identity is never handed out twice.
type minter struct {
	next         int
	rolePrefixed bool
}

// mint returns node_<n>, or <role>_<n> when role-prefixed ids are enabled.
func (m *minter) mint(role workflow.Role) string {
	n := m.next
	m.next++
	if m.rolePrefixed {
		return fmt.Sprintf("%s_%d", strings.ToLower(string(role)), n)
	}
	return fmt.Sprintf("node_%d", n)
}

// reseed moves the counter past the largest numeric suffix among ids.
// A suffix of math.MaxInt cannot be moved past and is ignored; AddNode
// still skips any minted id that is already taken.
func (m *minter) reseed(ids []string) {
	for _, id := range ids {
		if n, ok := numericSuffix(id); ok && n >= m.next && n < math.MaxInt {
			m.next = n + 1
		}
	}
}

// numericSuffix parses the digits after the last underscore of id.
func numericSuffix(id string) (int, bool) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
