package workflow

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const (
	numberSuffixMin = 1000
	numberSuffixMax = 9999 // не включительно
)

// NumberGenerator выдаёт номер заявки вида YYYYMMDD-NNNN.
// Уникальность номера не гарантируется.
type NumberGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewNumberGenerator(src rand.Source) *NumberGenerator {
	return &NumberGenerator{rnd: rand.New(src)}
}

// NewSeededNumberGenerator: seed == 0 означает источник от текущего времени.
func NewSeededNumberGenerator(seed int64) *NumberGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewNumberGenerator(rand.NewSource(seed))
}

func (g *NumberGenerator) Generate(now time.Time) string {
	g.mu.Lock()
	suffix := numberSuffixMin + g.rnd.Intn(numberSuffixMax-numberSuffixMin)
	g.mu.Unlock()
	return fmt.Sprintf("%s-%d", now.Format("20060102"), suffix)
}
