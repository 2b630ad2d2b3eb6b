package ml

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PredictionCache memoizes predictions keyed by the exact feature vector.
type PredictionCache struct {
	entries *lru.Cache[string, Prediction]
}

func NewPredictionCache(size int) (*PredictionCache, error) {
	entries, err := lru.New[string, Prediction](size)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{entries: entries}, nil
}

func (c *PredictionCache) Get(features []float64) (Prediction, bool) {
	return c.entries.Get(cacheKey(features))
}

func (c *PredictionCache) Add(features []float64, prediction Prediction) {
	c.entries.Add(cacheKey(features), prediction)
}

func (c *PredictionCache) Purge() {
	c.entries.Purge()
}

func (c *PredictionCache) Len() int {
	return c.entries.Len()
}

func cacheKey(features []float64) string {
	var b strings.Builder
	for i, value := range features {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	}
	return b.String()
}
