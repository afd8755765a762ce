package common

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertiesBasicOperations(t *testing.T) {
	p := NewProperties()

	_, ok := p.Get("missing")
	assert.False(t, ok)

	p.Set("region", "eu-west-1")
	got, ok := p.Get("region")
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", got)

	p.Delete("region")
	_, ok = p.Get("region")
	assert.False(t, ok)
}

func TestPropertiesGetOrSet(t *testing.T) {
	p := NewProperties()

	v, loaded := p.GetOrSet("k", 1)
	assert.False(t, loaded)
	assert.Equal(t, 1, v)

	v, loaded = p.GetOrSet("k", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, v)
}

func TestPropertiesConcurrentAccess(t *testing.T) {
	p := NewProperties()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%4)
			p.Set(key, i)
			p.Get(key)
			p.GetOrSet(key, i)
		}(i)
	}
	wg.Wait()

	count := 0
	p.Range(func(string, interface{}) bool {
		count++
		return true
	})
	assert.Equal(t, 4, count)
}
