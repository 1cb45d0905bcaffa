package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestShouldProcess_DropsRedeliveryWithinTTL(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	d := New(time.Minute, 10).WithClock(c.now)

	assert.True(t, d.ShouldProcess("m-1"))
	assert.False(t, d.ShouldProcess("m-1"))
	assert.True(t, d.ShouldProcess("m-2"))

	c.t = c.t.Add(2 * time.Minute)
	assert.True(t, d.ShouldProcess("m-1"), "expired ids are processed again")
}

func TestForget(t *testing.T) {
	d := New(time.Minute, 10)
	assert.True(t, d.ShouldProcess("m-1"))
	d.Forget("m-1")
	assert.True(t, d.ShouldProcess("m-1"))
	assert.Equal(t, 1, d.Len())
}

func TestShouldProcess_EmptyIDAlwaysProcessed(t *testing.T) {
	d := New(time.Minute, 10)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
	assert.Equal(t, 0, d.Len())
}

func TestShouldProcess_BoundedSize(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	d := New(time.Hour, 3).WithClock(c.now)

	for i := 0; i < 5; i++ {
		c.t = c.t.Add(time.Second)
		assert.True(t, d.ShouldProcess(fmt.Sprintf("m-%d", i)))
	}
	assert.Equal(t, 3, d.Len())
	// the newest ids survive eviction
	assert.False(t, d.ShouldProcess("m-4"))
	assert.True(t, d.ShouldProcess("m-0"))
}

func TestNew_Defaults(t *testing.T) {
	d := New(0, 0)
	assert.Equal(t, 10*time.Minute, d.ttl)
	assert.Equal(t, 10000, d.max)
}
