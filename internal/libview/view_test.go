package libview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestView_ReplaceKeepsServerOrder(t *testing.T) {
	v := New()
	v.Replace([]string{"b.mp3", "a.mp3", "c.mp3"})

	assert.Equal(t, []string{"b.mp3", "a.mp3", "c.mp3"}, v.Titles())
}

func TestView_ReplaceDeduplicates(t *testing.T) {
	v := New()
	v.Replace([]string{"a.mp3", "b.mp3", "a.mp3", "", "c.mp3", "b.mp3"})

	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3"}, v.Titles())
	assert.Equal(t, 3, v.Len())
}

func TestView_ReplaceIsWholesale(t *testing.T) {
	v := New()
	v.Replace([]string{"a.mp3", "b.mp3"})
	v.Replace([]string{"c.mp3"})

	assert.Equal(t, []string{"c.mp3"}, v.Titles())
	assert.False(t, v.Contains("a.mp3"))
	assert.True(t, v.Contains("c.mp3"))
}

func TestView_TitlesIsACopy(t *testing.T) {
	v := New()
	v.Replace([]string{"a.mp3"})

	got := v.Titles()
	got[0] = "mutated"

	assert.Equal(t, []string{"a.mp3"}, v.Titles())
}

func TestView_UpdatesKeepsNewest(t *testing.T) {
	v := New()
	v.Replace([]string{"a.mp3"})
	v.Replace([]string{"b.mp3"})
	v.Replace([]string{"c.mp3"})

	assert.Equal(t, []string{"c.mp3"}, <-v.Updates())
	select {
	case u := <-v.Updates():
		t.Errorf("unexpected extra update %v", u)
	default:
	}
}
