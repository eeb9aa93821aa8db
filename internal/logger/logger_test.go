package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelNormal, &buf)

	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INF] shown 2")

	log.SetLevel(LevelVerbose)
	log.Debug("now visible")
	assert.Contains(t, buf.String(), "[DBG] now visible")

	buf.Reset()
	log.SetLevel(LevelOff)
	log.Error("silent")
	assert.Empty(t, buf.String())
}

func TestNamedSharesLevelAndPrefixes(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.Named("hume").Named("ws")

	child.Warn("dial failed")
	assert.Contains(t, buf.String(), "[WRN] hume: ws: dial failed")

	buf.Reset()
	root.SetLevel(LevelOff)
	child.Error("after off")
	assert.Empty(t, buf.String())
	assert.Equal(t, LevelOff, child.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"verbose", LevelVerbose, true},
		{"DEBUG", LevelVerbose, true},
		{"off", LevelOff, true},
		{"", LevelNormal, true},
		{"loud", LevelNormal, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
