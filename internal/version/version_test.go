package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "dev (unknown) built unknown", String())
}

func TestLogValue(t *testing.T) {
	attrs := LogValue().Group()
	if assert.Len(t, attrs, 3) {
		assert.Equal(t, "version", attrs[0].Key)
		assert.Equal(t, "dev", attrs[0].Value.String())
	}
}
