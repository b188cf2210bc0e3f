package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "redis://***@cache:6379/0", RedactURL("redis://user:pw@cache:6379/0"))
	assert.Equal(t, "redis://cache:6379", RedactURL("redis://cache:6379"))
}
