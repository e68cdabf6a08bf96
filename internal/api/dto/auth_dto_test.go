package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRememberMe(t *testing.T) {
	for _, v := range []string{"on", "true", "1", "YES"} {
		assert.True(t, LoginForm{Remember: v}.RememberMe(), v)
	}
	for _, v := range []string{"", "off", "0"} {
		assert.False(t, LoginForm{Remember: v}.RememberMe(), v)
	}
}
