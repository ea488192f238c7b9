package boxgate_test

import (
	"testing"

	"github.com/sagarc03/boxgate"
	"github.com/stretchr/testify/assert"
)

func TestTokenAuthenticator_Authorize(t *testing.T) {
	tt := []struct {
		Name   string
		Secret string
		Token  string
		Want   bool
	}{
		{Name: "match", Secret: "s3cret", Token: "s3cret", Want: true},
		{Name: "mismatch", Secret: "s3cret", Token: "s3cres", Want: false},
		{Name: "prefix of secret", Secret: "s3cret", Token: "s3c", Want: false},
		{Name: "secret is prefix", Secret: "s3c", Token: "s3cret", Want: false},
		{Name: "case differs", Secret: "Token", Token: "token", Want: false},
		{Name: "empty token", Secret: "s3cret", Token: "", Want: false},
		{Name: "unconfigured rejects empty", Secret: "", Token: "", Want: false},
		{Name: "unconfigured rejects anything", Secret: "", Token: "anything", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			a := boxgate.NewTokenAuthenticator(tc.Secret)
			assert.Equal(t, tc.Want, a.Authorize(tc.Token))
		})
	}
}

func TestTokenAuthenticator_Configured(t *testing.T) {
	assert.True(t, boxgate.NewTokenAuthenticator("x").Configured())
	assert.False(t, boxgate.NewTokenAuthenticator("").Configured())

	var nilAuth *boxgate.TokenAuthenticator
	assert.False(t, nilAuth.Configured())
	assert.False(t, nilAuth.Authorize("x"))
}
