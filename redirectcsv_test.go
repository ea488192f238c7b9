package boxgate_test

import (
	"strings"
	"testing"

	"github.com/sagarc03/boxgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirectCSV_IDColumn(t *testing.T) {
	in := "ID, URL,notes\n" +
		"1,https://example.com/one,first\n" +
		"12,\"https://example.com/a,b\",\n" +
		"3,,not yet\n" +
		"\n"

	entries, err := boxgate.ParseRedirectCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "box-01", entries[0].Key)
	assert.Equal(t, "https://example.com/one", entries[0].URL)
	assert.Equal(t, "box-12", entries[1].Key)
	assert.Equal(t, "https://example.com/a,b", entries[1].URL)
}

func TestParseRedirectCSV_KeyColumn(t *testing.T) {
	in := "\ufeffkey,url\r\nshop,http://example.com/shop\r\n中文/路径,https://example.com/zh\r\n"

	entries, err := boxgate.ParseRedirectCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "shop", entries[0].Key)
	assert.Equal(t, "中文/路径", entries[1].Key)
}

func TestParseRedirectCSV_Errors(t *testing.T) {
	tt := []struct {
		Name  string
		Input string
	}{
		{Name: "no url column", Input: "id,target\n1,https://example.com\n"},
		{Name: "no key column", Input: "name,url\n1,https://example.com\n"},
		{Name: "unsafe target", Input: "id,url\n1,javascript:alert(1)\n"},
		{Name: "empty key", Input: "key,url\n,https://example.com\n"},
		{Name: "leading slash", Input: "key,url\n/shop,https://example.com\n"},
		{Name: "bad quoting", Input: "key,url\nshop,\"https://example.com\n"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := boxgate.ParseRedirectCSV(strings.NewReader(tc.Input))
			assert.Error(t, err)
		})
	}
}

func TestParseRedirectCSV_Empty(t *testing.T) {
	entries, err := boxgate.ParseRedirectCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
