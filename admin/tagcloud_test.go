package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/GoCodeAlone/wpadmin/pluginsapi"
)

func TestBuildTagCloud(t *testing.T) {
	p := message.NewPrinter(language.AmericanEnglish)
	link := func(name string) string { return "/search?s=" + name }

	cloud := BuildTagCloud(pluginsapi.Tags{
		{Name: "widget", Count: 30},
		{Name: "Admin", Count: 10},
		{Name: "post", Count: 20},
	}, p, link)

	require.Len(t, cloud, 3)
	assert.Equal(t, []string{"Admin", "post", "widget"}, []string{cloud[0].Name, cloud[1].Name, cloud[2].Name})
	assert.Equal(t, "8pt", cloud[0].FontSize)
	assert.Equal(t, "15pt", cloud[1].FontSize)
	assert.Equal(t, "22pt", cloud[2].FontSize)
	assert.Equal(t, "admin", cloud[0].ID)
	assert.Equal(t, "/search?s=post", cloud[1].URL)
	assert.Equal(t, "30 plugins", cloud[2].Title)
}

func TestBuildTagCloud_EqualCounts(t *testing.T) {
	p := message.NewPrinter(language.AmericanEnglish)
	cloud := BuildTagCloud(pluginsapi.Tags{{Name: "a", Count: 1}, {Name: "b", Count: 1}}, p, func(string) string { return "" })
	require.Len(t, cloud, 2)
	for _, tag := range cloud {
		assert.Equal(t, "8pt", tag.FontSize)
		assert.Equal(t, "1 plugin", tag.Title)
	}
	assert.Nil(t, BuildTagCloud(nil, p, nil))
}
