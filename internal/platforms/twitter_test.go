package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/link-resolve-go/internal/resolver"
)

func newTestTwitterParser() *TwitterParser {
	return NewTwitterParser(resolver.NewEnv(nil, nil, nil))
}

func TestTwitterStatusPattern(t *testing.T) {
	tests := []struct {
		url        string
		expectedID string
	}{
		{url: "https://x.com/someuser/status/1790000000000000001", expectedID: "1790000000000000001"},
		{url: "https://twitter.com/some_user/status/123456789", expectedID: "123456789"},
		{url: "https://x.com/someuser/status/123?s=46&t=abc", expectedID: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			m := twitterStatusPattern.FindStringSubmatch(tt.url)
			require.NotNil(t, m)
			idx := twitterStatusPattern.SubexpIndex("id")
			assert.Equal(t, tt.expectedID, m[idx])
		})
	}

	assert.Nil(t, twitterStatusPattern.FindStringSubmatch("https://x.com/someuser"))
	assert.Nil(t, twitterStatusPattern.FindStringSubmatch("https://x.com/home"))
}

func TestExtractMediaLinks_Video(t *testing.T) {
	html := `
	<div class="tw-video">
	  <a href="https://dl.snapcdn.app/get?token=video-hd" class="abutton">Download MP4 HD</a>
	  <a href="https://dl.snapcdn.app/get?token=video-sd" class="abutton">Download MP4 SD</a>
	  <a href="https://xdown.app/en/about">About</a>
	</div>`

	p := newTestTwitterParser()
	videoURL, imageURLs, gifURLs, err := p.extractMediaLinks(html)
	require.NoError(t, err)

	// The first (highest quality) video link wins
	assert.Equal(t, "https://dl.snapcdn.app/get?token=video-hd", videoURL)
	assert.Empty(t, imageURLs)
	assert.Empty(t, gifURLs)
}

func TestExtractMediaLinks_Photos(t *testing.T) {
	html := `
	<ul>
	  <li><a href="https://dl.snapcdn.app/get?token=photo-1">Download Photo</a></li>
	  <li><a href="https://dl.snapcdn.app/get?token=photo-2">Download Photo</a></li>
	  <li><a href="https://dl.snapcdn.app/get?token=gif-1">Download GIF</a></li>
	</ul>`

	p := newTestTwitterParser()
	videoURL, imageURLs, gifURLs, err := p.extractMediaLinks(html)
	require.NoError(t, err)

	assert.Empty(t, videoURL)
	assert.Equal(t, []string{
		"https://dl.snapcdn.app/get?token=photo-1",
		"https://dl.snapcdn.app/get?token=photo-2",
	}, imageURLs)
	assert.Equal(t, []string{"https://dl.snapcdn.app/get?token=gif-1"}, gifURLs)
}

func TestExtractMediaLinks_NoMedia(t *testing.T) {
	html := `<div><a href="https://xdown.app/en">Home</a></div>`

	p := newTestTwitterParser()
	_, _, _, err := p.extractMediaLinks(html)
	assert.ErrorIs(t, err, errNoMedia)
}

func TestExtractMediaLinks_IgnoresForeignHosts(t *testing.T) {
	html := `
	<a href="https://evil.example.com/get?token=x">Download MP4</a>
	<a href="https://dl.snapcdn.app/get?token=real">Download MP4</a>`

	p := newTestTwitterParser()
	videoURL, _, _, err := p.extractMediaLinks(html)
	require.NoError(t, err)
	assert.Equal(t, "https://dl.snapcdn.app/get?token=real", videoURL)
}
