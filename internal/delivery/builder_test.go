package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCDN(t *testing.T) {
	b, err := NewBuilder(Config{CDNDomain: "cdn.example.com", Bucket: "ignored", Region: "us-east-2"})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/a%20b.jpg", b.URL("a b.jpg"))
	assert.Equal(t, "https://cdn.example.com/images/DSCF3623_960.webp", b.URL("images/DSCF3623_960.webp"))
}

func TestBuilderCDNStripsSchemeAndSlash(t *testing.T) {
	b, err := NewBuilder(Config{CDNDomain: "https://d123.cloudfront.net/"})
	require.NoError(t, err)
	assert.Equal(t, "https://d123.cloudfront.net/x.jpg", b.URL("x.jpg"))
}

func TestBuilderDirectStorage(t *testing.T) {
	b, err := NewBuilder(Config{Bucket: "fuji-images", Region: "us-east-2"})
	require.NoError(t, err)
	assert.Equal(t, "https://fuji-images.s3.us-east-2.amazonaws.com/images/a%2Bb.jpg", b.URL("images/a+b.jpg"))
}

func TestBuilderEndpoint(t *testing.T) {
	b, err := NewBuilder(Config{Bucket: "photos", Endpoint: "http://localhost:9000", PathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/photos/a.jpg", b.URL("a.jpg"))

	b, err = NewBuilder(Config{Bucket: "photos", Endpoint: "storage.example.net"})
	require.NoError(t, err)
	assert.Equal(t, "https://photos.storage.example.net/a.jpg", b.URL("a.jpg"))
}

func TestBuilderRequiresBucketAndRegion(t *testing.T) {
	_, err := NewBuilder(Config{Region: "us-east-2"})
	assert.Error(t, err)

	_, err = NewBuilder(Config{Bucket: "b"})
	assert.Error(t, err)
}

func TestEscapeKey(t *testing.T) {
	cases := map[string]string{
		"plain/key-1_2.jpg": "plain/key-1_2.jpg",
		"a b.jpg":           "a%20b.jpg",
		"dir/ä.jpg":         "dir/%C3%A4.jpg",
		"x?y#z&w=1.jpg":     "x%3Fy%23z%26w%3D1.jpg",
		"tilde~ok.jpg":      "tilde~ok.jpg",
		"100%.jpg":          "100%25.jpg",
		"(1)!.jpg":          "%281%29%21.jpg",
		"//double":          "//double",
		"a+b@c:d$e,f;g.jpg": "a%2Bb%40c%3Ad%24e%2Cf%3Bg.jpg",
	}
	for in, want := range cases {
		assert.Equal(t, want, EscapeKey(in), in)
	}
}
