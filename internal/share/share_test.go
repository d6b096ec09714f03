package share

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/insightlab/internal/tokenizer"
)

func TestEncode(t *testing.T) {
	link, err := Encode("https://lab.example.com/", "don't stop!")
	require.NoError(t, err)
	assert.Equal(t, "https://lab.example.com/?p=don%27t+stop%21", link)

	link, err = Encode("http://localhost:8080/lab?tab=tokens", "a&b")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/lab?p=a%26b&tab=tokens", link)

	_, err = Encode("://bad", "x")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	p, err := Decode("p=hello+world%21")
	require.NoError(t, err)
	assert.Equal(t, "hello world!", p)

	p, err = Decode("tab=x")
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = Decode("p=%zz")
	assert.Error(t, err)
}

func TestRoundTripReproducesSimulation(t *testing.T) {
	prompt := "  Héllo, wörld 👋  "
	link, err := Encode("https://lab.example.com/", prompt)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	got, err := Decode(u.RawQuery)
	require.NoError(t, err)

	assert.Equal(t, prompt, got)
	assert.Equal(t, tokenizer.Simulate(prompt), tokenizer.Simulate(got))
}
